// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wat2ir normalizes WebAssembly text-format source into a
// validated, language-neutral module IR: Transform is the sole entry
// point, funneling source bytes through parsing (internal/watast),
// instruction lowering and block-tree/module assembly (ir), and
// stack-based validation (validate).
package wat2ir

import (
	"github.com/pkg/errors"

	"github.com/go-interpreter/wat2ir/diag"
	"github.com/go-interpreter/wat2ir/internal/watast"
	"github.com/go-interpreter/wat2ir/ir"
	"github.com/go-interpreter/wat2ir/validate"
)

// Transform parses, lowers, assembles, and validates src, returning the
// first diagnostic any stage raises. The returned *diag.Error is always
// the one the failing stage produced, untouched: Transform's own
// breadcrumb (which phase failed) is only ever attached to the debug
// trace, via errors.Wrapf, never folded into the diagnostic a caller
// sees.
func Transform(src []byte) (*ir.Module, *diag.Error) {
	ast, err := watast.Parse(src)
	if err != nil {
		return nil, traceStage("parsing", err)
	}

	mod, err := ir.Assemble(ast)
	if err != nil {
		return nil, traceStage("assembling", err)
	}

	if err := validate.Validate(mod); err != nil {
		return nil, traceStage("validating", err)
	}

	return mod, nil
}

// traceStage records which pipeline phase raised e, for debug logging,
// and returns e unmodified.
func traceStage(phase string, e *diag.Error) *diag.Error {
	logger.Print(errors.Wrapf(e, "wat2ir: %s failed", phase))
	return e
}
