// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag provides the stage-tagged diagnostic type produced by every
// stage of the wat2ir pipeline: lowering, block-tree assembly, module
// assembly, and validation.
package diag

import "fmt"

// Stage identifies which pipeline phase raised an Error.
type Stage int

const (
	// Parsing covers malformed WAT syntax.
	Parsing Stage = iota
	// NameResolving covers unknown identifiers, duplicate exports, and
	// duplicate identifiers within a scope.
	NameResolving
	// TypeChecking covers every validator-reported violation.
	TypeChecking
	// Unimplemented covers WAT features this module does not model.
	Unimplemented
)

func (s Stage) String() string {
	switch s {
	case Parsing:
		return "Parsing"
	case NameResolving:
		return "NameResolving"
	case TypeChecking:
		return "TypeChecking"
	case Unimplemented:
		return "Unimplemented"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

// Error is the single diagnostic type surfaced by the pipeline. It is
// always returned as a value, never panicked, except for internal
// consistency assertions documented alongside the code that raises them.
type Error struct {
	Stage   Stage
	Span    *Span
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Span == nil && e.Message == "":
		return fmt.Sprintf("[%s Error]", e.Stage)
	case e.Span == nil:
		return fmt.Sprintf("[%s Error]: %s", e.Stage, e.Message)
	case e.Message == "":
		return fmt.Sprintf("[%s Error@%d-%d]", e.Stage, e.Span.Start, e.Span.End)
	default:
		return fmt.Sprintf("[%s Error@%d-%d]: %s", e.Stage, e.Span.Start, e.Span.End, e.Message)
	}
}

// New builds an Error with no span.
func New(stage Stage, format string, args ...interface{}) *Error {
	return &Error{Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// NewAt builds an Error carrying a byte-offset span of length 1.
func NewAt(stage Stage, offset int, format string, args ...interface{}) *Error {
	return &Error{
		Stage:   stage,
		Span:    &Span{Start: offset, End: offset + 1},
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUnimplemented builds a Stage-Unimplemented Error describing the
// unsupported feature.
func NewUnimplemented(format string, args ...interface{}) *Error {
	return New(Unimplemented, format, args...)
}
