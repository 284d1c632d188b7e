// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import "github.com/go-interpreter/wat2ir/ir"

// operand is one entry of the abstract operand-type stack. unknown marks
// a value produced after unreachable code (or an unconditional branch):
// per the WebAssembly validation algorithm, such a stack is "polymorphic"
// and an unknown-typed operand matches any expected type.
type operand struct {
	Type    ir.ValueType
	Unknown bool
}

// Equal reports whether p can stand in for an operand of type t: true
// unconditionally if either side is the polymorphic unknown type.
func (p operand) Equal(t ir.ValueType) bool {
	if p.Unknown {
		return true
	}
	return p.Type == t
}

func known(t ir.ValueType) operand  { return operand{Type: t} }
func unknownOperand() operand       { return operand{Unknown: true} }
