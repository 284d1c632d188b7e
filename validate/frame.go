// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"fmt"

	"github.com/go-interpreter/wat2ir/diag"
	"github.com/go-interpreter/wat2ir/ir"
)

// ctrlFrame represents one structured control instruction (function body,
// block, loop, or if/else arm) and the operand-stack bookkeeping needed to
// validate it, walking an ir.Node tree instead of a raw bytecode stream.
type ctrlFrame struct {
	label       string
	labelTypes  []ir.ValueType // types a branch to this frame's label must carry
	endTypes    []ir.ValueType // types this frame must leave on the stack at its end
	stackHeight int            // operand-stack height when the frame was entered
	unreachable bool
}

// matchingLabelTypes requires full structural equality between two
// label-type signatures, the rule br_table uses to check that every
// target (including the default) agrees on arity and types.
func (f *ctrlFrame) matchingLabelTypes(other *ctrlFrame) *diag.Error {
	if len(f.labelTypes) != len(other.labelTypes) {
		return diag.New(diag.TypeChecking, "label type arity mismatch: %d != %d", len(f.labelTypes), len(other.labelTypes))
	}
	for i := range f.labelTypes {
		if f.labelTypes[i] != other.labelTypes[i] {
			return diag.New(diag.TypeChecking, "label type mismatch at index %d: %v != %v", i, f.labelTypes[i], other.labelTypes[i])
		}
	}
	return nil
}

// vm is the abstract stack machine driving validation: an operand stack
// plus a stack of control frames. There is no bytecode cursor since this
// module walks a tree, not a byte stream.
type vm struct {
	stack      []operand
	ctrlFrames []ctrlFrame
}

func (m *vm) pushFrame(label string, labelTypes, endTypes []ir.ValueType) {
	m.ctrlFrames = append(m.ctrlFrames, ctrlFrame{
		label:       label,
		labelTypes:  labelTypes,
		endTypes:    endTypes,
		stackHeight: len(m.stack),
	})
	logger.Printf("pushed frame %+v", m.topFrame())
}

func (m *vm) topFrame() *ctrlFrame {
	if len(m.ctrlFrames) == 0 {
		return nil
	}
	return &m.ctrlFrames[len(m.ctrlFrames)-1]
}

// frameAtDepth returns the control frame `depth` levels up from the
// innermost (0 = current), or nil if depth is out of range.
func (m *vm) frameAtDepth(depth int) *ctrlFrame {
	idx := len(m.ctrlFrames) - 1 - depth
	if idx < 0 || idx >= len(m.ctrlFrames) {
		return nil
	}
	return &m.ctrlFrames[idx]
}

// popFrame pops the current control frame, checking that its endTypes
// are present on the stack and that popping them returns the stack to
// exactly the frame's entry height.
func (m *vm) popFrame() (*ctrlFrame, *diag.Error) {
	top := m.topFrame()
	if top == nil {
		return nil, diag.New(diag.TypeChecking, "no open control frame to pop")
	}
	for i := len(top.endTypes) - 1; i >= 0; i-- {
		want := top.endTypes[i]
		op, err := m.popOperand()
		if err != nil {
			return nil, err
		}
		if !op.Equal(want) {
			return nil, diag.TypeError(want, op.Type)
		}
	}
	if len(m.stack) != top.stackHeight {
		extra := make([]fmt.Stringer, 0, len(m.stack)-top.stackHeight)
		for _, o := range m.stack[top.stackHeight:] {
			extra = append(extra, o.Type)
		}
		return nil, diag.ExtraItemsOnStack(extra)
	}
	logger.Printf("removing frame: %+v", top)
	frame := *top
	m.ctrlFrames = m.ctrlFrames[:len(m.ctrlFrames)-1]
	logger.Printf("ctrlFrames = %+v", m.ctrlFrames)
	return &frame, nil
}

func (m *vm) pushOperand(t ir.ValueType) {
	o := known(t)
	m.stack = append(m.stack, o)
	logger.Printf("stack after push is %+v. pushed %+v", m.stack, o)
}

// popOperand pops one operand, returning the polymorphic unknown operand
// without consuming anything once the stack has drained to the current
// frame's entry height inside unreachable code. This is the validation
// algorithm's handling of the "polymorphic stack after unreachable" rule.
func (m *vm) popOperand() (operand, *diag.Error) {
	logger.Printf("stack before pop: %+v", m.stack)
	logger.Printf("frame before pop: %+v", m.topFrame())
	top := m.topFrame()
	if top != nil && len(m.stack) == top.stackHeight {
		if top.unreachable {
			return unknownOperand(), nil
		}
		return operand{}, diag.EmptyStack(1)
	}
	if top == nil && len(m.stack) == 0 {
		return operand{}, diag.EmptyStack(1)
	}
	n := len(m.stack) - 1
	op := m.stack[n]
	m.stack = m.stack[:n]
	logger.Printf("stack after pop is %+v. popped %+v", m.stack, op)
	return op, nil
}

func (m *vm) popExpected(t ir.ValueType) *diag.Error {
	op, err := m.popOperand()
	if err != nil {
		return err
	}
	if !op.Equal(t) {
		return diag.TypeError(t, op.Type)
	}
	return nil
}

// setUnreachable marks the current frame unreachable and discards every
// operand pushed since it was entered: a subsequent pop is then free to
// conjure any type (the "polymorphic stack" rule), which lets validation
// continue past unconditional control transfers like unreachable/return/br
// without manufacturing spurious type errors.
func (m *vm) setUnreachable() {
	top := m.topFrame()
	top.unreachable = true
	m.stack = m.stack[:top.stackHeight]
}
