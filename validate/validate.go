// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate implements the stack-based abstract interpreter that
// enforces the WebAssembly validation rules over an already lowered and
// block-tree-assembled ir.Module: every instruction's operand types are
// checked against an abstract operand stack, every branch target is
// resolved and arity-checked, and the "polymorphic stack after
// unreachable" rule is enforced while walking an ir.Node tree instead of
// a raw opcode stream.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-interpreter/wat2ir/diag"
	"github.com/go-interpreter/wat2ir/ir"
)

// Validate checks every function body in m against the WebAssembly
// validation rules, plus the module-level name resolution start/export
// targets require.
func Validate(m *ir.Module) *diag.Error {
	funcNames, err := indexNames(m.Functions, func(f ir.Function) string { return f.Name })
	if err != nil {
		return err
	}
	globalNames, err := indexNames(m.Globals, func(g ir.GlobalDef) string { return g.Name })
	if err != nil {
		return err
	}

	if m.Start != "" {
		if _, err := resolveRef(m.Start, funcNames, len(m.Functions), "function"); err != nil {
			return err
		}
	}
	for _, exp := range m.Exports {
		switch exp.Kind {
		case ir.ExportFunction:
			if _, err := resolveRef(exp.Target, funcNames, len(m.Functions), "function"); err != nil {
				return err
			}
		case ir.ExportGlobal:
			if _, err := resolveRef(exp.Target, globalNames, len(m.Globals), "global"); err != nil {
				return err
			}
		case ir.ExportMemory:
			if len(m.Memories) == 0 {
				return diag.NameResolution("memory", exp.Target)
			}
		}
	}

	for _, fn := range m.Functions {
		if err := validateFunction(m, fn, funcNames, globalNames); err != nil {
			return err
		}
	}
	return nil
}

func indexNames[T any](items []T, nameOf func(T) string) (map[string]int, *diag.Error) {
	names := make(map[string]int, len(items))
	for i, item := range items {
		name := nameOf(item)
		if name == "" {
			continue
		}
		if _, dup := names[name]; dup {
			return nil, diag.DuplicateName(name)
		}
		names[name] = i
	}
	return names, nil
}

// resolveRef looks up a branch/call/local/global target, which is
// either a "$name" identifier or a bare decimal index, against its
// namespace's name table and element count.
func resolveRef(ref string, names map[string]int, count int, kind string) (int, *diag.Error) {
	if strings.HasPrefix(ref, "$") {
		idx, ok := names[ref]
		if !ok {
			return 0, diag.NameResolution(kind, ref)
		}
		return idx, nil
	}
	idx, convErr := strconv.Atoi(ref)
	if convErr != nil || idx < 0 {
		return 0, diag.NameResolution(kind, ref)
	}
	if idx >= count {
		return 0, diag.IndexOutOfRange(count-1, idx)
	}
	return idx, nil
}

// funcContext carries the name tables and local-variable layout needed
// to resolve one function body's local/global/call/label references.
type funcContext struct {
	module      *ir.Module
	funcNames   map[string]int
	globalNames map[string]int
	localNames  map[string]int
	locals      []ir.ValueType
	outputs     []ir.ValueType
}

func (c *funcContext) resolveLocal(ref string) (ir.ValueType, *diag.Error) {
	idx, err := resolveLocalRef(ref, c.localNames, len(c.locals))
	if err != nil {
		return 0, err
	}
	return c.locals[idx], nil
}

// resolveLocalRef is resolveRef specialized to the local-variable
// namespace, reporting an unresolved "$name" or bare index via
// diag.LocalResolution rather than the generic NameResolution.
func resolveLocalRef(ref string, names map[string]int, count int) (int, *diag.Error) {
	if strings.HasPrefix(ref, "$") {
		idx, ok := names[ref]
		if !ok {
			return 0, diag.LocalResolution(ref)
		}
		return idx, nil
	}
	idx, convErr := strconv.Atoi(ref)
	if convErr != nil || idx < 0 {
		return 0, diag.LocalResolution(ref)
	}
	if idx >= count {
		return 0, diag.IndexOutOfRange(count-1, idx)
	}
	return idx, nil
}

func (c *funcContext) resolveGlobal(ref string) (ir.GlobalDef, *diag.Error) {
	idx, err := resolveRef(ref, c.globalNames, len(c.module.Globals), "global")
	if err != nil {
		return ir.GlobalDef{}, err
	}
	return c.module.Globals[idx], nil
}

func (c *funcContext) resolveFunc(ref string) (ir.InputOutput, *diag.Error) {
	idx, err := resolveRef(ref, c.funcNames, len(c.module.Functions), "function")
	if err != nil {
		return ir.InputOutput{}, err
	}
	return c.module.Functions[idx].Sig, nil
}

func validateFunction(m *ir.Module, fn ir.Function, funcNames, globalNames map[string]int) *diag.Error {
	locals := make([]ir.ValueType, 0, len(fn.Sig.Inputs)+len(fn.Locals))
	localNames := make(map[string]int)
	addLocal := func(name string, t ir.ValueType) *diag.Error {
		if name != "" {
			if _, dup := localNames[name]; dup {
				return diag.DuplicateName(name)
			}
			localNames[name] = len(locals)
		}
		locals = append(locals, t)
		return nil
	}
	for _, p := range fn.Sig.Inputs {
		if err := addLocal(p.Name, p.Type); err != nil {
			return err
		}
	}
	for _, l := range fn.Locals {
		if err := addLocal(l.Name, l.Type); err != nil {
			return err
		}
	}

	ctx := &funcContext{
		module:      m,
		funcNames:   funcNames,
		globalNames: globalNames,
		localNames:  localNames,
		locals:      locals,
		outputs:     fn.Sig.Outputs,
	}

	v := &vm{}
	v.pushFrame(fn.Name, fn.Sig.Outputs, fn.Sig.Outputs)
	if err := validateNodes(v, fn.Body, ctx); err != nil {
		return err
	}
	if _, err := v.popFrame(); err != nil {
		return err
	}
	return nil
}

func validateNodes(v *vm, nodes []ir.Node, ctx *funcContext) *diag.Error {
	for _, n := range nodes {
		if err := validateNode(v, n, ctx); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(v *vm, n ir.Node, ctx *funcContext) *diag.Error {
	switch n.Kind {
	case ir.NodeLeaf:
		return validateInstruction(v, n.Instr, ctx)

	case ir.NodeBlock:
		params := n.Sig.ParamTypes()
		if err := popParams(v, params); err != nil {
			return err
		}
		labelTypes := n.Sig.Outputs
		if n.IsLoop {
			labelTypes = params
		}
		v.pushFrame(n.Label, labelTypes, n.Sig.Outputs)
		pushParams(v, params)
		if err := validateNodes(v, n.Body, ctx); err != nil {
			return err
		}
		if _, err := v.popFrame(); err != nil {
			return err
		}
		for _, t := range n.Sig.Outputs {
			v.pushOperand(t)
		}
		return nil

	case ir.NodeIf:
		if err := v.popExpected(ir.I32); err != nil {
			return err
		}
		params := n.Sig.ParamTypes()
		if err := popParams(v, params); err != nil {
			return err
		}
		base := append([]operand(nil), v.stack...)

		v.pushFrame(n.Label, n.Sig.Outputs, n.Sig.Outputs)
		pushParams(v, params)
		if err := validateNodes(v, n.Body, ctx); err != nil {
			return err
		}
		if _, err := v.popFrame(); err != nil {
			return err
		}

		v.stack = append([]operand(nil), base...)
		v.pushFrame(n.Label, n.Sig.Outputs, n.Sig.Outputs)
		if n.Else == nil {
			if !sameValueTypes(params, n.Sig.Outputs) {
				return diag.MismatchedInOut(stringerSlice(n.Sig.Outputs), stringerSlice(params), true)
			}
			pushParams(v, params)
		} else {
			pushParams(v, params)
			if err := validateNodes(v, n.Else, ctx); err != nil {
				return err
			}
		}
		if _, err := v.popFrame(); err != nil {
			return err
		}

		for _, t := range n.Sig.Outputs {
			v.pushOperand(t)
		}
		return nil

	default:
		return diag.New(diag.TypeChecking, "unrecognized block-tree node")
	}
}

// popParams checks that a block/if's parameter types are present on the
// stack and consumes them. The control frame pushed right after records
// its entry height at this point — below the params — so they can be
// pushed back as the frame's initial operands via pushParams without
// inflating the height popFrame checks the body's net effect against.
func popParams(v *vm, params []ir.ValueType) *diag.Error {
	for i := len(params) - 1; i >= 0; i-- {
		if err := v.popExpected(params[i]); err != nil {
			return err
		}
	}
	return nil
}

// pushParams re-establishes a block/if's parameters as the initial
// operands available to its body, after the frame recording their
// pre-push height has already been pushed.
func pushParams(v *vm, params []ir.ValueType) {
	for _, t := range params {
		v.pushOperand(t)
	}
}

func sameValueTypes(a, b []ir.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringerSlice(ts []ir.ValueType) []fmt.Stringer {
	out := make([]fmt.Stringer, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}

func validateInstruction(v *vm, in ir.Instruction, ctx *funcContext) *diag.Error {
	switch in.Kind {
	case ir.InstrSimple:
		return validateSimple(v, in, ctx)
	case ir.InstrBranch:
		return validateBranch(v, in.Branch)
	case ir.InstrCall:
		sig, err := ctx.resolveFunc(in.CallTarget)
		if err != nil {
			return err
		}
		return applySignature(v, sig)
	case ir.InstrCallIndirect:
		if err := v.popExpected(ir.I32); err != nil {
			return err
		}
		return applySignature(v, in.CallIndirect)
	case ir.InstrData:
		return validateData(v, in.Data, ctx)
	case ir.InstrMemoryAccess:
		return validateMemoryAccess(v, in.Memory, ctx)
	case ir.InstrConst:
		v.pushOperand(in.Const.Type)
		return nil
	case ir.InstrComparison:
		return validateComparison(v, in.Comparison)
	case ir.InstrArithmetic:
		return validateBinaryNumeric(v, in.Arithmetic.Type)
	case ir.InstrBitwise:
		if in.Bitwise.Op.IsUnary() {
			return validateUnaryNumeric(v, in.Bitwise.Type)
		}
		return validateBinaryNumeric(v, in.Bitwise.Type)
	case ir.InstrFloat:
		if in.Float.Op.IsUnary() {
			return validateUnaryNumeric(v, in.Float.Type)
		}
		return validateBinaryNumeric(v, in.Float.Type)
	case ir.InstrConversion:
		from, to := in.Conversion.Signature()
		if err := v.popExpected(from); err != nil {
			return err
		}
		v.pushOperand(to)
		return nil
	case ir.InstrSelect:
		return validateSelect(v)
	case ir.InstrUnsupported:
		return diag.NewAt(diag.Unimplemented, in.Pos, "%s is not supported", in.Unsupported)
	default:
		return diag.New(diag.TypeChecking, "unrecognized instruction kind")
	}
}

func validateSimple(v *vm, in ir.Instruction, ctx *funcContext) *diag.Error {
	switch in.Simple {
	case ir.Unreachable:
		v.setUnreachable()
		return nil
	case ir.Nop:
		return nil
	case ir.Drop:
		_, err := v.popOperand()
		return err
	case ir.Return:
		for i := len(ctx.outputs) - 1; i >= 0; i-- {
			if err := v.popExpected(ctx.outputs[i]); err != nil {
				return err
			}
		}
		v.setUnreachable()
		return nil
	default:
		return diag.New(diag.TypeChecking, "unrecognized simple instruction")
	}
}

func validateBranch(v *vm, br ir.BranchInstr) *diag.Error {
	if br.Conditional || br.Others != nil {
		if err := v.popExpected(ir.I32); err != nil {
			return err
		}
	}
	target, err := resolveLabel(v, br.Default)
	if err != nil {
		return err
	}
	if err := peekLabelTypes(v, target.labelTypes); err != nil {
		return err
	}
	for _, other := range br.Others {
		otherFrame, err := resolveLabel(v, other)
		if err != nil {
			return err
		}
		if err := target.matchingLabelTypes(otherFrame); err != nil {
			return err
		}
	}
	if !br.Conditional {
		v.setUnreachable()
	}
	return nil
}

// resolveLabel resolves a branch target to its control frame: a bare
// decimal is a relative nesting depth (0 = innermost open frame); a
// "$name" searches outward for the nearest frame carrying that label.
func resolveLabel(v *vm, ref string) (*ctrlFrame, *diag.Error) {
	if strings.HasPrefix(ref, "$") {
		for depth := 0; depth < len(v.ctrlFrames); depth++ {
			f := v.frameAtDepth(depth)
			if f.label == ref {
				return f, nil
			}
		}
		return nil, diag.LabelResolution(ref)
	}
	depth, convErr := strconv.Atoi(ref)
	if convErr != nil || depth < 0 {
		return nil, diag.LabelResolution(ref)
	}
	f := v.frameAtDepth(depth)
	if f == nil {
		return nil, diag.IndexOutOfRange(len(v.ctrlFrames)-1, depth)
	}
	return f, nil
}

// peekLabelTypes verifies that the top of the stack carries the given
// types without consuming them: a branch to a label does not drain the
// operand stack of values later (non-taken) code still needs.
func peekLabelTypes(v *vm, types []ir.ValueType) *diag.Error {
	popped := make([]operand, len(types))
	for i := len(types) - 1; i >= 0; i-- {
		op, err := v.popOperand()
		if err != nil {
			return err
		}
		if !op.Equal(types[i]) {
			return diag.TypeError(types[i], op.Type)
		}
		popped[i] = op
	}
	v.stack = append(v.stack, popped...)
	return nil
}

func applySignature(v *vm, sig ir.InputOutput) *diag.Error {
	params := sig.ParamTypes()
	for i := len(params) - 1; i >= 0; i-- {
		if err := v.popExpected(params[i]); err != nil {
			return err
		}
	}
	for _, t := range sig.Outputs {
		v.pushOperand(t)
	}
	return nil
}

func validateData(v *vm, d ir.DataInstr, ctx *funcContext) *diag.Error {
	switch d.Kind {
	case ir.GetLocal:
		t, err := ctx.resolveLocal(d.Target)
		if err != nil {
			return err
		}
		v.pushOperand(t)
		return nil
	case ir.SetLocal:
		t, err := ctx.resolveLocal(d.Target)
		if err != nil {
			return err
		}
		return v.popExpected(t)
	case ir.TeeLocal:
		t, err := ctx.resolveLocal(d.Target)
		if err != nil {
			return err
		}
		if err := v.popExpected(t); err != nil {
			return err
		}
		v.pushOperand(t)
		return nil
	case ir.GetGlobal:
		g, err := ctx.resolveGlobal(d.Target)
		if err != nil {
			return err
		}
		v.pushOperand(g.Type)
		return nil
	case ir.SetGlobal:
		g, err := ctx.resolveGlobal(d.Target)
		if err != nil {
			return err
		}
		if !g.Mutable {
			return diag.SettingImmutableGlobal(g.Name)
		}
		return v.popExpected(g.Type)
	case ir.GetMemorySize:
		if len(ctx.module.Memories) == 0 {
			return diag.NameResolution("memory", "0")
		}
		v.pushOperand(ir.I32)
		return nil
	case ir.GrowMemory:
		if len(ctx.module.Memories) == 0 {
			return diag.NameResolution("memory", "0")
		}
		if err := v.popExpected(ir.I32); err != nil {
			return err
		}
		v.pushOperand(ir.I32)
		return nil
	default:
		return diag.New(diag.TypeChecking, "unrecognized local/global accessor")
	}
}

func validateMemoryAccess(v *vm, mem ir.MemoryAccess, ctx *funcContext) *diag.Error {
	if len(ctx.module.Memories) == 0 {
		return diag.NameResolution("memory", "0")
	}
	if mem.Store {
		if err := v.popExpected(mem.Type); err != nil {
			return err
		}
		return v.popExpected(ir.I32)
	}
	if err := v.popExpected(ir.I32); err != nil {
		return err
	}
	v.pushOperand(mem.Type)
	return nil
}

func validateComparison(v *vm, c ir.ComparisonInstr) *diag.Error {
	if c.Op == ir.CmpEqualZero {
		if err := v.popExpected(c.Type); err != nil {
			return err
		}
		v.pushOperand(ir.I32)
		return nil
	}
	if err := v.popExpected(c.Type); err != nil {
		return err
	}
	if err := v.popExpected(c.Type); err != nil {
		return err
	}
	v.pushOperand(ir.I32)
	return nil
}

func validateUnaryNumeric(v *vm, t ir.ValueType) *diag.Error {
	if err := v.popExpected(t); err != nil {
		return err
	}
	v.pushOperand(t)
	return nil
}

func validateBinaryNumeric(v *vm, t ir.ValueType) *diag.Error {
	if err := v.popExpected(t); err != nil {
		return err
	}
	if err := v.popExpected(t); err != nil {
		return err
	}
	v.pushOperand(t)
	return nil
}

func validateSelect(v *vm) *diag.Error {
	if err := v.popExpected(ir.I32); err != nil {
		return err
	}
	b, err := v.popOperand()
	if err != nil {
		return err
	}
	a, err := v.popOperand()
	if err != nil {
		return err
	}
	switch {
	case a.Unknown && b.Unknown:
		v.stack = append(v.stack, unknownOperand())
	case a.Unknown:
		v.pushOperand(b.Type)
	case b.Unknown:
		v.pushOperand(a.Type)
	case a.Type != b.Type:
		return diag.TypeError(a.Type, b.Type)
	default:
		v.pushOperand(a.Type)
	}
	return nil
}
