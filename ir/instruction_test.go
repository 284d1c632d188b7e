// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"testing"

	"github.com/go-interpreter/wat2ir/internal/watast"
)

func mustLower(t *testing.T, in watast.Instr) Instruction {
	t.Helper()
	out, err := Lower(in)
	if err != nil {
		t.Fatalf("unexpected lowering error for %q: %v", in.Op, err)
	}
	return out
}

func TestLowerSimple(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "nop"})
	if out.Kind != InstrSimple || out.Simple != Nop {
		t.Fatalf("unexpected lowering: %+v", out)
	}
}

func TestLowerBlockMarker(t *testing.T) {
	in := watast.Instr{Op: "block", Label: "$l", Sig: watast.Signature{Results: []string{"i32"}}}
	out := mustLower(t, in)
	if out.Kind != InstrBlockMarker || out.Block.Kind != BlockMarkerBlock || out.Block.Label != "$l" {
		t.Fatalf("unexpected lowering: %+v", out)
	}
	if len(out.Block.Sig.Outputs) != 1 || out.Block.Sig.Outputs[0] != I32 {
		t.Fatalf("unexpected block sig: %+v", out.Block.Sig)
	}
}

func TestLowerBrTable(t *testing.T) {
	in := watast.Instr{Op: "br_table", DefaultTarget: "$d", OtherTargets: []string{"$a", "$b"}}
	out := mustLower(t, in)
	if out.Kind != InstrBranch || out.Branch.Default != "$d" || len(out.Branch.Others) != 2 {
		t.Fatalf("unexpected lowering: %+v", out)
	}
}

func TestLowerConstTypes(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "i32.const", I32Value: -7})
	if out.Kind != InstrConst || out.Const.Type != I32 {
		t.Fatalf("unexpected i32.const lowering: %+v", out)
	}
	v, ok := out.Const.AsU32()
	if !ok || int32(v) != -7 {
		t.Fatalf("unexpected i32 payload: %v %v", v, ok)
	}

	out = mustLower(t, watast.Instr{Op: "f64.const", F64Bits: 0x3ff0000000000000})
	if out.Kind != InstrConst || out.Const.Type != F64 {
		t.Fatalf("unexpected f64.const lowering: %+v", out)
	}
}

func TestLowerArithmeticAndComparison(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "i32.add"})
	if out.Kind != InstrArithmetic || out.Arithmetic.Op != ArithAdd || out.Arithmetic.Type != I32 {
		t.Fatalf("unexpected i32.add lowering: %+v", out)
	}
	out = mustLower(t, watast.Instr{Op: "f32.lt"})
	if out.Kind != InstrComparison || out.Comparison.Op != CmpLessThanSigned || out.Comparison.Type != F32 {
		t.Fatalf("unexpected f32.lt lowering: %+v", out)
	}
	out = mustLower(t, watast.Instr{Op: "i64.div_u"})
	if out.Kind != InstrArithmetic || out.Arithmetic.Op != ArithDivUnsigned {
		t.Fatalf("unexpected i64.div_u lowering: %+v", out)
	}
}

func TestLowerBitwiseAndFloat(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "i32.clz"})
	if out.Kind != InstrBitwise || out.Bitwise.Op != BitCountLeadingZero {
		t.Fatalf("unexpected i32.clz lowering: %+v", out)
	}
	if !out.Bitwise.Op.IsUnary() {
		t.Fatal("clz should be unary")
	}
	out = mustLower(t, watast.Instr{Op: "f64.copysign"})
	if out.Kind != InstrFloat || out.Float.Op != FloatCopySign {
		t.Fatalf("unexpected f64.copysign lowering: %+v", out)
	}
	if out.Float.Op.IsUnary() {
		t.Fatal("copysign should be binary")
	}
}

func TestLowerConversion(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "i64.extend_i32_s"})
	if out.Kind != InstrConversion || out.Conversion != ConvSignedExtend {
		t.Fatalf("unexpected conversion lowering: %+v", out)
	}
	from, to := out.Conversion.Signature()
	if from != I32 || to != I64 {
		t.Fatalf("unexpected conversion signature: %v -> %v", from, to)
	}
}

func TestLowerMemoryAccess(t *testing.T) {
	in := watast.Instr{Op: "i32.load8_s", Mem: watast.MemArg{Offset: 4, Align: 1}}
	out := mustLower(t, in)
	if out.Kind != InstrMemoryAccess {
		t.Fatalf("unexpected kind: %+v", out)
	}
	if out.Memory.Store || !out.Memory.Signed || out.Memory.Width != Bits8 || out.Memory.Offset != 4 {
		t.Fatalf("unexpected memory access: %+v", out.Memory)
	}

	out = mustLower(t, watast.Instr{Op: "i64.store32"})
	if !out.Memory.Store || out.Memory.Width != Bits32 || out.Memory.Type != I64 {
		t.Fatalf("unexpected store lowering: %+v", out.Memory)
	}
}

func TestLowerDataAccessors(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "local.get", Target: "$x"})
	if out.Kind != InstrData || out.Data.Kind != GetLocal || out.Data.Target != "$x" {
		t.Fatalf("unexpected local.get lowering: %+v", out)
	}
}

func TestLowerSelectAndCall(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "select"})
	if out.Kind != InstrSelect {
		t.Fatalf("unexpected select lowering: %+v", out)
	}
	out = mustLower(t, watast.Instr{Op: "call", Target: "$f"})
	if out.Kind != InstrCall || out.CallTarget != "$f" {
		t.Fatalf("unexpected call lowering: %+v", out)
	}
}

func TestLowerUnsupportedOpcode(t *testing.T) {
	out := mustLower(t, watast.Instr{Op: "v128.load"})
	if out.Kind != InstrUnsupported {
		t.Fatalf("expected unsupported, got %+v", out)
	}
	out = mustLower(t, watast.Instr{Op: "table.get"})
	if out.Kind != InstrUnsupported || out.Unsupported != "table.get" {
		t.Fatalf("expected unsupported table.get, got %+v", out)
	}
}
