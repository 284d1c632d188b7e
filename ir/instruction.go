// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"strings"

	"github.com/go-interpreter/wat2ir/diag"
	"github.com/go-interpreter/wat2ir/internal/watast"
)

// InstructionKind discriminates the closed instruction catalog the
// hundreds of raw WebAssembly opcodes normalize down to. A single
// Kind-tagged struct is used
// in place of an interface hierarchy so that every consumer (block-tree
// assembly, validation) switches exhaustively over a fixed set of cases
// rather than dispatching through virtual calls.
type InstructionKind uint8

const (
	InstrSimple InstructionKind = iota
	InstrBlockMarker
	InstrBranch
	InstrCall
	InstrCallIndirect
	InstrData
	InstrMemoryAccess
	InstrConst
	InstrComparison
	InstrArithmetic
	InstrBitwise
	InstrFloat
	InstrConversion
	InstrSelect
	InstrUnsupported
)

// BlockMarker is the payload of a block/loop/if/else/end instruction.
type BlockMarker struct {
	Kind  BlockKind
	Label string
	Sig   InputOutput
}

// BranchInstr is the payload of br/br_if/br_table.
type BranchInstr struct {
	Conditional bool // br_if
	Default     string
	Others      []string // br_table's additional targets; nil for br/br_if
}

// DataInstr is the payload of the local/global/memory-size accessor family.
type DataInstr struct {
	Kind   DataKind
	Target string
}

// MemoryAccess is the payload of a load/store instruction.
type MemoryAccess struct {
	Type   ValueType
	Store  bool
	Width  ByteWidth
	Signed bool // meaningful only for sub-width loads (load8_s, load16_u, ...)
	Offset uint32
	Align  uint32
}

// ComparisonInstr is the payload of a comparison instruction.
type ComparisonInstr struct {
	Op   ComparisonOp
	Type ValueType
}

// ArithmeticInstr is the payload of an arithmetic instruction.
type ArithmeticInstr struct {
	Op   ArithmeticOp
	Type ValueType
}

// BitwiseInstr is the payload of an integer bitwise instruction.
type BitwiseInstr struct {
	Op   BitwiseOp
	Type ValueType
}

// FloatInstr is the payload of a float-only unary/binary instruction.
type FloatInstr struct {
	Op   FloatOp
	Type ValueType
}

// Instruction is one normalized, closed-catalog operation. Kind selects
// which payload field is meaningful; all others are zero.
type Instruction struct {
	Kind InstructionKind
	Pos  int

	Simple       SimpleKind
	Block        BlockMarker
	Branch       BranchInstr
	CallTarget   string
	CallIndirect InputOutput
	Data         DataInstr
	Memory       MemoryAccess
	Const        SerializedNumber
	Comparison   ComparisonInstr
	Arithmetic   ArithmeticInstr
	Bitwise      BitwiseInstr
	Float        FloatInstr
	Conversion   ConversionKind
	Unsupported  string
}

func parseValueType(s string, pos int) (ValueType, *diag.Error) {
	switch s {
	case "i32":
		return I32, nil
	case "i64":
		return I64, nil
	case "f32":
		return F32, nil
	case "f64":
		return F64, nil
	case "v128":
		return 0, diag.NewAt(diag.Unimplemented, pos, "SIMD (v128) is not supported")
	case "funcref", "externref":
		return 0, diag.NewAt(diag.Unimplemented, pos, "reference type %s is not supported", s)
	default:
		return 0, diag.NewAt(diag.Parsing, pos, "unknown value type %q", s)
	}
}

func toInputOutput(sig watast.Signature, pos int) (InputOutput, *diag.Error) {
	var out InputOutput
	out.TypeID = sig.TypeUse
	for _, param := range sig.Params {
		t, err := parseValueType(param.Type, pos)
		if err != nil {
			return InputOutput{}, err
		}
		out.Inputs = append(out.Inputs, NamedValueType{Name: param.ID, Type: t})
	}
	for _, r := range sig.Results {
		t, err := parseValueType(r, pos)
		if err != nil {
			return InputOutput{}, err
		}
		out.Outputs = append(out.Outputs, t)
	}
	return out, nil
}

var blockKindByOp = map[string]BlockKind{
	"block": BlockMarkerBlock,
	"loop":  BlockMarkerLoop,
	"if":    BlockMarkerIf,
	"else":  BlockMarkerElse,
	"end":   BlockMarkerEnd,
}

var dataKindByOp = map[string]DataKind{
	"local.get":    GetLocal,
	"local.set":    SetLocal,
	"local.tee":    TeeLocal,
	"global.get":   GetGlobal,
	"global.set":   SetGlobal,
	"memory.size":  GetMemorySize,
	"memory.grow":  GrowMemory,
}

var comparisonSuffixes = map[string]ComparisonOp{
	"eqz": CmpEqualZero, "eq": CmpEqual, "ne": CmpNotEqual,
	"lt_s": CmpLessThanSigned, "lt_u": CmpLessThanUnsigned,
	"gt_s": CmpGreaterThanSigned, "gt_u": CmpGreaterThanUnsigned,
	"le_s": CmpLessOrEqualSigned, "le_u": CmpLessOrEqualUnsigned,
	"ge_s": CmpGreaterOrEqualSigned, "ge_u": CmpGreaterOrEqualUnsigned,
	// float comparisons carry no sign suffix; they reuse the signed tag.
	"lt": CmpLessThanSigned, "gt": CmpGreaterThanSigned,
	"le": CmpLessOrEqualSigned, "ge": CmpGreaterOrEqualSigned,
}

var arithmeticSuffixes = map[string]ArithmeticOp{
	"add": ArithAdd, "sub": ArithSub, "mul": ArithMul,
	"div_s": ArithDivSigned, "div_u": ArithDivUnsigned,
	"rem_s": ArithRemSigned, "rem_u": ArithRemUnsigned,
	"div": ArithDivSigned, // float division has no sign variant
}

var bitwiseSuffixes = map[string]BitwiseOp{
	"clz": BitCountLeadingZero, "ctz": BitCountTrailingZero, "popcnt": BitCountNonZero,
	"and": BitAnd, "or": BitOr, "xor": BitXor,
	"shl": BitShiftLeft, "shr_s": BitShiftRightSigned, "shr_u": BitShiftRightUnsigned,
	"rotl": BitRotateLeft, "rotr": BitRotateRight,
}

var floatSuffixes = map[string]FloatOp{
	"abs": FloatAbs, "neg": FloatNeg, "ceil": FloatCeil, "floor": FloatFloor,
	"trunc": FloatTrunc, "nearest": FloatNearest, "sqrt": FloatSqrt,
	"min": FloatMin, "max": FloatMax, "copysign": FloatCopySign,
}

var conversionByMnemonic = map[string]ConversionKind{
	"i32.wrap_i64":         ConvWrapInt,
	"i32.trunc_f32_s":      ConvSignedTruncF32ToI32,
	"i32.trunc_f32_u":      ConvUnsignedTruncF32ToI32,
	"i32.trunc_f64_s":      ConvSignedTruncF64ToI32,
	"i32.trunc_f64_u":      ConvUnsignedTruncF64ToI32,
	"i64.trunc_f32_s":      ConvSignedTruncF32ToI64,
	"i64.trunc_f32_u":      ConvUnsignedTruncF32ToI64,
	"i64.trunc_f64_s":      ConvSignedTruncF64ToI64,
	"i64.trunc_f64_u":      ConvUnsignedTruncF64ToI64,
	"i64.extend_i32_s":     ConvSignedExtend,
	"i64.extend_i32_u":     ConvUnsignedExtend,
	"f32.convert_i32_s":    ConvSignedConvertI32ToF32,
	"f32.convert_i32_u":    ConvUnsignedConvertI32ToF32,
	"f32.convert_i64_s":    ConvSignedConvertI64ToF32,
	"f32.convert_i64_u":    ConvUnsignedConvertI64ToF32,
	"f64.convert_i32_s":    ConvSignedConvertI32ToF64,
	"f64.convert_i32_u":    ConvUnsignedConvertI32ToF64,
	"f64.convert_i64_s":    ConvSignedConvertI64ToF64,
	"f64.convert_i64_u":    ConvUnsignedConvertI64ToF64,
	"f32.demote_f64":       ConvDemoteFloat,
	"f64.promote_f32":      ConvPromoteFloat,
	"i32.reinterpret_f32":  ConvReinterpret32FToI,
	"f32.reinterpret_i32":  ConvReinterpret32IToF,
	"i64.reinterpret_f64":  ConvReinterpret64FToI,
	"f64.reinterpret_i64":  ConvReinterpret64IToF,
}

// Lower normalizes one watast.Instr into its closed-catalog Instruction.
// Unrecognized opcodes (tables, SIMD, atomics, GC, reference types)
// become InstrUnsupported rather than failing outright,
// so a module using them can still be assembled and diagnosed cleanly at
// validation time.
func Lower(in watast.Instr) (Instruction, *diag.Error) {
	pos := in.Pos
	logger.Printf("lowering opcode %q at byte offset %d", in.Op, pos)
	switch in.Op {
	case "unreachable":
		return Instruction{Kind: InstrSimple, Pos: pos, Simple: Unreachable}, nil
	case "nop":
		return Instruction{Kind: InstrSimple, Pos: pos, Simple: Nop}, nil
	case "drop":
		return Instruction{Kind: InstrSimple, Pos: pos, Simple: Drop}, nil
	case "return":
		return Instruction{Kind: InstrSimple, Pos: pos, Simple: Return}, nil
	case "select":
		return Instruction{Kind: InstrSelect, Pos: pos}, nil

	case "block", "loop", "if", "else", "end":
		sig, err := toInputOutput(in.Sig, pos)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Kind: InstrBlockMarker, Pos: pos, Block: BlockMarker{
			Kind: blockKindByOp[in.Op], Label: in.Label, Sig: sig,
		}}, nil

	case "br":
		return Instruction{Kind: InstrBranch, Pos: pos, Branch: BranchInstr{Default: in.DefaultTarget}}, nil
	case "br_if":
		return Instruction{Kind: InstrBranch, Pos: pos, Branch: BranchInstr{Conditional: true, Default: in.DefaultTarget}}, nil
	case "br_table":
		return Instruction{Kind: InstrBranch, Pos: pos, Branch: BranchInstr{
			Default: in.DefaultTarget, Others: in.OtherTargets,
		}}, nil

	case "call":
		return Instruction{Kind: InstrCall, Pos: pos, CallTarget: in.Target}, nil
	case "call_indirect":
		sig, err := toInputOutput(in.CallSig, pos)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Kind: InstrCallIndirect, Pos: pos, CallIndirect: sig}, nil

	case "local.get", "local.set", "local.tee", "global.get", "global.set", "memory.size", "memory.grow":
		return Instruction{Kind: InstrData, Pos: pos, Data: DataInstr{
			Kind: dataKindByOp[in.Op], Target: in.Target,
		}}, nil

	case "i32.const":
		return Instruction{Kind: InstrConst, Pos: pos, Const: NewSerializedI32(in.I32Value)}, nil
	case "i64.const":
		return Instruction{Kind: InstrConst, Pos: pos, Const: NewSerializedI64(in.I64Value)}, nil
	case "f32.const":
		return Instruction{Kind: InstrConst, Pos: pos, Const: NewSerializedF32(in.F32Bits)}, nil
	case "f64.const":
		return Instruction{Kind: InstrConst, Pos: pos, Const: NewSerializedF64(in.F64Bits)}, nil
	}

	if strings.Contains(in.Op, "load") || strings.Contains(in.Op, "store") {
		return lowerMemoryAccess(in)
	}
	if kind, ok := conversionByMnemonic[in.Op]; ok {
		return Instruction{Kind: InstrConversion, Pos: pos, Conversion: kind}, nil
	}

	typ, ok := primaryTypeOf(in.Op)
	if !ok {
		logger.Printf("opcode %q has no primary type, marking unsupported", in.Op)
		return Instruction{Kind: InstrUnsupported, Pos: pos, Unsupported: in.Op}, nil
	}
	suffix := in.Op[strings.IndexByte(in.Op, '.')+1:]

	if op, ok := comparisonSuffixes[suffix]; ok && typ.IsInteger() {
		return Instruction{Kind: InstrComparison, Pos: pos, Comparison: ComparisonInstr{Op: op, Type: typ}}, nil
	}
	if op, ok := comparisonSuffixes[suffix]; ok && typ.IsFloat() && suffix != "eqz" {
		return Instruction{Kind: InstrComparison, Pos: pos, Comparison: ComparisonInstr{Op: op, Type: typ}}, nil
	}
	if op, ok := arithmeticSuffixes[suffix]; ok && typ.IsInteger() {
		return Instruction{Kind: InstrArithmetic, Pos: pos, Arithmetic: ArithmeticInstr{Op: op, Type: typ}}, nil
	}
	if op, ok := arithmeticSuffixes[suffix]; ok && typ.IsFloat() && (suffix == "add" || suffix == "sub" || suffix == "mul" || suffix == "div") {
		return Instruction{Kind: InstrArithmetic, Pos: pos, Arithmetic: ArithmeticInstr{Op: op, Type: typ}}, nil
	}
	if op, ok := bitwiseSuffixes[suffix]; ok && typ.IsInteger() {
		return Instruction{Kind: InstrBitwise, Pos: pos, Bitwise: BitwiseInstr{Op: op, Type: typ}}, nil
	}
	if op, ok := floatSuffixes[suffix]; ok && typ.IsFloat() {
		return Instruction{Kind: InstrFloat, Pos: pos, Float: FloatInstr{Op: op, Type: typ}}, nil
	}

	logger.Printf("opcode %q matched no dispatch table, marking unsupported", in.Op)
	return Instruction{Kind: InstrUnsupported, Pos: pos, Unsupported: in.Op}, nil
}

func lowerMemoryAccess(in watast.Instr) (Instruction, *diag.Error) {
	typ, ok := primaryTypeOf(in.Op)
	if !ok {
		return Instruction{}, diag.NewAt(diag.Parsing, in.Pos, "malformed memory instruction %q", in.Op)
	}
	if typ == V128 || strings.Contains(in.Op, ".atomic.") {
		return Instruction{Kind: InstrUnsupported, Pos: in.Pos, Unsupported: in.Op}, nil
	}
	signed := strings.HasSuffix(in.Op, "_s")
	return Instruction{
		Kind: InstrMemoryAccess,
		Pos:  in.Pos,
		Memory: MemoryAccess{
			Type:   typ,
			Store:  isStore(in.Op),
			Width:  memoryAccessWidth(in.Op),
			Signed: signed,
			Offset: in.Mem.Offset,
			Align:  in.Mem.Align,
		},
	}, nil
}
