// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// This file holds the closed tag enumerations used throughout the
// normalized instruction set: each Go enum here reproduces a fixed,
// closed member set rather than leaving room for open-ended growth.

// SimpleKind enumerates the zero-operand-signature control instructions.
type SimpleKind uint8

const (
	Unreachable SimpleKind = iota
	Nop
	Drop
	Return
)

func (k SimpleKind) String() string {
	return [...]string{"unreachable", "nop", "drop", "return"}[k]
}

// BlockKind enumerates the structured control-flow markers.
type BlockKind uint8

const (
	BlockMarkerBlock BlockKind = iota
	BlockMarkerLoop
	BlockMarkerIf
	BlockMarkerElse
	BlockMarkerEnd
)

func (k BlockKind) String() string {
	return [...]string{"block", "loop", "if", "else", "end"}[k]
}

// ByteWidth enumerates the memory-access widths, independent of value type.
type ByteWidth uint8

const (
	Bits8 ByteWidth = iota
	Bits16
	Bits32
	Bits64
)

func (w ByteWidth) String() string {
	return [...]string{"8", "16", "32", "64"}[w]
}

// ByteWidthFromAlignment maps a declared alignment (in bytes) to the
// nearest ByteWidth.
func ByteWidthFromAlignment(alignment uint32) ByteWidth {
	switch alignment {
	case 1:
		return Bits8
	case 2:
		return Bits16
	case 4:
		return Bits32
	default:
		return Bits64
	}
}

// ComparisonOp enumerates the comparison operator family.
type ComparisonOp uint8

const (
	CmpEqualZero ComparisonOp = iota
	CmpEqual
	CmpNotEqual
	CmpLessThanSigned
	CmpLessThanUnsigned
	CmpGreaterThanSigned
	CmpGreaterThanUnsigned
	CmpLessOrEqualSigned
	CmpLessOrEqualUnsigned
	CmpGreaterOrEqualSigned
	CmpGreaterOrEqualUnsigned
)

func (o ComparisonOp) String() string {
	return [...]string{
		"eqz", "eq", "ne",
		"lt_s", "lt_u", "gt_s", "gt_u",
		"le_s", "le_u", "ge_s", "ge_u",
	}[o]
}

// ArithmeticOp enumerates the arithmetic operator family.
type ArithmeticOp uint8

const (
	ArithAdd ArithmeticOp = iota
	ArithSub
	ArithMul
	ArithDivSigned
	ArithDivUnsigned
	ArithRemSigned
	ArithRemUnsigned
)

func (o ArithmeticOp) String() string {
	return [...]string{"add", "sub", "mul", "div_s", "div_u", "rem_s", "rem_u"}[o]
}

// BitwiseOp enumerates the integer bitwise operator family.
type BitwiseOp uint8

const (
	BitCountLeadingZero BitwiseOp = iota
	BitCountTrailingZero
	BitCountNonZero
	BitAnd
	BitOr
	BitXor
	BitShiftLeft
	BitShiftRightSigned
	BitShiftRightUnsigned
	BitRotateLeft
	BitRotateRight
)

func (o BitwiseOp) String() string {
	return [...]string{
		"clz", "ctz", "popcnt",
		"and", "or", "xor",
		"shl", "shr_s", "shr_u", "rotl", "rotr",
	}[o]
}

// IsUnary reports whether o consumes exactly one operand (the counting
// operators); all others are binary.
func (o BitwiseOp) IsUnary() bool {
	return o == BitCountLeadingZero || o == BitCountTrailingZero || o == BitCountNonZero
}

// FloatOp enumerates the floating-point-only operator family.
type FloatOp uint8

const (
	FloatAbs FloatOp = iota
	FloatNeg
	FloatCeil
	FloatFloor
	FloatTrunc
	FloatNearest
	FloatSqrt
	FloatMin
	FloatMax
	FloatCopySign
)

func (o FloatOp) String() string {
	return [...]string{
		"abs", "neg", "ceil", "floor", "trunc", "nearest", "sqrt",
		"min", "max", "copysign",
	}[o]
}

// IsUnary reports whether o consumes exactly one operand; Minimum,
// Maximum, and CopySign consume two.
func (o FloatOp) IsUnary() bool {
	return o != FloatMin && o != FloatMax && o != FloatCopySign
}

// ConversionKind enumerates every concrete numeric conversion; the tag
// alone determines both source and result types (see Signature below).
type ConversionKind uint8

const (
	ConvWrapInt ConversionKind = iota
	ConvSignedTruncF32ToI32
	ConvUnsignedTruncF32ToI32
	ConvSignedTruncF64ToI32
	ConvUnsignedTruncF64ToI32
	ConvSignedTruncF32ToI64
	ConvUnsignedTruncF32ToI64
	ConvSignedTruncF64ToI64
	ConvUnsignedTruncF64ToI64
	ConvSignedExtend
	ConvUnsignedExtend
	ConvSignedConvertI32ToF32
	ConvUnsignedConvertI32ToF32
	ConvSignedConvertI64ToF32
	ConvUnsignedConvertI64ToF32
	ConvSignedConvertI32ToF64
	ConvUnsignedConvertI32ToF64
	ConvSignedConvertI64ToF64
	ConvUnsignedConvertI64ToF64
	ConvDemoteFloat
	ConvPromoteFloat
	ConvReinterpret32FToI
	ConvReinterpret32IToF
	ConvReinterpret64FToI
	ConvReinterpret64IToF
)

// Signature returns the fixed (source, target) value types for k.
func (k ConversionKind) Signature() (from, to ValueType) {
	switch k {
	case ConvWrapInt:
		return I64, I32
	case ConvSignedTruncF32ToI32, ConvUnsignedTruncF32ToI32, ConvReinterpret32FToI:
		return F32, I32
	case ConvSignedTruncF64ToI32, ConvUnsignedTruncF64ToI32:
		return F64, I32
	case ConvSignedTruncF32ToI64, ConvUnsignedTruncF32ToI64:
		return F32, I64
	case ConvSignedTruncF64ToI64, ConvUnsignedTruncF64ToI64, ConvReinterpret64FToI:
		return F64, I64
	case ConvSignedExtend, ConvUnsignedExtend:
		return I32, I64
	case ConvSignedConvertI32ToF32, ConvUnsignedConvertI32ToF32, ConvReinterpret32IToF:
		return I32, F32
	case ConvSignedConvertI64ToF32, ConvUnsignedConvertI64ToF32:
		return I64, F32
	case ConvSignedConvertI32ToF64, ConvUnsignedConvertI32ToF64:
		return I32, F64
	case ConvSignedConvertI64ToF64, ConvUnsignedConvertI64ToF64, ConvReinterpret64IToF:
		return I64, F64
	case ConvDemoteFloat:
		return F64, F32
	case ConvPromoteFloat:
		return F32, F64
	default:
		panic("ir: unhandled ConversionKind in Signature")
	}
}

// DataKind enumerates the local/global/memory-size accessor family.
type DataKind uint8

const (
	GetLocal DataKind = iota
	SetLocal
	TeeLocal
	GetGlobal
	SetGlobal
	GetMemorySize
	GrowMemory
)

func (k DataKind) String() string {
	return [...]string{
		"local.get", "local.set", "local.tee",
		"global.get", "global.set",
		"memory.size", "memory.grow",
	}[k]
}

// ExportKind enumerates the categories an export can target.
type ExportKind uint8

const (
	ExportFunction ExportKind = iota
	ExportGlobal
	ExportMemory
)

func (k ExportKind) String() string {
	return [...]string{"function", "global", "memory"}[k]
}
