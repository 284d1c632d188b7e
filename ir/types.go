// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir defines the normalized, language-neutral WebAssembly module
// representation and the lowering that produces it from a parser AST:
// the closed type/operator catalog (§3), per-opcode instruction lowering
// (§4.1), block-tree assembly (§4.2), and module assembly (§4.3).
package ir

import "fmt"

// ValueType is one of the WebAssembly numeric value types this module
// models. Reference types (funcref, externref) named in a global, local,
// or parameter declaration are rejected as Unimplemented by
// parseValueType (instruction.go); in an anonymous param, local, or result
// list the parser does not take them as value types and reports a
// Parsing error.
type ValueType uint8

const (
	I32 ValueType = iota
	I64
	F32
	F64
	V128
)

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	default:
		return fmt.Sprintf("<unknown value type %d>", uint8(t))
	}
}

// Is64 reports whether t occupies a 64-bit slot (i64/f64).
func (t ValueType) Is64() bool {
	return t == I64 || t == F64
}

// IsInteger reports whether t is one of the integer types.
func (t ValueType) IsInteger() bool {
	return t == I32 || t == I64
}

// IsFloat reports whether t is one of the floating-point types.
func (t ValueType) IsFloat() bool {
	return t == F32 || t == F64
}

// NamedValueType pairs a value type with an optional symbolic identifier,
// used for function parameters, locals, and InputOutput list entries.
type NamedValueType struct {
	Name string // "" when absent
	Type ValueType
}

// InputOutput is a function or block signature: an optional type-index
// identifier, an ordered list of (optional-identifier, type) inputs, and
// an ordered list of output types.
//
// Invariant: identifiers, when present, are unique within Inputs.
type InputOutput struct {
	TypeID  string
	Inputs  []NamedValueType
	Outputs []ValueType
}

func (sig InputOutput) String() string {
	return fmt.Sprintf("<func %v -> %v>", sig.Inputs, sig.Outputs)
}

// ParamTypes returns the bare value types of the signature's inputs, in
// order, discarding identifiers.
func (sig InputOutput) ParamTypes() []ValueType {
	out := make([]ValueType, len(sig.Inputs))
	for i, p := range sig.Inputs {
		out[i] = p.Type
	}
	return out
}

// SameSignature reports whether sig and other have structurally equal
// input and output type lists (identifiers are ignored).
func (sig InputOutput) SameSignature(other InputOutput) bool {
	return sameTypes(sig.ParamTypes(), other.ParamTypes()) && sameTypes(sig.Outputs, other.Outputs)
}

func sameTypes(a, b []ValueType) bool {
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

// SerializedNumber is a type-tagged byte container for a numeric
// constant: the first 4 bytes, big-endian, and (for 64-bit types) an
// additional 4 big-endian bytes.
type SerializedNumber struct {
	Type   ValueType
	First  [4]byte
	Second *[4]byte // nil for 32-bit types
}

// NewSerializedI32 packs a signed 32-bit int as an I32 SerializedNumber.
func NewSerializedI32(v int32) SerializedNumber {
	return SerializedNumber{Type: I32, First: be32(uint32(v))}
}

// NewSerializedI64 packs a signed 64-bit int as an I64 SerializedNumber.
func NewSerializedI64(v int64) SerializedNumber {
	first, second := be64(uint64(v))
	return SerializedNumber{Type: I64, First: first, Second: &second}
}

// NewSerializedF32 packs an f32 bit pattern as an F32 SerializedNumber.
func NewSerializedF32(bits uint32) SerializedNumber {
	return SerializedNumber{Type: F32, First: be32(bits)}
}

// NewSerializedF64 packs an f64 bit pattern as an F64 SerializedNumber.
//
// A prior implementation of this encoding tagged the f64 branch of its
// equivalent constructor as I64 and serialized the bits in native rather
// than big-endian order; that was a bug, and this implementation always
// uses the declared F64 tag and big-endian bytes.
func NewSerializedF64(bits uint64) SerializedNumber {
	first, second := be64(bits)
	return SerializedNumber{Type: F64, First: first, Second: &second}
}

func be32(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func be64(v uint64) (first, second [4]byte) {
	first = be32(uint32(v >> 32))
	second = be32(uint32(v))
	return
}

// AsU32 narrows a SerializedNumber to a uint32, as used when const-folding
// a memory/data offset expression. It fails if the value does not fit
// (for a 64-bit value, any non-zero byte in its high 4 bytes, First).
func (n SerializedNumber) AsU32() (uint32, bool) {
	low := n.First
	if n.Second != nil {
		for _, b := range n.First {
			if b != 0 {
				return 0, false
			}
		}
		low = *n.Second
	}
	return uint32(low[0])<<24 | uint32(low[1])<<16 | uint32(low[2])<<8 | uint32(low[3]), true
}
