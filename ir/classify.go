// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "strings"

// primaryTypeOf returns the dominant numeric type an opcode mnemonic
// operates on, recovered from its name prefix (e.g. "i32.add" -> I32).
// Control, local/global, and memory-size opcodes carry no type of their
// own and return ok=false.
func primaryTypeOf(op string) (ValueType, bool) {
	dot := strings.IndexByte(op, '.')
	prefix := op
	if dot >= 0 {
		prefix = op[:dot]
	}
	switch prefix {
	case "i32":
		return I32, true
	case "i64":
		return I64, true
	case "f32":
		return F32, true
	case "f64":
		return F64, true
	case "v128":
		return V128, true
	default:
		return 0, false
	}
}

// is64Bit lifts the bit-width distinction out of an opcode mnemonic:
// true when the opcode's primary type is the 64-bit member of its domain
// (i64 or f64). The normalized Bitwise and Float variants carry their
// full ValueType, so Lower does not call it.
func is64Bit(op string) bool {
	t, ok := primaryTypeOf(op)
	return ok && t.Is64()
}

// memoryAccessWidth classifies a load/store opcode's access width:
// *Load8*/*Store8 -> 8 bits, *Load16*/*Store16 -> 16 bits,
// i32.load/i32.store/*Load32*/*Store32/f32.load/f32.store -> 32 bits,
// i64.load/i64.store/f64.load/f64.store -> 64 bits.
func memoryAccessWidth(op string) ByteWidth {
	switch {
	case strings.Contains(op, "8"):
		return Bits8
	case strings.Contains(op, "16"):
		return Bits16
	case op == "i32.load" || op == "i32.store" || strings.Contains(op, "32") ||
		op == "f32.load" || op == "f32.store":
		return Bits32
	default:
		return Bits64
	}
}

// isStore reports whether a memory-access opcode mnemonic is a store
// (vs. a load).
func isStore(op string) bool {
	return strings.Contains(op, "store")
}
