// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watast

import (
	"math"
	"strconv"
	"strings"
)

// parseF32 parses a WAT floating-point literal (decimal, hex-float, or
// the nan/inf keyword forms) into its IEEE-754 bit pattern.
func parseF32(text string) (uint32, error) {
	bits, err := parseFloatBits(text, 32)
	if err != nil {
		return 0, err
	}
	return uint32(bits), nil
}

// parseF64 is parseF32's 64-bit counterpart.
func parseF64(text string) (uint64, error) {
	return parseFloatBits(text, 64)
}

func parseFloatBits(text string, size int) (uint64, error) {
	s := text
	neg := false
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	}

	switch s {
	case "nan":
		if size == 32 {
			bits := uint64(math.Float32bits(float32(math.NaN())))
			return signBit(bits, neg, size), nil
		}
		return signBit(math.Float64bits(math.NaN()), neg, size), nil
	case "inf":
		if size == 32 {
			return signBit(uint64(math.Float32bits(float32(math.Inf(1)))), neg, size), nil
		}
		return signBit(math.Float64bits(math.Inf(1)), neg, size), nil
	}
	if strings.HasPrefix(s, "nan:0x") || strings.HasPrefix(s, "nan:") {
		payload := strings.TrimPrefix(strings.TrimPrefix(s, "nan:0x"), "nan:")
		v, err := strconv.ParseUint(payload, 16, 64)
		if err != nil {
			return 0, err
		}
		if size == 32 {
			bits := uint64(0x7f800000 | (uint32(v) & 0x7fffff))
			return signBit(bits, neg, size), nil
		}
		bits := uint64(0x7ff0000000000000) | (v & 0xfffffffffffff)
		return signBit(bits, neg, size), nil
	}

	f, err := strconv.ParseFloat(s, size)
	if err != nil {
		return 0, err
	}
	if neg {
		f = -f
	}
	if size == 32 {
		return uint64(math.Float32bits(float32(f))), nil
	}
	return math.Float64bits(f), nil
}

func signBit(bits uint64, neg bool, size int) uint64 {
	if !neg {
		return bits
	}
	if size == 32 {
		return bits | 0x80000000
	}
	return bits | 0x8000000000000000
}
