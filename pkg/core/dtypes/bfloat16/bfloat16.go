// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bfloat16 implements the bfloat16 storage type: the upper 16 bits of an IEEE 754 float32.
//
// Conversions from float32 round to nearest, ties to even, and keep NaNs quiet.
package bfloat16

import (
	"math"
	"strconv"
)

// BFloat16 holds 1 sign bit, 8 exponent bits and 7 mantissa bits.
type BFloat16 uint16

// Float32 widens f to a float32. It is exact.
func (f BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(f) << 16)
}

// FromFloat32 converts x, rounding to the nearest representable value (ties to even).
func FromFloat32(x float32) BFloat16 {
	bits := math.Float32bits(x)
	if bits&0x7fffffff > 0x7f800000 {
		// NaN: truncate and force the quiet bit, so the payload can't turn into an Inf.
		return BFloat16(bits>>16 | 0x0040)
	}
	lsb := (bits >> 16) & 1
	bits += 0x7fff + lsb
	return BFloat16(bits >> 16)
}

// FromFloat64 converts x through float32.
func FromFloat64(x float64) BFloat16 {
	return FromFloat32(float32(x))
}

// FromBits reinterprets bits as a BFloat16.
func FromBits(bits uint16) BFloat16 {
	return BFloat16(bits)
}

// Bits returns the raw representation of f.
func (f BFloat16) Bits() uint16 {
	return uint16(f)
}

// IsNaN reports whether f is a NaN.
func (f BFloat16) IsNaN() bool {
	return f&0x7fff > 0x7f80
}

// String implements fmt.Stringer.
func (f BFloat16) String() string {
	return strconv.FormatFloat(float64(f.Float32()), 'g', -1, 32)
}

// Inf returns positive infinity if sign >= 0, negative infinity otherwise.
func Inf(sign int) BFloat16 {
	if sign >= 0 {
		return BFloat16(0x7f80)
	}
	return BFloat16(0xff80)
}
