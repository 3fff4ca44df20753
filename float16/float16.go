// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package float16 provides the 16-bit floating point formats used for
// checkpoint input (F16, BF16) and for exported artifacts (F16).
package float16

import (
	"math"

	half "github.com/x448/float16"
)

// F16 is an IEEE 754 binary16 value, represented as raw bits.
type F16 uint16

// BF16 is a 16-bit brain floating-point value, represented as raw bits.
type BF16 uint16

// FromFloat32 converts f to binary16, rounding to nearest with ties to even.
// Magnitudes beyond the largest finite binary16 value become signed
// infinity, and NaN stays NaN.
func FromFloat32(f float32) F16 {
	return F16(half.Fromfloat32(f).Bits())
}

// Float32 returns the exact float32 value of h.
func (h F16) Float32() float32 {
	return half.Frombits(uint16(h)).Float32()
}

// IsNaN reports whether h is a NaN.
func (h F16) IsNaN() bool {
	return half.Frombits(uint16(h)).IsNaN()
}

// IsInf reports whether h is an infinity, according to sign.
// If sign > 0, IsInf reports whether h is positive infinity.
// If sign < 0, IsInf reports whether h is negative infinity.
// If sign == 0, IsInf reports whether h is either infinity.
func (h F16) IsInf(sign int) bool {
	return half.Frombits(uint16(h)).IsInf(sign)
}

// Float32 returns the float32 value of b, which is always exact.
func (b BF16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}
