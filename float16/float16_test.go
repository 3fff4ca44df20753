// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package float16

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFloat32_Exact(t *testing.T) {
	testCases := []struct {
		value float32
		bits  F16
	}{
		{0, 0x0000},
		{float32(math.Copysign(0, -1)), 0x8000},
		{0.5, 0x3800},
		{1, 0x3c00},
		{-2.25, 0xc080},
		{65504, 0x7bff},
		{-65504, 0xfbff},
		{6.103515625e-05, 0x0400}, // smallest normal
		{5.9604645e-08, 0x0001},   // smallest subnormal
	}
	for _, tc := range testCases {
		h := FromFloat32(tc.value)
		assert.Equal(t, tc.bits, h, "%g", tc.value)
		assert.Equal(t, tc.value, h.Float32(), "%g", tc.value)
	}
}

func TestFromFloat32_Rounding(t *testing.T) {
	testCases := []struct {
		value float32
		bits  F16
	}{
		{0.1, 0x2e66},
		{0.2, 0x3266},
		{0.3, 0x34cd},
		// 1 + 2^-11 is halfway between 1 and 1 + 2^-10: ties to even
		{1 + 1.0/2048, 0x3c00},
		// 1 + 3*2^-11 is halfway between 1 + 2^-10 and 1 + 2^-9: ties to even
		{1 + 3.0/2048, 0x3c02},
		// just above the halfway point rounds up
		{1 + 1.0/2048 + 1.0/65536, 0x3c01},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.bits, FromFloat32(tc.value), "%g", tc.value)
	}
}

func TestFromFloat32_Special(t *testing.T) {
	assert.True(t, FromFloat32(1e6).IsInf(1))
	assert.True(t, FromFloat32(-1e6).IsInf(-1))
	assert.True(t, FromFloat32(65520).IsInf(1), "65520 rounds up past the largest finite value")
	assert.True(t, FromFloat32(float32(math.Inf(1))).IsInf(1))
	assert.True(t, FromFloat32(float32(math.Inf(-1))).IsInf(-1))
	assert.False(t, FromFloat32(65504).IsInf(0))

	nan := FromFloat32(float32(math.NaN()))
	assert.True(t, nan.IsNaN())
	assert.False(t, nan.IsInf(0))
	assert.True(t, math.IsNaN(float64(nan.Float32())))

	assert.Equal(t, F16(0), FromFloat32(1e-10))
	assert.Equal(t, F16(0x8000), FromFloat32(-1e-10))
}

func TestBF16_Float32(t *testing.T) {
	assert.Equal(t, float32(1), BF16(0x3f80).Float32())
	assert.Equal(t, float32(-2), BF16(0xc000).Float32())
	assert.Equal(t, float32(0.5), BF16(0x3f00).Float32())
}

func TestDowncast(t *testing.T) {
	src := []float32{0.5, 1, -2.25, 1e6}
	dst := Downcast(src)
	assert.Equal(t, []F16{0x3800, 0x3c00, 0xc080, 0x7c00}, dst)
	assert.Equal(t, []float32{0.5, 1, -2.25, 1e6}, src, "input must not change")

	assert.Equal(t, []float32{0.5, 1, -2.25, float32(math.Inf(1))}, Upcast(dst))
	assert.Empty(t, Downcast(nil))
}

func TestInspect(t *testing.T) {
	src := []float32{
		0, 0.5, -1,
		1e6, -70000,
		1e-10,
		float32(math.NaN()),
		float32(math.Inf(-1)),
	}
	s := Inspect(src)
	assert.Equal(t, Stats{Overflow: 2, Underflow: 1, NaN: 1, Inf: 1}, s)
	assert.False(t, s.Lossless())
	assert.True(t, Inspect([]float32{0.1, 0.2, 0.3}).Lossless())
}
