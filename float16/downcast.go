// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package float16

import "math"

// Downcast converts every value of src to binary16 into a newly
// allocated slice of the same length. src is not modified.
func Downcast(src []float32) []F16 {
	dst := make([]F16, len(src))
	for i, v := range src {
		dst[i] = FromFloat32(v)
	}
	return dst
}

// Upcast widens every value of src to float32.
func Upcast(src []F16) []float32 {
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = v.Float32()
	}
	return dst
}

// Stats counts the values of a float32 buffer that binary16 cannot hold.
type Stats struct {
	// Overflow counts finite values that saturate to infinity.
	Overflow int
	// Underflow counts non-zero values that are flushed to zero.
	Underflow int
	// NaN counts NaN inputs.
	NaN int
	// Inf counts infinite inputs.
	Inf int
}

// Lossless reports whether no value saturated, flushed or was non-finite.
func (s Stats) Lossless() bool {
	return s == Stats{}
}

// Inspect reports how the downcast of src would treat special values.
func Inspect(src []float32) Stats {
	var s Stats
	for _, v := range src {
		switch {
		case v != v:
			s.NaN++
		case math.IsInf(float64(v), 0):
			s.Inf++
		default:
			h := FromFloat32(v)
			switch {
			case h.IsInf(0):
				s.Overflow++
			case v != 0 && h&0x7fff == 0:
				s.Underflow++
			}
		}
	}
	return s
}
