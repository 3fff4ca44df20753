// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"fmt"
	"math/bits"
)

// Validate checks the Header against the safetensors rules:
//
//   - ByteBufferOffset must not be negative
//   - each TensorMap key must match Tensor.Name, and must not be the
//     reserved metadata key
//   - the DataOffsets of all tensors, sorted, must cover a contiguous area
//     of the byte-buffer starting at offset 0, without overlaps
//   - each DType must be valid and each Shape free of negative values
//   - the size of each DataOffsets range must equal the number of elements
//     times the DType size, with no int overflow along the way
func (h Header) Validate() error {
	if h.ByteBufferOffset < 0 {
		return fmt.Errorf("invalid byte-buffer offset negative value %d", h.ByteBufferOffset)
	}
	for k, t := range h.Tensors {
		if k != t.Name {
			return fmt.Errorf("tensor names mismatch: TensorMap key %q, Tensor.Name %q", k, t.Name)
		}
		if k == metadataKey {
			return fmt.Errorf("tensor name %q is reserved", k)
		}
	}

	expectedBegin := 0
	for _, t := range h.Tensors.ByOffset() {
		if err := validateTensor(t, expectedBegin); err != nil {
			return fmt.Errorf("invalid tensor %q: %w", t.Name, err)
		}
		expectedBegin = t.DataOffsets.End
	}
	return nil
}

// DataLen returns the size in bytes of the byte-buffer described by a
// valid Header.
func (h Header) DataLen() int {
	end := 0
	for _, t := range h.Tensors {
		end = max(end, t.DataOffsets.End)
	}
	return end
}

func validateTensor(t Tensor, expectedBegin int) error {
	if t.DataOffsets.Begin != expectedBegin {
		return fmt.Errorf("expected data-offsets begin %d, actual %d", expectedBegin, t.DataOffsets.Begin)
	}
	if t.DataOffsets.End < t.DataOffsets.Begin {
		return fmt.Errorf("expected data-offsets end >= %d (begin), actual %d", t.DataOffsets.Begin, t.DataOffsets.End)
	}
	if err := t.DType.Validate(); err != nil {
		return err
	}
	n, err := t.Shape.NumElements()
	if err != nil {
		return err
	}
	hi, byteSize := bits.Mul(uint(n), uint(t.DType.Size()))
	if hi != 0 || byteSize > maxInt {
		return fmt.Errorf("int overflow computing tensor byte size from shape")
	}
	if int(byteSize) != t.DataOffsets.Len() {
		return fmt.Errorf("byte size computed from shape (%d) differs from data-offsets size (%d)", byteSize, t.DataOffsets.Len())
	}
	return nil
}
