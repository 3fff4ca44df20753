// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/nlpodyssey/cnnexport/dtype"
	"github.com/nlpodyssey/cnnexport/float16"
	"github.com/nlpodyssey/cnnexport/header"
)

func readFloat32Data(ht header.Tensor, r io.Reader) ([]float32, error) {
	size := ht.DataOffsets.Len() / ht.DType.Size()
	br := bufio.NewReader(r)

	switch ht.DType {
	case dtype.F32:
		return readData(br, size, 4, func(b []byte) float32 {
			return math.Float32frombits(
				uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		})
	case dtype.F16:
		return readData(br, size, 2, func(b []byte) float32 {
			return float16.F16(uint16(b[0]) | uint16(b[1])<<8).Float32()
		})
	case dtype.BF16:
		return readData(br, size, 2, func(b []byte) float32 {
			return float16.BF16(uint16(b[0]) | uint16(b[1])<<8).Float32()
		})
	case dtype.F64:
		return readData(br, size, 8, func(b []byte) float32 {
			return float32(math.Float64frombits(
				uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
					uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56))
		})
	}
	return nil, fmt.Errorf("%w %s", ErrUnsupportedDType, ht.DType)
}

// readData reads size little-endian elements of width bytes each.
func readData(r io.Reader, size, width int, conv func([]byte) float32) ([]float32, error) {
	var a [8]byte
	b := a[:width]

	out := make([]float32, size)
	for i := range out {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		out[i] = conv(b)
	}
	return out, nil
}
