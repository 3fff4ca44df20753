// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/nlpodyssey/cnnexport"
	"github.com/nlpodyssey/cnnexport/dtype"
	"github.com/nlpodyssey/cnnexport/header"
)

// Write serializes the given tensors and additional metadata to
// safetensors format, storing every tensor as F32 in the given order.
func Write(w io.Writer, tensors []cnnexport.Tensor, metadata map[string]string) error {
	head := header.Header{
		Tensors:  make(header.TensorMap, len(tensors)),
		Metadata: metadata,
	}
	offset := 0
	for _, t := range tensors {
		if _, ok := head.Tensors[t.Name()]; ok {
			return fmt.Errorf("duplicate tensor name %q", t.Name())
		}
		end := offset + t.Len()*dtype.F32.Size()
		head.Tensors[t.Name()] = header.Tensor{
			Name:        t.Name(),
			DType:       dtype.F32,
			Shape:       t.Shape(),
			DataOffsets: header.DataOffsets{Begin: offset, End: end},
		}
		offset = end
	}

	bw := bufio.NewWriter(w)
	if _, err := header.Write(bw, head); err != nil {
		return err
	}
	for _, t := range tensors {
		if err := writeF32Data(bw, t.Data()); err != nil {
			return fmt.Errorf("failed to write data of tensor %q: %w", t.Name(), err)
		}
	}
	return bw.Flush()
}

func writeF32Data(w io.Writer, data []float32) error {
	var a [4]byte
	b := a[:]
	for _, v := range data {
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
