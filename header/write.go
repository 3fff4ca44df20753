// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nlpodyssey/cnnexport/dtype"
)

var padding = [8]byte{' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}

type outEntry struct {
	DType       dtype.DType `json:"dtype"`
	Shape       Shape       `json:"shape"`
	DataOffsets DataOffsets `json:"data_offsets"`
}

// Write validates h, then writes the uint64 size prefix and the JSON
// header, right-padded with spaces to a multiple of 8 bytes.
// It returns the number of bytes written.
func Write(w io.Writer, h Header) (int, error) {
	if err := h.Validate(); err != nil {
		return 0, fmt.Errorf("failed to generate a valid header: %w", err)
	}

	doc := make(map[string]any, len(h.Tensors)+1)
	if len(h.Metadata) > 0 {
		doc[metadataKey] = h.Metadata
	}
	for name, t := range h.Tensors {
		doc[name] = outEntry{DType: t.DType, Shape: t.Shape, DataOffsets: t.DataOffsets}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to JSON-encode header: %w", err)
	}
	toAlign := (8 - len(body)%8) % 8

	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], uint64(len(body)+toAlign))

	written := 0
	for _, chunk := range [][]byte{size[:], body, padding[:toAlign]} {
		n, err := w.Write(chunk)
		written += n
		if err != nil {
			return written, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return written, nil
}
