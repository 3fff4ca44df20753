// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/nlpodyssey/cnnexport/dtype"
)

const metadataKey = "__metadata__"

type entry struct {
	DType       *dtype.DType `json:"dtype"`
	Shape       *Shape       `json:"shape"`
	DataOffsets *DataOffsets `json:"data_offsets"`
}

// Read reads the little-endian uint64 header size followed by the JSON
// header itself. The reader is left positioned at the first byte of the
// byte-buffer.
//
// The returned Header is not validated; see Header.Validate.
func Read(r io.Reader) (Header, error) {
	size, err := readSize(r)
	switch {
	case err != nil:
		return Header{}, err
	case size < 2: // "{}"
		return Header{}, fmt.Errorf("header size too small: %d", size)
	case size > math.MaxInt-8:
		return Header{}, fmt.Errorf("header size too large: %d", size)
	}

	raw, err := decodeJSON(r, int64(size))
	if err != nil {
		return Header{}, fmt.Errorf("failed to JSON-decode header: %w", err)
	}

	h, err := interpret(raw)
	if err != nil {
		return Header{}, err
	}
	h.ByteBufferOffset = 8 + int(size)
	return h, nil
}

func readSize(r io.Reader) (uint64, error) {
	var arr [8]byte
	if _, err := io.ReadFull(r, arr[:]); err != nil {
		return 0, fmt.Errorf("failed to read header size: %w", err)
	}
	return binary.LittleEndian.Uint64(arr[:]), nil
}

func decodeJSON(r io.Reader, size int64) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(&io.LimitedReader{R: r, N: size})

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	// the header may be right-padded with whitespace
	if off := dec.InputOffset(); off != size {
		if _, err := dec.Token(); err == nil {
			return nil, fmt.Errorf("unexpected data at byte offset %d", off)
		} else if err != io.EOF {
			return nil, err
		}
	}
	return raw, nil
}

func interpret(raw map[string]json.RawMessage) (Header, error) {
	var h Header
	for key, msg := range raw {
		if key == metadataKey {
			md, err := decodeMetadata(msg)
			if err != nil {
				return Header{}, fmt.Errorf("failed to interpret header metadata: %w", err)
			}
			h.Metadata = md
			continue
		}
		t, err := decodeTensor(key, msg)
		if err != nil {
			return Header{}, fmt.Errorf("failed to interpret header tensor %q: %w", key, err)
		}
		if h.Tensors == nil {
			h.Tensors = make(TensorMap, len(raw))
		}
		h.Tensors[key] = t
	}
	return h, nil
}

func decodeMetadata(msg json.RawMessage) (Metadata, error) {
	var md Metadata
	if err := json.Unmarshal(msg, &md); err != nil {
		return nil, err
	}
	if len(md) == 0 {
		return nil, nil
	}
	return md, nil
}

func decodeTensor(name string, msg json.RawMessage) (Tensor, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.DisallowUnknownFields()

	var e entry
	if err := dec.Decode(&e); err != nil {
		return Tensor{}, err
	}
	switch {
	case e.DType == nil:
		return Tensor{}, errors.New(`"dtype" is missing`)
	case e.Shape == nil:
		return Tensor{}, errors.New(`"shape" is missing`)
	case e.DataOffsets == nil:
		return Tensor{}, errors.New(`"data_offsets" is missing`)
	}
	for i, v := range *e.Shape {
		if v < 0 {
			return Tensor{}, fmt.Errorf(`negative "shape" value at index %d: %d`, i, v)
		}
	}
	var shape Shape
	if len(*e.Shape) > 0 {
		shape = *e.Shape
	}
	return Tensor{
		Name:        name,
		DType:       *e.DType,
		Shape:       shape,
		DataOffsets: *e.DataOffsets,
	}, nil
}
