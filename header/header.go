// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package header models the JSON header of a safetensors checkpoint,
// the interchange format handed over by the training side.
package header

import (
	"sort"

	"github.com/nlpodyssey/cnnexport/dtype"
)

// Header lists the tensors of a checkpoint and its free-form metadata.
type Header struct {
	Tensors  TensorMap
	Metadata Metadata
	// ByteBufferOffset is the position of the first data byte, relative to
	// the beginning of the checkpoint stream.
	ByteBufferOffset int
}

// Metadata is a set of free-form key/value string pairs.
type Metadata map[string]string

// Tensor describes one tensor entry of the header.
type Tensor struct {
	Name        string
	DType       dtype.DType
	Shape       Shape
	DataOffsets DataOffsets
}

// TensorMap is a set of Tensor entries mapped by their name.
type TensorMap map[string]Tensor

// ByOffset returns the entries sorted by ascending data offsets, or nil
// if the map is empty.
func (tm TensorMap) ByOffset() []Tensor {
	if len(tm) == 0 {
		return nil
	}
	ts := make([]Tensor, 0, len(tm))
	for _, t := range tm {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool {
		return ts[i].DataOffsets.Less(ts[j].DataOffsets)
	})
	return ts
}

// Names returns the sorted tensor names.
func (tm TensorMap) Names() []string {
	if len(tm) == 0 {
		return nil
	}
	names := make([]string, 0, len(tm))
	for name := range tm {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
