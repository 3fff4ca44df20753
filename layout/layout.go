// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout rewrites the index space of trained tensors so that
// reading them row-major in the target shape yields the element order the
// inference runtime expects.
//
// Every transform is described by a Mapping: a target shape and a pure
// function from a target flat index to a source flat index. Values are
// only moved, never altered.
package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when a tensor's rank, or an axis whose
	// size is fixed by the transform, does not hold.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnsupportedShape is returned for shape patterns a transform has
	// no rule for.
	ErrUnsupportedShape = errors.New("unsupported shape")
)

// A Transform validates a source shape and plans its reindexing.
type Transform interface {
	Plan(source []int) (Mapping, error)
	String() string
}

// Mapping is the plan of a Transform for one source shape.
type Mapping struct {
	// Target is the shape the runtime reads the tensor with.
	Target []int
	// SourceIndex maps a flat index within Target to a flat index within
	// the source shape.
	SourceIndex func(dst int) int
}

// Apply reindexes data, laid out row-major in shape, into a newly
// allocated buffer laid out row-major in the planned target shape.
func Apply(t Transform, shape []int, data []float32) ([]int, []float32, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, nil, err
	}
	if n != len(data) {
		return nil, nil, fmt.Errorf("%w: shape %v holds %d elements, data has %d", ErrShapeMismatch, shape, n, len(data))
	}
	m, err := t.Plan(shape)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", t, err)
	}
	size, err := numElements(m.Target)
	if err != nil {
		return nil, nil, err
	}
	out := make([]float32, size)
	for dst := range out {
		out[dst] = data[m.SourceIndex(dst)]
	}
	return m.Target, out, nil
}

func numElements(shape []int) (int, error) {
	n := 1
	for _, v := range shape {
		if v < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, shape)
		}
		n *= v
	}
	return n, nil
}

func copyShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	return append([]int(nil), shape...)
}
