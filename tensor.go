// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnnexport

import (
	"fmt"
	"slices"
)

// A Tensor is a named, immutable, row-major float32 array.
type Tensor struct {
	name  string
	shape []int
	data  []float32
}

// NewTensor performs validity checks over the given properties and returns
// a Tensor with those properties if validation succeeds, otherwise an error.
//
// An empty shape denotes a scalar. The shape must not contain negative
// values, and the number of data elements must match it. The shape is
// copied; data is not, and must not be modified afterwards.
func NewTensor(name string, shape []int, data []float32) (Tensor, error) {
	size, err := NumElements(shape)
	if err != nil {
		return Tensor{}, err
	}
	if size != len(data) {
		return Tensor{}, fmt.Errorf("%w: the size computed from shape %v (%d) does not match data length (%d)",
			ErrShapeMismatch, shape, size, len(data))
	}
	return Tensor{
		name:  name,
		shape: copyShape(shape),
		data:  data,
	}, nil
}

// NumElements returns the product of the dimensions of shape.
func NumElements(shape []int) (int, error) {
	size := 1
	for _, v := range shape {
		if v < 0 {
			return 0, fmt.Errorf("%w: shape %v contains a negative value", ErrShapeMismatch, shape)
		}
		size *= v
	}
	return size, nil
}

// EqualShapes reports whether a and b have the same dimensions. A nil and
// an empty shape are equal.
func EqualShapes(a, b []int) bool {
	return slices.Equal(a, b)
}

// The Name of the tensor.
func (t Tensor) Name() string {
	return t.name
}

// The Shape of the tensor. A new slice is returned, or nil for a scalar.
func (t Tensor) Shape() []int {
	return copyShape(t.shape)
}

// The Data of the tensor.
//
// The value returned is NOT a copy and must be treated as read-only.
func (t Tensor) Data() []float32 {
	return t.data
}

// Len returns the number of elements.
func (t Tensor) Len() int {
	return len(t.data)
}

func (t Tensor) String() string {
	return fmt.Sprintf("%s%v", t.name, t.shape)
}

func copyShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	return slices.Clone(shape)
}
