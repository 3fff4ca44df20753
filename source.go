// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnnexport

import "fmt"

// A Source provides the final trained parameters by name.
//
// Implementations return an error wrapping ErrNotFound for unknown names,
// and must be safe for concurrent use.
type Source interface {
	Tensor(name string) (Tensor, error)
}

// Fetch gets the named tensor from src and checks that its shape equals
// expected.
func Fetch(src Source, name string, expected []int) (Tensor, error) {
	t, err := src.Tensor(name)
	if err != nil {
		return Tensor{}, err
	}
	if !EqualShapes(t.shape, expected) {
		return Tensor{}, fmt.Errorf("%w: tensor %q has shape %v, expected %v", ErrShapeMismatch, name, t.shape, expected)
	}
	return t, nil
}

// MapSource is a Source over tensors already materialized in memory.
type MapSource map[string]Tensor

// NewMapSource indexes tensors by name, rejecting duplicates.
func NewMapSource(tensors ...Tensor) (MapSource, error) {
	m := make(MapSource, len(tensors))
	for _, t := range tensors {
		if _, ok := m[t.name]; ok {
			return nil, fmt.Errorf("duplicate tensor name %q", t.name)
		}
		m[t.name] = t
	}
	return m, nil
}

func (m MapSource) Tensor(name string) (Tensor, error) {
	t, ok := m[name]
	if !ok {
		return Tensor{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return t, nil
}
