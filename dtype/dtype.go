// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dtype describes the element types a safetensors checkpoint
// may declare for its tensors.
package dtype

import (
	"fmt"
	"strconv"
)

// DType identifies the data type of the elements of a checkpoint tensor.
type DType uint8

const (
	// Bool represents an 8-bit boolean data type.
	Bool DType = iota + 1
	// U8 represents an 8-bit unsigned integer data type.
	U8
	// I8 represents an 8-bit signed integer data type.
	I8
	// U16 represents a 16-bit unsigned integer data type.
	U16
	// I16 represents a 16-bit signed integer data type.
	I16
	// F16 represents a 16-bit half-precision floating point data type.
	F16
	// BF16 represents a 16-bit brain floating point data type.
	BF16
	// U32 represents a 32-bit unsigned integer data type.
	U32
	// I32 represents a 32-bit signed integer data type.
	I32
	// F32 represents a 32-bit floating point data type.
	F32
	// U64 represents a 64-bit unsigned integer data type.
	U64
	// I64 represents a 64-bit signed integer data type.
	I64
	// F64 represents a 64-bit floating point data type.
	F64
)

type properties struct {
	name  string
	size  int
	float bool
}

var table = [...]properties{
	Bool: {"BOOL", 1, false},
	U8:   {"U8", 1, false},
	I8:   {"I8", 1, false},
	U16:  {"U16", 2, false},
	I16:  {"I16", 2, false},
	F16:  {"F16", 2, true},
	BF16: {"BF16", 2, true},
	U32:  {"U32", 4, false},
	I32:  {"I32", 4, false},
	F32:  {"F32", 4, true},
	U64:  {"U64", 8, false},
	I64:  {"I64", 8, false},
	F64:  {"F64", 8, true},
}

var byName = func() map[string]DType {
	m := make(map[string]DType, len(table))
	for dt := Bool; dt <= F64; dt++ {
		m[table[dt].name] = dt
	}
	return m
}()

// Validate returns an error if dt is not one of the known data types.
func (dt DType) Validate() error {
	if dt == 0 || dt > F64 {
		return fmt.Errorf("invalid DType(%d)", dt)
	}
	return nil
}

// String returns the safetensors name of the data type.
func (dt DType) String() string {
	if err := dt.Validate(); err != nil {
		return err.Error()
	}
	return table[dt].name
}

// Size returns the size in bytes of one element, or -1 for an invalid DType.
func (dt DType) Size() int {
	if err := dt.Validate(); err != nil {
		return -1
	}
	return table[dt].size
}

// IsFloat reports whether dt is a floating point type.
func (dt DType) IsFloat() bool {
	return dt.Validate() == nil && table[dt].float
}

// Parse returns the DType with the given safetensors name.
func Parse(s string) (DType, error) {
	dt, ok := byName[s]
	if !ok {
		return 0, fmt.Errorf("unknown DType %q", s)
	}
	return dt, nil
}

func (dt DType) MarshalText() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return []byte(table[dt].name), nil
}

func (dt *DType) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return fmt.Errorf("failed to text-unmarshal DType: %w", err)
	}
	*dt = v
	return nil
}

func (dt DType) MarshalJSON() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return []byte(strconv.Quote(table[dt].name)), nil
}

func (dt *DType) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("failed to JSON-unmarshal DType from value %q", b)
	}
	v, err := Parse(s)
	if err != nil {
		return fmt.Errorf("failed to JSON-unmarshal DType: %w", err)
	}
	*dt = v
	return nil
}
