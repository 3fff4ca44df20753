// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/json"
	"fmt"
	"math/bits"
)

// The Shape of a tensor.
type Shape []int

// MarshalJSON encodes a nil Shape as "[]" instead of "null".
func (s Shape) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(s))
}

// NumElements returns the product of all dimensions; an empty shape is a
// scalar and counts as one element.
func (s Shape) NumElements() (int, error) {
	size := uint(1)
	for _, v := range s {
		if v < 0 {
			return 0, fmt.Errorf("shape contains negative value %d", v)
		}
		var hi uint
		if hi, size = bits.Mul(size, uint(v)); hi != 0 || size > maxInt {
			return 0, fmt.Errorf("int overflow computing tensor elements size from shape")
		}
	}
	return int(size), nil
}

const maxInt = uint(^uint(0) >> 1)
