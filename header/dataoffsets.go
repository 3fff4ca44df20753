// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/json"
	"fmt"
)

// DataOffsets is the [Begin, End) byte range of a tensor's data, relative
// to the beginning of the byte-buffer.
type DataOffsets struct {
	Begin int
	End   int
}

// Len returns the size in bytes of the range.
func (a DataOffsets) Len() int {
	return a.End - a.Begin
}

// Less orders ranges by Begin, then by End.
func (a DataOffsets) Less(b DataOffsets) bool {
	return a.Begin < b.Begin || (a.Begin == b.Begin && a.End < b.End)
}

// UnmarshalJSON decodes an array of exactly two non-negative integers.
func (a *DataOffsets) UnmarshalJSON(b []byte) error {
	var decoded []int
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	if len(decoded) != 2 {
		return fmt.Errorf("bad data-offsets length: expected 2, actual %d", len(decoded))
	}
	if decoded[0] < 0 || decoded[1] < 0 {
		return fmt.Errorf("negative data-offsets value: %v", decoded)
	}
	*a = DataOffsets{Begin: decoded[0], End: decoded[1]}
	return nil
}

func (a DataOffsets) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{a.Begin, a.End})
}
