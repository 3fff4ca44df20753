// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artifact reads and writes the per-tensor binary files consumed
// by the inference runtime.
//
// An artifact is a little-endian uint32 element count N, followed by N
// little-endian binary16 values in row-major order over the target shape.
// There is no shape, version, padding or checksum: the runtime knows the
// target shape of each file by its name.
package artifact

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/nlpodyssey/cnnexport/float16"
)

// HeaderSize is the size in bytes of the element count prefix.
const HeaderSize = 4

// MaxElements is the largest element count the prefix can describe.
const MaxElements = math.MaxUint32

// ErrIOFailure is returned when an artifact cannot be created or fully
// written.
var ErrIOFailure = errors.New("i/o failure")

// Size returns the size in bytes of an artifact holding n values.
func Size(n int) int64 {
	return HeaderSize + 2*int64(n)
}

// Encode writes the artifact of values to w, returning the number of
// bytes written.
func Encode(w io.Writer, values []float16.F16) (int64, error) {
	n, err := write(w, values)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return n, nil
}

func checkCount(n int) error {
	if uint64(n) > MaxElements {
		return fmt.Errorf("%d elements do not fit the uint32 count", n)
	}
	return nil
}

func write(w io.Writer, values []float16.F16) (int64, error) {
	if err := checkCount(len(values)); err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	n, err := encode(bw, values)
	if e := bw.Flush(); e != nil && err == nil {
		err = e
	}
	return n, err
}

func encode(w io.Writer, values []float16.F16) (int64, error) {
	var a [HeaderSize]byte
	binary.LittleEndian.PutUint32(a[:], uint32(len(values)))
	written, err := w.Write(a[:])
	if err != nil {
		return int64(written), err
	}

	b := a[:2]
	for _, v := range values {
		a[0] = byte(v)
		a[1] = byte(v >> 8)

		n, err := w.Write(b)
		written += n
		if err != nil {
			return int64(written), err
		}
	}
	return int64(written), nil
}

// Decode reads one artifact from r. The reader must end right after the
// last value.
func Decode(r io.Reader) ([]float16.F16, error) {
	br := bufio.NewReader(r)

	var a [HeaderSize]byte
	if _, err := io.ReadFull(br, a[:]); err != nil {
		return nil, fmt.Errorf("failed to read element count: %w", err)
	}
	n := binary.LittleEndian.Uint32(a[:])

	b := a[:2]
	out := make([]float16.F16, 0, min(int(n), 1<<20))
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(br, b); err != nil {
			return nil, fmt.Errorf("failed to read value %d of %d: %w", i, n, err)
		}
		out = append(out, float16.F16(a[0])|float16.F16(a[1])<<8)
	}

	if _, err := br.ReadByte(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected data after %d values", n)
	}
	return out, nil
}
