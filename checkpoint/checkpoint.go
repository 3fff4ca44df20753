// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package checkpoint reads trained parameters from safetensors files.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"os"

	"github.com/nlpodyssey/cnnexport"
	"github.com/nlpodyssey/cnnexport/header"
)

// ErrUnsupportedDType is returned for tensors whose data type cannot be
// converted to float32.
var ErrUnsupportedDType = errors.New("unsupported dtype")

// Checkpoint is a cnnexport.Source lazy-loading tensor data from a
// safetensors stream.
//
// Only the header is kept in memory. Each call to Tensor reads the data
// of a single tensor through its own section of the underlying
// io.ReaderAt, so concurrent calls are safe.
type Checkpoint struct {
	ra       io.ReaderAt
	closer   io.Closer
	tensors  header.TensorMap
	metadata header.Metadata
	// dataOffset is the byte-buffer offset relative to the start of ra
	dataOffset int64
}

var _ cnnexport.Source = (*Checkpoint)(nil)

// New reads from ra the safetensors header and validates it, then returns
// a new Checkpoint in case of success, otherwise nil and an error.
//
// If headerSizeLimit is set to a positive number, its value is used to
// limit the reading of the header. This guards against tampered or
// garbage data, avoiding giant memory allocations to hold header
// information. A value of zero, or a negative number, have no limiting
// effects.
//
// If ra has a Size method (like *bytes.Reader or *io.SectionReader), the
// byte-buffer described by the header is checked to fit in it.
//
// ra must remain available as long as the Checkpoint is in use.
func New(ra io.ReaderAt, headerSizeLimit int) (*Checkpoint, error) {
	var r io.Reader = io.NewSectionReader(ra, 0, math.MaxInt64)
	if headerSizeLimit > 0 {
		r = io.LimitReader(r, int64(headerSizeLimit))
	}
	head, err := header.Read(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read safetensors header: %w", err)
	}
	if err = head.Validate(); err != nil {
		return nil, fmt.Errorf("safetensors header is invalid: %w", err)
	}

	dataOffset := int64(head.ByteBufferOffset)
	if sized, ok := ra.(interface{ Size() int64 }); ok {
		end, err := checkedAddNonNegInt64(dataOffset, int64(head.DataLen()))
		if err != nil {
			return nil, fmt.Errorf("failed to calculate byte-buffer end: %w", err)
		}
		if size := sized.Size(); size < end {
			return nil, fmt.Errorf("safetensors data is truncated: expected at least %d bytes, actual %d", end, size)
		}
	}

	return &Checkpoint{
		ra:         ra,
		tensors:    head.Tensors,
		metadata:   head.Metadata,
		dataOffset: dataOffset,
	}, nil
}

// Open opens the named safetensors file. The Checkpoint must be closed
// after use.
func Open(path string, headerSizeLimit int) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	c, err := New(io.NewSectionReader(f, 0, fi.Size()), headerSizeLimit)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.closer = f
	return c, nil
}

// Close releases the underlying file, if the Checkpoint was opened
// with Open.
func (c *Checkpoint) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Metadata returns the free-form key/value string pairs as read from the
// header. It can be nil.
func (c *Checkpoint) Metadata() map[string]string {
	return c.metadata
}

// Names returns the sorted names of all tensors, or nil if there are none.
func (c *Checkpoint) Names() []string {
	return c.tensors.Names()
}

// Entries returns the header entries sorted by data offsets.
func (c *Checkpoint) Entries() []header.Tensor {
	return c.tensors.ByOffset()
}

// Tensor reads the named tensor, converting its data to float32.
//
// F32 data is returned as stored; F16, BF16 and F64 data is converted.
// Other data types fail with ErrUnsupportedDType.
func (c *Checkpoint) Tensor(name string) (cnnexport.Tensor, error) {
	ht, ok := c.tensors[name]
	if !ok {
		return cnnexport.Tensor{}, fmt.Errorf("%w: %q", cnnexport.ErrNotFound, name)
	}
	offset, err := checkedAddNonNegInt64(c.dataOffset, int64(ht.DataOffsets.Begin))
	if err != nil {
		return cnnexport.Tensor{}, fmt.Errorf("failed to calculate tensor data offset: %w", err)
	}
	r := io.NewSectionReader(c.ra, offset, int64(ht.DataOffsets.Len()))
	data, err := readFloat32Data(ht, r)
	if err != nil {
		return cnnexport.Tensor{}, fmt.Errorf("failed to read data of tensor %q: %w", name, err)
	}
	return cnnexport.NewTensor(name, ht.Shape, data)
}

var errInt64SumOverflow = errors.New("int64 sum overflow")

func checkedAddNonNegInt64(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("unexpected negative number")
	}
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 || sum > math.MaxInt64 {
		return 0, errInt64SumOverflow
	}
	return int64(sum), nil
}
