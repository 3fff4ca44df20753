// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nlpodyssey/cnnexport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("header size limit", func(t *testing.T) {
		data := makeData(`{"__metadata__":{}}`, nil)
		c, err := New(bytes.NewReader(data), 10)
		require.EqualError(t, err, "failed to read safetensors header: failed to JSON-decode header: unexpected EOF")
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.Nil(t, c)
	})

	t.Run("error reading header size", func(t *testing.T) {
		c, err := New(bytes.NewReader([]byte{0}), 10)
		require.EqualError(t, err, "failed to read safetensors header: failed to read header size: unexpected EOF")
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.Nil(t, c)
	})

	t.Run("invalid header", func(t *testing.T) {
		data := makeData(`{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,4]}}`, make([]byte, 4))
		c, err := New(bytes.NewReader(data), 0)
		require.ErrorContains(t, err, "safetensors header is invalid")
		require.Nil(t, c)
	})

	t.Run("truncated data", func(t *testing.T) {
		data := makeData(`{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`, make([]byte, 6))
		c, err := New(bytes.NewReader(data), 0)
		require.ErrorContains(t, err, "safetensors data is truncated")
		require.Nil(t, c)
	})
}

func TestCheckpoint_Metadata(t *testing.T) {
	testCases := []struct {
		jsonHeader string
		want       map[string]string
	}{
		{`{}`, nil},
		{`{"__metadata__": {}}`, nil},
		{`{"__metadata__": {"format": "pt"}}`, map[string]string{"format": "pt"}},
	}
	for _, tc := range testCases {
		t.Run(tc.jsonHeader, func(t *testing.T) {
			c, err := New(bytes.NewReader(makeData(tc.jsonHeader, nil)), 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Metadata())
		})
	}
}

func TestCheckpoint_Names(t *testing.T) {
	data := makeData(
		`{"b":{"dtype":"F32","shape":[0],"data_offsets":[0,0]},`+
			`"a":{"dtype":"F16","shape":[0],"data_offsets":[0,0]}}`, nil)
	c, err := New(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Names())
	assert.Len(t, c.Entries(), 2)
}

func TestCheckpoint_Tensor(t *testing.T) {
	testCases := []struct {
		name  string
		dtype string
		bytes []byte
		want  []float32
	}{
		{
			"f32", "F32",
			[]byte{
				0x00, 0x00, 0x00, 0x00 /**/, 0x00, 0x00, 0x80, 0x3f,
				0x00, 0x00, 0x00, 0xc0 /**/, 0x00, 0x00, 0x80, 0x7f,
			},
			[]float32{0, 1, -2, float32(math.Inf(1))},
		},
		{
			"f16", "F16",
			[]byte{
				0x00, 0x00 /**/, 0x00, 0x3c,
				0x00, 0xc0 /**/, 0x00, 0x7c,
			},
			[]float32{0, 1, -2, float32(math.Inf(1))},
		},
		{
			"bf16", "BF16",
			[]byte{
				0x00, 0x00 /**/, 0x80, 0x3f,
				0x00, 0xc0 /**/, 0x80, 0x7f,
			},
			[]float32{0, 1, -2, float32(math.Inf(1))},
		},
		{
			"f64", "F64",
			[]byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xc0,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x7f,
			},
			[]float32{0, 1, -2, float32(math.Inf(1))},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// a leading padding tensor exercises non-zero data offsets
			jsonHeader := fmt.Sprintf(
				`{"pad":{"dtype":"U8","shape":[3],"data_offsets":[0,3]},`+
					`"x":{"dtype":%q,"shape":[2,2],"data_offsets":[3,%d]}}`,
				tc.dtype, 3+len(tc.bytes))
			data := makeData(jsonHeader, append([]byte{1, 2, 3}, tc.bytes...))

			c, err := New(bytes.NewReader(data), 0)
			require.NoError(t, err)

			x, err := c.Tensor("x")
			require.NoError(t, err)
			assert.Equal(t, "x", x.Name())
			assert.Equal(t, []int{2, 2}, x.Shape())
			assert.Equal(t, tc.want, x.Data())
		})
	}
}

func TestCheckpoint_Tensor_Failures(t *testing.T) {
	data := makeData(
		`{"ids":{"dtype":"I32","shape":[1],"data_offsets":[0,4]}}`,
		[]byte{1, 0, 0, 0})
	c, err := New(bytes.NewReader(data), 0)
	require.NoError(t, err)

	_, err = c.Tensor("ids")
	require.ErrorIs(t, err, ErrUnsupportedDType)
	assert.EqualError(t, err, `failed to read data of tensor "ids": unsupported dtype I32`)

	_, err = c.Tensor("w_conv1")
	require.ErrorIs(t, err, cnnexport.ErrNotFound)
	assert.EqualError(t, err, `tensor not found: "w_conv1"`)
}

func TestCheckpoint_Tensor_ShortRead(t *testing.T) {
	// without a Size method the truncation surfaces on read
	data := makeData(`{"x":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`, make([]byte, 5))
	c, err := New(readerAtOnly{bytes.NewReader(data)}, 0)
	require.NoError(t, err)

	_, err = c.Tensor("x")
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWrite(t *testing.T) {
	tensors := []cnnexport.Tensor{
		mustTensor(t, "w", []int{2, 3}, []float32{1, 2, 3, 4, 5, 6}),
		mustTensor(t, "b", []int{3}, []float32{0.1, 0.2, 0.3}),
		mustTensor(t, "s", nil, []float32{-7}),
		mustTensor(t, "empty", []int{0, 4}, nil),
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tensors, map[string]string{"seed": "42"}))

	c, err := New(bytes.NewReader(buf.Bytes()), 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"seed": "42"}, c.Metadata())
	assert.Equal(t, []string{"b", "empty", "s", "w"}, c.Names())

	for _, want := range tensors {
		got, err := c.Tensor(want.Name())
		require.NoError(t, err)
		assert.Equal(t, want.Shape(), got.Shape(), want.Name())
		assert.Equal(t, want.Len(), got.Len(), want.Name())
		if want.Len() > 0 {
			assert.Equal(t, want.Data(), got.Data(), want.Name())
		}
	}

	// header is padded to 8 bytes
	headerSize := binary.LittleEndian.Uint64(buf.Bytes()[:8])
	assert.Zero(t, headerSize%8)
	assert.Equal(t, int(8+headerSize)+4*(6+3+1), buf.Len())
}

func TestWrite_DuplicateName(t *testing.T) {
	a := mustTensor(t, "a", []int{1}, []float32{1})
	err := Write(io.Discard, []cnnexport.Tensor{a, a}, nil)
	assert.EqualError(t, err, `duplicate tensor name "a"`)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(f, []cnnexport.Tensor{
		mustTensor(t, "b_fc2", []int{10}, make([]float32, 10)),
	}, nil))
	require.NoError(t, f.Close())

	c, err := Open(path, 0)
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	// concurrent reads share the same file
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			x, err := c.Tensor("b_fc2")
			assert.NoError(t, err)
			assert.Equal(t, 10, x.Len())
		}()
	}
	wg.Wait()

	_, err = Open(filepath.Join(t.TempDir(), "missing.safetensors"), 0)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.safetensors")
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint"), 0o644))

	_, err := Open(path, 0)
	require.Error(t, err)
	assert.ErrorContains(t, err, path)
}

type readerAtOnly struct {
	r io.ReaderAt
}

func (r readerAtOnly) ReadAt(p []byte, off int64) (int, error) {
	return r.r.ReadAt(p, off)
}

func mustTensor(t *testing.T, name string, shape []int, data []float32) cnnexport.Tensor {
	t.Helper()
	x, err := cnnexport.NewTensor(name, shape, data)
	require.NoError(t, err)
	return x
}

func makeData(jsonHeader string, byteBuffer []byte) []byte {
	data := make([]byte, 8+len(jsonHeader)+len(byteBuffer))
	binary.LittleEndian.PutUint64(data, uint64(len(jsonHeader)))
	copy(data[8:8+len(jsonHeader)], jsonHeader)
	copy(data[8+len(jsonHeader):], byteBuffer)
	return data
}
