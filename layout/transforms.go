// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import "fmt"

// Identity keeps the shape and the element order.
type Identity struct{}

func (Identity) String() string { return "identity" }

func (Identity) Plan(source []int) (Mapping, error) {
	return Mapping{
		Target:      copyShape(source),
		SourceIndex: func(dst int) int { return dst },
	}, nil
}

// ConvKernel turns a [kernel_height, kernel_width, 1, out_channels]
// convolution kernel into [out_channels, kernel_height, kernel_width], one
// contiguous plane per output channel. The single input channel axis is
// squeezed.
type ConvKernel struct{}

func (ConvKernel) String() string { return "conv-kernel" }

func (ConvKernel) Plan(source []int) (Mapping, error) {
	if len(source) != 4 {
		return Mapping{}, fmt.Errorf("%w: expected rank 4 [kh, kw, in, out], actual %v", ErrShapeMismatch, source)
	}
	kh, kw, in, out := source[0], source[1], source[2], source[3]
	if in != 1 {
		return Mapping{}, fmt.Errorf("%w: only one input channel is supported, actual %d", ErrUnsupportedShape, in)
	}
	return Mapping{
		Target: []int{out, kh, kw},
		SourceIndex: func(dst int) int {
			return ConvKernelSourceIndex(kh, kw, out, dst)
		},
	}, nil
}

// ConvKernelSourceIndex returns the flat index in a [kh, kw, 1, out] kernel
// of the element stored at flat index dst of the [out, kh, kw] target:
// target[o, i, j] = source[i, j, 0, o].
func ConvKernelSourceIndex(kh, kw, out, dst int) int {
	o := dst / (kh * kw)
	i := dst % (kh * kw) / kw
	j := dst % kw
	return (i*kw+j)*out + o
}

// DenseRows permutes the rows of a [rows, cols] dense weight matrix whose
// rows follow a pixel-major, channel-minor flatten of the previous feature
// map, so that they follow a channel-major, pixel-minor flatten instead.
// Columns are untouched.
type DenseRows struct {
	// PixelsPerChannel is the spatial size (height * width) of the feature
	// map feeding the dense layer.
	PixelsPerChannel int
	// NumChannels is the channel count of that feature map.
	NumChannels int
}

func (d DenseRows) String() string {
	return fmt.Sprintf("dense-rows(%dx%d)", d.PixelsPerChannel, d.NumChannels)
}

func (d DenseRows) Plan(source []int) (Mapping, error) {
	if d.PixelsPerChannel <= 0 || d.NumChannels <= 0 {
		return Mapping{}, fmt.Errorf("%w: non-positive feature map size %d pixels x %d channels",
			ErrUnsupportedShape, d.PixelsPerChannel, d.NumChannels)
	}
	if len(source) != 2 {
		return Mapping{}, fmt.Errorf("%w: expected rank 2 [rows, cols], actual %v", ErrShapeMismatch, source)
	}
	rows, cols := source[0], source[1]
	if rows != d.PixelsPerChannel*d.NumChannels {
		return Mapping{}, fmt.Errorf("%w: expected %d rows (%d pixels x %d channels), actual %d",
			ErrShapeMismatch, d.PixelsPerChannel*d.NumChannels, d.PixelsPerChannel, d.NumChannels, rows)
	}
	ppc, nc := d.PixelsPerChannel, d.NumChannels
	return Mapping{
		Target: []int{rows, cols},
		SourceIndex: func(dst int) int {
			return DenseSourceRow(dst/cols, ppc, nc)*cols + dst%cols
		},
	}, nil
}

// DenseSourceRow returns the pixel-major source row holding the weights
// of channel-major target row r.
func DenseSourceRow(r, pixelsPerChannel, numChannels int) int {
	channel := r / pixelsPerChannel
	pixel := r % pixelsPerChannel
	return channel + pixel*numChannels
}
