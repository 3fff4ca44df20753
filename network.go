// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnnexport

import (
	"fmt"
	"path/filepath"

	"github.com/nlpodyssey/cnnexport/layout"
)

// Parameter names, as exposed by the training side and used for the
// artifact file names.
const (
	ConvWeights   = "w_conv1"
	ConvBias      = "b_conv1"
	HiddenWeights = "w_fc1"
	HiddenBias    = "b_fc1"
	OutputWeights = "w_fc2"
	OutputBias    = "b_fc2"
)

// ArtifactExt is the file extension of exported artifacts.
const ArtifactExt = ".bin"

// Network describes the classifier architecture: a convolution with ReLU,
// a max pool with SAME padding, a fully connected hidden layer with ReLU
// and a fully connected readout layer.
type Network struct {
	ImageHeight   int `yaml:"image_height"`
	ImageWidth    int `yaml:"image_width"`
	InputChannels int `yaml:"input_channels"`
	KernelSize    int `yaml:"kernel_size"`
	ConvFilters   int `yaml:"conv_filters"`
	PoolSize      int `yaml:"pool_size"`
	Hidden        int `yaml:"hidden"`
	Classes       int `yaml:"classes"`
}

// DefaultNetwork returns the 28x28 grayscale digit classifier.
func DefaultNetwork() Network {
	return Network{
		ImageHeight:   28,
		ImageWidth:    28,
		InputChannels: 1,
		KernelSize:    5,
		ConvFilters:   16,
		PoolSize:      2,
		Hidden:        64,
		Classes:       10,
	}
}

// Validate checks that every dimension is positive.
func (n Network) Validate() error {
	dims := []struct {
		name  string
		value int
	}{
		{"image_height", n.ImageHeight},
		{"image_width", n.ImageWidth},
		{"input_channels", n.InputChannels},
		{"kernel_size", n.KernelSize},
		{"conv_filters", n.ConvFilters},
		{"pool_size", n.PoolSize},
		{"hidden", n.Hidden},
		{"classes", n.Classes},
	}
	for _, d := range dims {
		if d.value <= 0 {
			return fmt.Errorf("invalid %s: %d (must be positive)", d.name, d.value)
		}
	}
	return nil
}

// PooledShape returns the [height, width, channels] shape of the pooled
// feature map feeding the hidden layer. The pool stride equals its size
// and SAME padding keeps partial windows.
func (n Network) PooledShape() (height, width, channels int) {
	return ceilDiv(n.ImageHeight, n.PoolSize), ceilDiv(n.ImageWidth, n.PoolSize), n.ConvFilters
}

// FlatSize returns the length of the flattened pooled feature map.
func (n Network) FlatSize() int {
	h, w, c := n.PooledShape()
	return h * w * c
}

// Tasks returns the ordered export plan of the network parameters, writing
// one artifact per tensor into outDir.
func (n Network) Tasks(outDir string) []Task {
	h, w, c := n.PooledShape()
	task := func(name string, shape []int, t layout.Transform) Task {
		return Task{
			Name:      name,
			Shape:     shape,
			Transform: t,
			Path:      filepath.Join(outDir, name+ArtifactExt),
		}
	}
	return []Task{
		task(ConvWeights, []int{n.KernelSize, n.KernelSize, n.InputChannels, n.ConvFilters}, layout.ConvKernel{}),
		task(ConvBias, []int{n.ConvFilters}, layout.Identity{}),
		task(HiddenWeights, []int{h * w * c, n.Hidden}, layout.DenseRows{PixelsPerChannel: h * w, NumChannels: c}),
		task(HiddenBias, []int{n.Hidden}, layout.Identity{}),
		task(OutputWeights, []int{n.Hidden, n.Classes}, layout.Identity{}),
		task(OutputBias, []int{n.Classes}, layout.Identity{}),
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
