// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cnnexport exports the trained parameters of a small
// convolutional image classifier into the flat half-precision files read
// by a layout-sensitive inference runtime.
//
// Each parameter tensor is fetched from a Source, reindexed by a
// layout.Transform into the runtime's storage order, converted to binary16
// and written as an artifact (see package artifact). Tasks are independent
// and an export run fails as a whole on the first error.
package cnnexport
