// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnnexport

import (
	"errors"
	"fmt"

	"github.com/nlpodyssey/cnnexport/artifact"
	"github.com/nlpodyssey/cnnexport/layout"
)

var (
	// ErrNotFound is returned when a Source has no parameter with the
	// requested name.
	ErrNotFound = errors.New("tensor not found")
	// ErrShapeMismatch is returned when a tensor's actual shape disagrees
	// with the expected one, or with the pattern a transform requires.
	ErrShapeMismatch = layout.ErrShapeMismatch
	// ErrUnsupportedShape is returned for shapes no transform has a rule for.
	ErrUnsupportedShape = layout.ErrUnsupportedShape
	// ErrIOFailure is returned when an artifact could not be written.
	ErrIOFailure = artifact.ErrIOFailure
)

// TaskError reports the failure of one export task.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("export %q: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// kind names the taxonomy class of err, for logs and metrics.
func kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrUnsupportedShape):
		return "unsupported_shape"
	case errors.Is(err, ErrIOFailure):
		return "io_failure"
	default:
		return "other"
	}
}
