// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nlpodyssey/cnnexport/float16"
)

// WriteFile writes the artifact of values to path, replacing any existing
// file. Data goes to a temporary file in the same directory which is
// renamed into place only once fully written and synced; on failure the
// temporary file is removed and path is left untouched.
func WriteFile(path string, values []float16.F16) (int64, error) {
	if err := checkCount(len(values)); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	tmp := f.Name()

	n, err := write(f, values)
	if err == nil {
		err = f.Chmod(0o644)
	}
	if err == nil {
		err = f.Sync()
	}
	if e := f.Close(); e != nil && err == nil {
		err = e
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("%w: writing %s: %w", ErrIOFailure, path, err)
	}
	return n, nil
}

// ReadFile decodes the artifact stored at path.
func ReadFile(path string) ([]float16.F16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}
