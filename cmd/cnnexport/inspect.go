// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"text/tabwriter"

	"github.com/nlpodyssey/cnnexport/artifact"
	"github.com/nlpodyssey/cnnexport/checkpoint"
)

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	headerSizeLimit := fs.Int("header-size-limit", 0, "maximum checkpoint header size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no files to inspect")
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, path := range fs.Args() {
		var err error
		if filepath.Ext(path) == ".safetensors" {
			err = inspectCheckpoint(tw, path, *headerSizeLimit)
		} else {
			err = inspectArtifact(tw, path)
		}
		if err != nil {
			_ = tw.Flush()
			return err
		}
	}
	return tw.Flush()
}

func inspectArtifact(w io.Writer, path string) error {
	values, err := artifact.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	var nan, inf int
	for _, v := range values {
		switch {
		case v.IsNaN():
			nan++
		case v.IsInf(0):
			inf++
		default:
			f := float64(v.Float32())
			lo, hi = math.Min(lo, f), math.Max(hi, f)
		}
	}
	if len(values) == nan+inf {
		lo, hi = math.NaN(), math.NaN()
	}
	_, err = fmt.Fprintf(w, "%s\tn=%d\tmin=%g\tmax=%g\tnan=%d\tinf=%d\n", path, len(values), lo, hi, nan, inf)
	return err
}

func inspectCheckpoint(w io.Writer, path string, headerSizeLimit int) error {
	c, err := checkpoint.Open(path, headerSizeLimit)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, e := range c.Entries() {
		_, err := fmt.Fprintf(w, "%s:%s\t%s\t%v\t%d bytes\n", path, e.Name, e.DType, []int(e.Shape), e.DataOffsets.Len())
		if err != nil {
			return err
		}
	}
	return nil
}
