// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/nlpodyssey/cnnexport"
	"github.com/nlpodyssey/cnnexport/checkpoint"
	"github.com/nlpodyssey/cnnexport/internal/logger"
)

const (
	weightStdDev = 0.1
	biasInit     = 0.1
)

func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		out  = fs.String("out", "", "checkpoint file to create")
		seed = fs.Uint64("seed", 1, "random seed")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("missing -out")
	}

	tensors, err := initialize(cnnexport.DefaultNetwork(), *seed)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	md := map[string]string{"seed": strconv.FormatUint(*seed, 10)}
	if err := checkpoint.Write(f, tensors, md); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Log.Info("checkpoint initialized", "path", *out, "tensors", len(tensors))
	fmt.Fprintln(stdout, *out)
	return nil
}

// initialize draws untrained parameters for every export task: weights
// from a normal distribution truncated at two standard deviations, and
// constant biases.
func initialize(n cnnexport.Network, seed uint64) ([]cnnexport.Tensor, error) {
	rng := rand.New(rand.NewPCG(seed, seed))
	var tensors []cnnexport.Tensor
	for _, task := range n.Tasks("") {
		size, err := cnnexport.NumElements(task.Shape)
		if err != nil {
			return nil, err
		}
		data := make([]float32, size)
		for i := range data {
			if len(task.Shape) == 1 {
				data[i] = biasInit
			} else {
				data[i] = truncatedNormal(rng, weightStdDev)
			}
		}
		t, err := cnnexport.NewTensor(task.Name, task.Shape, data)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}
	return tensors, nil
}

func truncatedNormal(rng *rand.Rand, stddev float64) float32 {
	for {
		if v := rng.NormFloat64(); v > -2 && v < 2 {
			return float32(v * stddev)
		}
	}
}
