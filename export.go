// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnnexport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nlpodyssey/cnnexport/artifact"
	"github.com/nlpodyssey/cnnexport/float16"
	"github.com/nlpodyssey/cnnexport/internal/logger"
	"github.com/nlpodyssey/cnnexport/internal/metrics"
	"github.com/nlpodyssey/cnnexport/layout"
	"golang.org/x/sync/errgroup"
)

// A Task exports one parameter tensor.
type Task struct {
	// Name of the parameter in the Source.
	Name string
	// Shape the parameter must have in the Source.
	Shape []int
	// Transform rewrites the parameter into the runtime layout.
	// A nil Transform is the identity.
	Transform layout.Transform
	// Path of the artifact.
	Path string
}

// Result describes an exported artifact.
type Result struct {
	Name     string
	Path     string
	Shape    []int
	Elements int
	Bytes    int64
	Stats    float16.Stats
}

// Exporter runs export tasks against a Source.
type Exporter struct {
	source  Source
	workers int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithWorkers sets how many tasks may run at the same time. Values below
// one are treated as one, which runs the tasks sequentially in order.
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		e.workers = max(n, 1)
	}
}

// NewExporter returns an Exporter reading parameters from src. By default
// tasks run sequentially.
func NewExporter(src Source, opts ...Option) *Exporter {
	e := &Exporter{source: src, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run exports every task. The first failing task cancels the tasks not
// started yet, and its error is returned as a *TaskError; artifacts
// written by other tasks of a failed run must not be relied upon.
//
// On success, results are in task order.
func (e *Exporter) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	if err := validateTasks(tasks); err != nil {
		return nil, err
	}
	start := time.Now()

	results := make([]Result, len(tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.Export(task)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int64
	for _, r := range results {
		total += r.Bytes
	}
	logger.Log.Info("export completed",
		"tensors", len(results),
		"bytes", total,
		"workers", e.workers,
		"duration", time.Since(start).String(),
	)
	return results, nil
}

// Export runs a single task: fetch, reindex, downcast, write.
// Failures are returned as a *TaskError.
func (e *Exporter) Export(task Task) (Result, error) {
	start := time.Now()
	r, err := e.export(task)
	if err != nil {
		metrics.RecordFailure(kind(err))
		logger.Log.Error("export failed", "tensor", task.Name, "kind", kind(err), "error", err.Error())
		return Result{}, &TaskError{Task: task.Name, Err: err}
	}
	metrics.RecordExport(task.Name, r.Bytes, time.Since(start))
	return r, nil
}

func (e *Exporter) export(task Task) (Result, error) {
	logger.Log.Debug("export started", "tensor", task.Name, "path", task.Path)

	t, err := Fetch(e.source, task.Name, task.Shape)
	if err != nil {
		return Result{}, err
	}

	transform := task.Transform
	if transform == nil {
		transform = layout.Identity{}
	}
	shape, data, err := layout.Apply(transform, t.Shape(), t.Data())
	if err != nil {
		return Result{}, err
	}

	stats := float16.Inspect(data)
	if !stats.Lossless() {
		metrics.RecordSaturation(task.Name, stats)
		logger.Log.Warn("values not representable in binary16",
			"tensor", task.Name,
			"overflow", stats.Overflow,
			"underflow", stats.Underflow,
			"nan", stats.NaN,
			"inf", stats.Inf,
		)
	}

	n, err := artifact.WriteFile(task.Path, float16.Downcast(data))
	if err != nil {
		return Result{}, err
	}

	logger.Log.Debug("export finished",
		"tensor", task.Name,
		"transform", transform.String(),
		"shape", shape,
		"bytes", n,
	)
	return Result{
		Name:     task.Name,
		Path:     task.Path,
		Shape:    shape,
		Elements: len(data),
		Bytes:    n,
		Stats:    stats,
	}, nil
}

func validateTasks(tasks []Task) error {
	if len(tasks) == 0 {
		return errors.New("no tasks to export")
	}
	names := make(map[string]bool, len(tasks))
	paths := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d: empty tensor name", i)
		}
		if t.Path == "" {
			return fmt.Errorf("task %q: empty artifact path", t.Name)
		}
		if names[t.Name] {
			return fmt.Errorf("task %q: duplicate tensor name", t.Name)
		}
		p := filepath.Clean(t.Path)
		if paths[p] {
			return fmt.Errorf("task %q: duplicate artifact path %s", t.Name, p)
		}
		names[t.Name] = true
		paths[p] = true
	}
	return nil
}
