// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nlpodyssey/cnnexport"
	"github.com/nlpodyssey/cnnexport/checkpoint"
	"github.com/nlpodyssey/cnnexport/internal/config"
	"github.com/nlpodyssey/cnnexport/internal/logger"
	"github.com/nlpodyssey/cnnexport/internal/metrics"
)

func runExport(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath      = fs.String("config", "", "YAML config file")
		checkpointPath  = fs.String("checkpoint", "", "safetensors checkpoint with the trained parameters")
		outDir          = fs.String("out", "", "directory receiving the artifacts")
		workers         = fs.Int("workers", 0, "tensors exported concurrently")
		headerSizeLimit = fs.Int("header-size-limit", 0, "maximum checkpoint header size in bytes")
		logLevel        = fs.String("log-level", "", "debug, info, warn or error")
		logFormat       = fs.String("log-format", "", "console or json")
		metricsFile     = fs.String("metrics-file", "", "write Prometheus metrics to this file when done")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	// explicitly set flags win over the config file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "checkpoint":
			cfg.Checkpoint = *checkpointPath
		case "out":
			cfg.OutputDir = *outDir
		case "workers":
			cfg.Workers = *workers
		case "header-size-limit":
			cfg.HeaderSizeLimit = *headerSizeLimit
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "metrics-file":
			cfg.MetricsFile = *metricsFile
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	err := export(ctx, cfg)
	if cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
			logger.Log.Error("failed to write metrics", "path", cfg.MetricsFile, "error", merr.Error())
		}
	}
	return err
}

func export(ctx context.Context, cfg config.Config) error {
	ckpt, err := checkpoint.Open(cfg.Checkpoint, cfg.HeaderSizeLimit)
	if err != nil {
		return err
	}
	defer ckpt.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", cnnexport.ErrIOFailure, err)
	}

	logger.Log.Info("exporting",
		"checkpoint", cfg.Checkpoint,
		"tensors", len(ckpt.Names()),
		"out", cfg.OutputDir,
	)
	exp := cnnexport.NewExporter(ckpt, cnnexport.WithWorkers(cfg.Workers))
	_, err = exp.Run(ctx, cfg.Network.Tasks(cfg.OutputDir))
	return err
}
