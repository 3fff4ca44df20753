// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the settings of an export run from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nlpodyssey/cnnexport"
	"gopkg.in/yaml.v3"
)

// DefaultHeaderSizeLimit bounds the checkpoint JSON header read into memory.
const DefaultHeaderSizeLimit = 100 << 20

type Config struct {
	Checkpoint      string            `yaml:"checkpoint"`
	OutputDir       string            `yaml:"output_dir"`
	Workers         int               `yaml:"workers"`
	HeaderSizeLimit int               `yaml:"header_size_limit"`
	LogLevel        string            `yaml:"log_level"`
	LogFormat       string            `yaml:"log_format"`
	MetricsFile     string            `yaml:"metrics_file"`
	Network         cnnexport.Network `yaml:"network"`
}

// Default returns the settings used when no file or flag overrides them.
func Default() Config {
	return Config{
		OutputDir:       ".",
		Workers:         1,
		HeaderSizeLimit: DefaultHeaderSizeLimit,
		LogLevel:        "info",
		LogFormat:       "console",
		Network:         cnnexport.DefaultNetwork(),
	}
}

// Load reads a YAML file on top of Default. Unknown fields are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default. Empty input yields Default.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Checkpoint == "" {
		return errors.New("missing checkpoint path")
	}
	if c.OutputDir == "" {
		return errors.New("missing output_dir")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d (must be positive)", c.Workers)
	}
	if c.HeaderSizeLimit < 0 {
		return fmt.Errorf("invalid header_size_limit: %d (must not be negative)", c.HeaderSizeLimit)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log_format: %q", c.LogFormat)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("invalid network: %w", err)
	}
	return nil
}
