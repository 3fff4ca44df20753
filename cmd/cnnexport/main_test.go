// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nlpodyssey/cnnexport"
	"github.com/nlpodyssey/cnnexport/artifact"
	"github.com/nlpodyssey/cnnexport/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: cnnexport")

	code, _, stderr = runCmd(t, "train")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "train"`)

	code, stdout, _ := runCmd(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "commands:")
}

func TestRun_InitExportInspect(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "model.safetensors")
	out := filepath.Join(dir, "weights")
	metricsFile := filepath.Join(dir, "cnnexport.prom")

	code, stdout, stderr := runCmd(t, "init", "-out", ckpt, "-seed", "7")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, ckpt+"\n", stdout)

	code, _, stderr = runCmd(t, "export",
		"-checkpoint", ckpt,
		"-out", out,
		"-workers", "3",
		"-log-level", "warn",
		"-metrics-file", metricsFile,
	)
	require.Equal(t, 0, code, stderr)

	for _, task := range cnnexport.DefaultNetwork().Tasks(out) {
		values, err := artifact.ReadFile(task.Path)
		require.NoError(t, err, task.Name)
		n, err := cnnexport.NumElements(task.Shape)
		require.NoError(t, err)
		assert.Len(t, values, n, task.Name)
	}

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "cnnexport_tensors_exported_total")

	code, stdout, stderr = runCmd(t, "inspect", filepath.Join(out, "b_conv1.bin"), ckpt)
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "n=16")
	// biases are initialized to 0.1, stored as the nearest binary16 value
	assert.Contains(t, lines[0], "min=0.0999755859375")
	assert.Contains(t, lines[0], "nan=0")
	assert.Contains(t, stdout, ckpt+":w_fc1")
}

func TestRun_ExportConfigFile(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "model.safetensors")
	code, _, stderr := runCmd(t, "init", "-out", ckpt)
	require.Equal(t, 0, code, stderr)

	cfgPath := filepath.Join(dir, "export.yaml")
	cfg := "checkpoint: " + ckpt + "\noutput_dir: " + filepath.Join(dir, "from-file") + "\nlog_level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	// -out overrides output_dir
	flagOut := filepath.Join(dir, "from-flag")
	code, _, stderr = runCmd(t, "export", "-config", cfgPath, "-out", flagOut)
	require.Equal(t, 0, code, stderr)

	assert.FileExists(t, filepath.Join(flagOut, "w_conv1.bin"))
	assert.NoDirExists(t, filepath.Join(dir, "from-file"))
}

func TestRun_ExportFailures(t *testing.T) {
	t.Run("missing checkpoint flag", func(t *testing.T) {
		code, _, stderr := runCmd(t, "export", "-out", t.TempDir())
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "missing checkpoint path")
	})

	t.Run("missing tensor", func(t *testing.T) {
		dir := t.TempDir()
		ckpt := filepath.Join(dir, "partial.safetensors")
		b, err := cnnexport.NewTensor("b_conv1", []int{16}, make([]float32, 16))
		require.NoError(t, err)
		f, err := os.Create(ckpt)
		require.NoError(t, err)
		require.NoError(t, checkpoint.Write(f, []cnnexport.Tensor{b}, nil))
		require.NoError(t, f.Close())

		code, _, stderr := runCmd(t, "export", "-checkpoint", ckpt, "-out", dir, "-log-level", "error")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, `export "w_conv1": tensor not found: "w_conv1"`)
		assert.NoFileExists(t, filepath.Join(dir, "b_conv1.bin"))
	})
}

func TestRun_InspectFailures(t *testing.T) {
	code, _, stderr := runCmd(t, "inspect")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no files to inspect")

	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte{2, 0, 0, 0, 0, 0}, 0o644))
	code, _, stderr = runCmd(t, "inspect", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, path)
}

func TestInitialize(t *testing.T) {
	a, err := initialize(cnnexport.DefaultNetwork(), 42)
	require.NoError(t, err)
	b, err := initialize(cnnexport.DefaultNetwork(), 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.Len(t, a, 6)
	for _, x := range a {
		for _, v := range x.Data() {
			if len(x.Shape()) == 1 {
				assert.Equal(t, float32(biasInit), v, x.Name())
			} else {
				assert.LessOrEqual(t, v, float32(2*weightStdDev))
				assert.GreaterOrEqual(t, v, float32(-2*weightStdDev))
			}
		}
	}
}
