// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cnnexport exports classifier weights into runtime artifacts.
//
// Usage:
//
//	cnnexport export -checkpoint model.safetensors -out weights/
//	cnnexport init -out model.safetensors [-seed 42]
//	cnnexport inspect weights/w_conv1.bin model.safetensors
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: cnnexport <command> [flags]

commands:
  export   export every network parameter as a binary16 artifact
  init     write an untrained checkpoint with the training initializers
  inspect  summarize artifacts or checkpoints
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "export":
		err = runExport(ctx, args[1:], stderr)
	case "init":
		err = runInit(args[1:], stdout, stderr)
	case "inspect":
		err = runInspect(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "cnnexport %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
