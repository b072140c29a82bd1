// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/strongdm/go-composefs/dump"
)

// runDump builds an image from a dump manifest. A dump's regular files
// normally carry a payload path with no inline content (spec.md §1: a
// dump references a content store, it doesn't embed file bytes), so
// unlike runBuild this never calls store.Populate — there is no source
// directory to copy bytes from, and the store a dump's payloads point
// into is assumed to already be populated by whatever produced the dump.
func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	imgFlags := registerImageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mkcomposefs dump <input>")
	}
	input := fs.Arg(0)

	r, err := openInput(input)
	if err != nil {
		return err
	}
	defer r.Close()

	t, err := dump.Parse(r)
	if err != nil {
		return fmt.Errorf("parse %s: %w", input, err)
	}

	return writeImage(t, imgFlags)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
