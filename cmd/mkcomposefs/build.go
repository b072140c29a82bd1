// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/strongdm/go-composefs/store"
	"github.com/strongdm/go-composefs/walker"
)

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	imgFlags := registerImageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: mkcomposefs build <srcdir> <store>")
	}
	srcDir, storeDir := fs.Arg(0), fs.Arg(1)

	if imgFlags.byDigest && !imgFlags.computeDigest {
		return fmt.Errorf("-by-digest requires -compute-digest")
	}

	t, err := walker.Walk(srcDir)
	if err != nil {
		return fmt.Errorf("walk %s: %w", srcDir, err)
	}

	if err := assignPayloads(t, srcDir, imgFlags.digestAlgo, imgFlags.computeDigest); err != nil {
		return fmt.Errorf("assign payloads: %w", err)
	}

	stats, err := store.Populate(t, srcDir, storeDir, store.NewOptions())
	if err != nil {
		return fmt.Errorf("populate %s: %w", storeDir, err)
	}
	fmt.Fprintf(os.Stderr, "run %s: wrote %d files, skipped %d, %d bytes\n",
		stats.RunID, stats.FilesWritten, stats.FilesSkipped, stats.BytesCopied)

	return writeImage(t, imgFlags)
}
