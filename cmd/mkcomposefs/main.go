// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command mkcomposefs builds composefs content stores (and, via a
// pluggable Encoder, composefs images) from either a dump manifest or a
// live directory tree.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "dump":
		err = runDump(os.Args[2:])
	case "build":
		err = runBuild(os.Args[2:])
	case "verify-dump":
		err = runVerifyDump(os.Args[2:])
	case "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "mkcomposefs: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkcomposefs %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  mkcomposefs dump <input> [flags]
  mkcomposefs build <srcdir> <store> [flags]
  mkcomposefs verify-dump <input>

flags (dump, build):
  -o string           output image path, "-" for stdout (default: no image written)
  -use-epoch          clamp all mtimes to 0 in the emitted image
  -skip-xattrs        drop all xattrs from the emitted image
  -user-xattrs        keep only "user." prefixed xattrs
  -skip-devices       omit block/char device nodes from the emitted image
  -compute-digest     compute a content digest for every regular file
  -by-digest          require every regular file to carry a digest (build: also requires -compute-digest)
  -digest-algo string content digest algorithm: sha256 or blake3 (default "sha256")
  -min-version int    minimum emitted format version
  -max-version int    maximum emitted format version`)
}
