// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/strongdm/go-composefs/erofs"
	"github.com/strongdm/go-composefs/tree"
)

// imageFlags holds the flags shared by the dump and build subcommands.
type imageFlags struct {
	output        string
	useEpoch      bool
	skipXattrs    bool
	userXattrs    bool
	skipDevices   bool
	computeDigest bool
	byDigest      bool
	digestAlgo    string
	minVersion    int
	maxVersion    int
}

func registerImageFlags(fs *flag.FlagSet) *imageFlags {
	f := &imageFlags{}
	fs.StringVar(&f.output, "o", "", `output image path, "-" for stdout`)
	fs.BoolVar(&f.useEpoch, "use-epoch", false, "clamp all mtimes to 0 in the emitted image")
	fs.BoolVar(&f.skipXattrs, "skip-xattrs", false, "drop all xattrs from the emitted image")
	fs.BoolVar(&f.userXattrs, "user-xattrs", false, `keep only "user." prefixed xattrs`)
	fs.BoolVar(&f.skipDevices, "skip-devices", false, "omit block/char device nodes from the emitted image")
	fs.BoolVar(&f.computeDigest, "compute-digest", false, "compute a content digest for every regular file")
	fs.BoolVar(&f.byDigest, "by-digest", false, "require every regular file to carry a digest")
	fs.StringVar(&f.digestAlgo, "digest-algo", "sha256", "content digest algorithm: sha256 or blake3")
	fs.IntVar(&f.minVersion, "min-version", 0, "minimum emitted format version")
	fs.IntVar(&f.maxVersion, "max-version", 0, "maximum emitted format version")
	return f
}

func (f *imageFlags) erofsOptions() erofs.Options {
	return erofs.Options{
		UseEpoch:      f.useEpoch,
		SkipXattrs:    f.skipXattrs,
		UserXattrs:    f.userXattrs,
		SkipDevices:   f.skipDevices,
		ComputeDigest: f.computeDigest,
		ByDigest:      f.byDigest,
		Format:        erofs.FormatEROFS,
		Version:       f.minVersion,
		MaxVersion:    f.maxVersion,
	}
}

// writeImage drives a dry-run Encoder over t and writes the result to
// f.output. It refuses to write binary encoder output to an interactive
// terminal, following the pack's isatty convention.
func writeImage(t *tree.Tree, f *imageFlags) error {
	if f.output == "" {
		return nil
	}

	var out *os.File
	if f.output == "-" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("refusing to write image to a terminal; redirect stdout or pass -o <path>")
		}
		out = os.Stdout
	} else {
		created, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("create %s: %w", f.output, err)
		}
		defer created.Close()
		out = created
	}

	w := bufio.NewWriter(out)
	opts := f.erofsOptions()
	opts.WriteSink = w.Write
	if err := erofs.Drive(erofs.Null{}, t, opts); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return w.Flush()
}
