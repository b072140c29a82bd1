// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package erofs defines the option bag and encoder interface the core
// hands a finished tree to. No concrete EROFS byte-format implementation
// ships here — spec Non-goal: writing or mounting EROFS — this package is
// the sink/option-bag surface an external encoder plugs into, plus the
// glue that validates options and drives whichever Encoder is supplied.
package erofs

import (
	"fmt"

	"github.com/strongdm/go-composefs/tree"
)

// Format names an on-disk format tag. Only FormatEROFS is defined; the
// field exists so a future format can be added without changing Options'
// shape.
type Format int

const (
	FormatEROFS Format = iota
)

// Options is the option bag passed to an Encoder.
type Options struct {
	// UseEpoch clamps all mtimes to 0 in the emitted image.
	UseEpoch bool

	// SkipXattrs drops all xattrs when walking a live tree.
	SkipXattrs bool

	// UserXattrs keeps only xattr keys with the "user." prefix.
	UserXattrs bool

	// SkipDevices omits block/char device nodes.
	SkipDevices bool

	// ComputeDigest requests that the encoder compute and emit the
	// image's fsverity digest into DigestOut.
	ComputeDigest bool

	// ByDigest requires every regular-file node to carry a digest;
	// Drive checks this before calling the encoder.
	ByDigest bool

	// Format is the target on-disk format tag.
	Format Format

	// Version and MaxVersion bound the emitted format version,
	// inclusive.
	Version    int
	MaxVersion int

	// WriteSink receives the encoded byte stream.
	WriteSink func(p []byte) (int, error)

	// DigestOut is populated on success when ComputeDigest is set.
	DigestOut *[32]byte
}

// Encoder consumes a frozen tree and an option bag and produces an
// on-disk image via Options.WriteSink. It is a pure consumer of the
// tree: it must not mutate it.
type Encoder interface {
	Encode(t *tree.Tree, opts Options) error
}

// ErrMissingDigest is returned by Drive when opts.ByDigest is set but a
// regular-file node has no digest attached.
var ErrMissingDigest = fmt.Errorf("erofs: regular file missing digest with by_digest set")

// ErrNoWriteSink is returned by Drive when opts.WriteSink is nil.
var ErrNoWriteSink = fmt.Errorf("erofs: no write sink configured")

// Drive validates opts against t and, if the option bag is coherent,
// calls enc.Encode. Validation lives here rather than in each Encoder so
// every encoder gets the same option-bag contract enforced once.
func Drive(enc Encoder, t *tree.Tree, opts Options) error {
	if opts.WriteSink == nil {
		return ErrNoWriteSink
	}
	if opts.ByDigest {
		if err := requireDigests(t.Root()); err != nil {
			return err
		}
	}
	return enc.Encode(t, opts)
}

func requireDigests(n *tree.Node) error {
	if n.IsRegular() {
		if _, ok := n.Digest(); !ok {
			return ErrMissingDigest
		}
	}
	for _, c := range n.Children() {
		if err := requireDigests(c); err != nil {
			return err
		}
	}
	return nil
}
