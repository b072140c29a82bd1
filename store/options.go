// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package store

import "github.com/strongdm/go-composefs/verity"

// Options configures Populate. Build one with NewOptions and functional
// Option values, the same pattern fstree.Option applies to its own
// options struct.
type Options struct {
	// EnableVerity gates whether Verity.Enable is attempted at all for
	// each materialized file. When false, Verity is never consulted.
	EnableVerity bool

	// Verity is the fsverity capability to invoke when EnableVerity is
	// set. Defaults to verity.Disabled{}.
	Verity verity.Capability

	// DirMode is the mode used for created content-store directories.
	DirMode uint32

	// FileMode is the mode used for committed content-store files.
	FileMode uint32
}

// Option mutates an Options being built by NewOptions.
type Option func(*Options)

// NewOptions applies opts over the populator's defaults (no verity,
// DirMode 0755, FileMode 0644 — spec.md §4.4's hard-coded values).
func NewOptions(opts ...Option) Options {
	o := Options{
		Verity:   verity.Disabled{},
		DirMode:  0o755,
		FileMode: 0o644,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithVerity enables fsverity enablement on every materialized file using
// cap. Per the populator's design, failures from cap.Enable are swallowed
// and never abort the traversal.
func WithVerity(cap verity.Capability) Option {
	return func(o *Options) {
		o.EnableVerity = true
		o.Verity = cap
	}
}

// WithDirMode overrides the mode used for created content-store
// directories.
func WithDirMode(mode uint32) Option {
	return func(o *Options) {
		o.DirMode = mode
	}
}

// WithFileMode overrides the mode used for committed content-store
// files.
func WithFileMode(mode uint32) Option {
	return func(o *Options) {
		o.FileMode = mode
	}
}
