// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package walker

import "path/filepath"

// Option configures a Walk.
type Option func(*Options)

// Options holds the effective configuration for a Walk call, built by
// applying a sequence of Option values over the defaults.
type Options struct {
	excludePatterns []string
	excludeFn       func(path string, isDir bool) bool
	followSymlinks  bool
	maxFileSize     int64
	maxFiles        int
}

// NewOptions applies opts over the defaults and returns the resulting
// Options. Defaults mirror the teacher's fstree package: symlinks are
// captured as symlinks (not followed), a 100MB per-file cap, and a
// 100,000 file cap.
func NewOptions(opts ...Option) Options {
	o := Options{
		maxFileSize: 100 * 1024 * 1024,
		maxFiles:    100000,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithExclude adds glob patterns for paths to exclude. Patterns are
// matched against the relative path from root, and also against the
// path's base name; a trailing "/**" is treated as a directory-prefix
// match.
func WithExclude(patterns ...string) Option {
	return func(o *Options) {
		o.excludePatterns = append(o.excludePatterns, patterns...)
	}
}

// WithExcludeFunc sets a custom exclusion predicate. It's called for
// every file and directory encountered; returning true excludes it (and,
// for a directory, its entire subtree).
func WithExcludeFunc(fn func(path string, isDir bool) bool) Option {
	return func(o *Options) {
		o.excludeFn = fn
	}
}

// WithFollowSymlinks dereferences symlinks instead of recording them as
// symlink nodes. Circular symlinks are still detected and reported as
// ErrCyclicLink.
func WithFollowSymlinks() Option {
	return func(o *Options) {
		o.followSymlinks = true
	}
}

// WithMaxFileSize sets the largest regular file Walk will include.
// Larger files cause Walk to fail with ErrFileTooLarge.
func WithMaxFileSize(bytes int64) Option {
	return func(o *Options) {
		o.maxFileSize = bytes
	}
}

// WithMaxFiles sets the largest number of regular files Walk will
// include before failing with ErrTooManyFiles.
func WithMaxFiles(n int) Option {
	return func(o *Options) {
		o.maxFiles = n
	}
}

func (o *Options) shouldExclude(relPath string, isDir bool) bool {
	if o.excludeFn != nil && o.excludeFn(relPath, isDir) {
		return true
	}
	for _, pattern := range o.excludePatterns {
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(relPath)); matched {
			return true
		}
		if isDir && len(pattern) > 3 && pattern[len(pattern)-3:] == "/**" {
			prefix := pattern[:len(pattern)-3]
			if matched, _ := filepath.Match(prefix, relPath); matched {
				return true
			}
		}
	}
	return false
}
