// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// reflink attempts a copy-on-write clone of src's extents into dst via
// FICLONE. Callers fall back to a buffered copy on any error, including
// "not supported on this filesystem".
func reflink(dst, src *os.File) error {
	return unix.IoctlFileClone(int(dst.Fd()), int(src.Fd()))
}
