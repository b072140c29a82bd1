// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package store

import (
	"errors"
	"os"
)

var errReflinkUnsupported = errors.New("store: reflink not supported on this platform")

func reflink(dst, src *os.File) error {
	return errReflinkUnsupported
}
