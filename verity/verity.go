// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package verity models fsverity enablement as a fallible capability of
// the host, per the populator's "any failure is silently ignored" step:
// callers hold a Capability rather than calling an ioctl directly, so
// unsupported platforms and tests can swap in Disabled without touching
// populator logic.
package verity

import (
	"errors"
	"os"
)

// ErrVerityUnsupported is returned by Disabled.Enable. The populator
// swallows every error Enable returns (fsverity is advisory), so this
// only ever surfaces if a caller invokes Disabled directly.
var ErrVerityUnsupported = errors.New("verity: fsverity not supported on this capability")

// Capability enables fsverity on an already-written, read-only-reopened
// file. Implementations return an error on any failure; the populator
// that calls Enable is responsible for swallowing it, since verity here
// is advisory, not required.
type Capability interface {
	Enable(f *os.File) error
}

// Disabled is the default Capability for hosts that don't support
// fsverity, or when it wasn't requested; callers that opt into verity
// (store.WithVerity) are expected to pass a real implementation instead.
type Disabled struct{}

// Enable always fails with ErrVerityUnsupported.
func (Disabled) Enable(*os.File) error { return ErrVerityUnsupported }
