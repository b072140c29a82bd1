// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package erofs

import (
	"encoding/binary"

	"github.com/strongdm/go-composefs/tree"
)

// Null is a test/dry-run Encoder: it writes a tiny synthetic byte stream
// (a node count and, if requested, an all-zero placeholder digest)
// through Options.WriteSink, without producing anything resembling a real
// EROFS image. Of the option fields it reads only SkipDevices,
// ComputeDigest and DigestOut; the rest are ignored. It
// exists so store/dump/erofs wiring can be tested end-to-end without a
// real on-disk format encoder, which is out of scope for this module.
type Null struct{}

// Encode writes a 4-byte big-endian node-count header through
// opts.WriteSink (device nodes excluded when opts.SkipDevices is set). When
// opts.ComputeDigest is set, it also writes a placeholder all-zero digest
// and populates opts.DigestOut with it — real digest computation belongs
// to a real EROFS encoder, not this fixture.
func (Null) Encode(t *tree.Tree, opts Options) error {
	count := countNodes(t.Root(), opts)

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], count)
	if _, err := opts.WriteSink(header[:]); err != nil {
		return err
	}

	if opts.ComputeDigest {
		var digest [32]byte
		if _, err := opts.WriteSink(digest[:]); err != nil {
			return err
		}
		if opts.DigestOut != nil {
			*opts.DigestOut = digest
		}
	}
	return nil
}

func countNodes(n *tree.Node, opts Options) uint32 {
	var count uint32 = 1
	if opts.SkipDevices && n.IsDevice() {
		return 0
	}
	for _, c := range n.Children() {
		count += countNodes(c, opts)
	}
	return count
}
