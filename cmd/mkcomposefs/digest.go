// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/strongdm/go-composefs/tree"
)

// assignPayloads hashes every regular file under srcDir and assigns it a
// content-addressed payload path of the form "by-<algo>/<2 hex>/<rest>".
// digest-algo only names the payload scheme here: fsverity's own digest
// is fixed to SHA-256 by the kernel ABI regardless of this choice. When
// computeDigest is set, the same hash is also attached to the node via
// SetDigest for -by-digest to check later.
func assignPayloads(t *tree.Tree, srcDir, algo string, computeDigest bool) error {
	return assignNode(t.Root(), "", srcDir, algo, computeDigest)
}

func assignNode(n *tree.Node, relPath, srcDir, algo string, computeDigest bool) error {
	if n.IsRegular() {
		data, err := os.ReadFile(filepath.Join(srcDir, relPath))
		if err != nil {
			return fmt.Errorf("read %s: %w", relPath, err)
		}
		digest, err := hashContent(data, algo)
		if err != nil {
			return err
		}
		hexDigest := hex.EncodeToString(digest[:])
		n.SetPayload(fmt.Sprintf("by-%s/%s/%s", algo, hexDigest[:2], hexDigest[2:]))
		if computeDigest {
			if err := n.SetDigest(digest); err != nil {
				return err
			}
		}
	}
	for _, c := range n.Children() {
		if err := assignNode(c, relPath+"/"+c.Name(), srcDir, algo, computeDigest); err != nil {
			return err
		}
	}
	return nil
}

func hashContent(data []byte, algo string) ([32]byte, error) {
	switch algo {
	case "sha256":
		return sha256.Sum256(data), nil
	case "blake3":
		return blake3.Sum256(data), nil
	default:
		return [32]byte{}, fmt.Errorf("unknown digest algorithm %q (want sha256 or blake3)", algo)
	}
}
