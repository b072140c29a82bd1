// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"fmt"
	"io"

	"github.com/strongdm/go-composefs/escape"
	"github.com/strongdm/go-composefs/tree"
)

// Serialize writes t in canonical dump-manifest form to w: a depth-first,
// children-sorted-by-name walk, one record per node, hardlinks emitted
// with the '@' MODE prefix and their target's resolved path as PAYLOAD.
//
// Two serializations of trees that are equal in every attribute this
// package parses always produce byte-identical output, which is what
// makes parse-then-serialize a usable canonicalization for idempotence
// testing (P2): it does not promise to reproduce the exact bytes of
// whatever dump produced the tree, only a stable rendering of the tree
// itself.
func Serialize(w io.Writer, t *tree.Tree) error {
	targets := indexHardlinkTargets(t.Root())
	return serializeNode(w, t.Root(), "/", targets)
}

// indexHardlinkTargets walks the tree once to assign a canonical absolute
// path to every node that is some hardlink's target, so hardlink records
// can reference it without a second tree walk per hardlink.
func indexHardlinkTargets(root *tree.Node) map[*tree.Node]string {
	paths := make(map[*tree.Node]string)
	var walk func(n *tree.Node, path string)
	walk = func(n *tree.Node, path string) {
		paths[n] = path
		for _, c := range n.Children() {
			childPath := path
			if childPath != "/" {
				childPath += "/"
			}
			childPath += c.Name()
			walk(c, childPath)
		}
	}
	walk(root, "/")
	return paths
}

func serializeNode(w io.Writer, n *tree.Node, path string, targets map[*tree.Node]string) error {
	if err := writeRecord(w, n, path, targets); err != nil {
		return err
	}
	for _, c := range n.Children() {
		childPath := path
		if childPath != "/" {
			childPath += "/"
		}
		childPath += c.Name()
		if err := serializeNode(w, c, childPath, targets); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w io.Writer, n *tree.Node, path string, targets map[*tree.Node]string) error {
	if target := n.HardlinkTarget(); target != nil {
		targetPath, ok := targets[target]
		if !ok {
			targetPath = "/"
		}
		_, err := fmt.Fprintf(w, "%s %d @%o %d %d %d %d %d.%d %s - -\n",
			escape.Encode([]byte(path)),
			0, n.ResolvedMode(), n.Nlink(), n.UID(), n.GID(), n.Rdev(),
			n.Mtime().Sec, n.Mtime().Nsec,
			escape.Encode([]byte(targetPath)),
		)
		return err
	}

	payloadField := escape.EncodeOptional(nil, false)
	if p, ok := n.Payload(); ok {
		payloadField = escape.Encode([]byte(p))
	}

	contentField := []byte("-")
	if c, ok := n.Content(); ok {
		contentField = escape.Encode(c)
	}

	digestField := "-"
	if d, ok := n.Digest(); ok {
		digestField = escape.EncodeHexDigest(d[:])
	}

	if _, err := fmt.Fprintf(w, "%s %d %o %d %d %d %d %d.%d %s %s %s",
		escape.Encode([]byte(path)),
		n.Size(), n.Mode(), n.Nlink(), n.UID(), n.GID(), n.Rdev(),
		n.Mtime().Sec, n.Mtime().Nsec,
		payloadField, contentField, digestField,
	); err != nil {
		return err
	}

	for _, x := range n.Xattrs() {
		if _, err := fmt.Fprintf(w, " %s=%s", escape.Encode(x.Key), escape.Encode(x.Value)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "\n")
	return err
}
