// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package tree implements the in-memory node model underlying a composefs
// image: a directory tree of Node values carrying the POSIX metadata,
// optional inline content, optional content-store payload reference, and
// xattrs needed to either parse from or serialize to a dump manifest.
//
// A Node never embeds its own children map directly accessible to callers;
// mutation goes through Tree so that invariants (unique sibling names, a
// single owning parent, hardlink chain length) are enforced in one place.
package tree

import "sort"

// Mode bits, following the POSIX st_mode layout used throughout the dump
// format (spec §4.3's MODE field is this value verbatim, in octal).
const (
	ModeFmt  uint32 = 0o170000
	ModeDir  uint32 = 0o040000
	ModeReg  uint32 = 0o100000
	ModeLnk  uint32 = 0o120000
	ModeChr  uint32 = 0o020000
	ModeBlk  uint32 = 0o060000
	ModeFifo uint32 = 0o010000
	ModeSock uint32 = 0o140000
)

// Time holds a POSIX timestamp at nanosecond resolution, matching the
// MTIME field's "seconds.nanoseconds" dump encoding.
type Time struct {
	Sec  uint64
	Nsec uint64
}

// Node is one entry of a tree: a directory, regular file, symlink, device,
// fifo or socket. Getters that reflect content (Size, Content, Digest,
// Payload) delegate to the hardlink target when one is set, since a
// hardlinked node shares its target's content identity; Nlink does not
// delegate, since link count is per-name-count, not per-content.
type Node struct {
	name string

	mode uint32
	uid  uint32
	gid  uint32
	nlink uint32
	rdev uint32
	mtime Time

	size       uint64
	hasContent bool
	content    []byte
	digest     *[32]byte
	hasDigest  bool

	payload   string
	hasPayload bool

	xattrs xattrList

	parent   *Node
	children map[string]*Node
	order    []string

	hardlinkTarget *Node
}

func newNode(name string, mode uint32) *Node {
	return &Node{
		name:   name,
		mode:   mode,
		nlink:  1,
		xattrs: newXattrList(),
	}
}

// Name returns the node's name within its parent (empty for the root).
func (n *Node) Name() string { return n.name }

// Mode returns the full POSIX mode, including the type bits in ModeFmt.
func (n *Node) Mode() uint32 { return n.mode }

// SetMode replaces the node's mode. The type bits (ModeFmt) of mode must
// match the node's existing type; SetMode only exists to change permission
// bits, not to retype a node.
func (n *Node) SetMode(mode uint32) {
	n.mode = (n.mode &^ 0o7777) | (mode & 0o7777)
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.mode&ModeFmt == ModeDir }

// IsRegular reports whether the node is a regular file.
func (n *Node) IsRegular() bool { return n.mode&ModeFmt == ModeReg }

// IsSymlink reports whether the node is a symbolic link.
func (n *Node) IsSymlink() bool { return n.mode&ModeFmt == ModeLnk }

// IsDevice reports whether the node is a character or block device.
func (n *Node) IsDevice() bool {
	t := n.mode & ModeFmt
	return t == ModeChr || t == ModeBlk
}

// resolved returns the node whose content-bearing fields should actually
// be consulted: the hardlink target if one is set, else the node itself.
func (n *Node) resolved() *Node {
	if n.hardlinkTarget != nil {
		return n.hardlinkTarget
	}
	return n
}

// ResolvedMode returns the full POSIX mode, following the hardlink target
// if one is set. Use this instead of Mode when rendering a node's
// metadata (e.g. for serialization); Mode/IsDir/IsRegular etc. use the
// node's own intrinsic type bits, which is what construction-time checks
// (can this be hardlinked at all?) need before a hardlink is resolved.
func (n *Node) ResolvedMode() uint32 { return n.resolved().mode }

func (n *Node) UID() uint32 { return n.resolved().uid }
func (n *Node) SetUID(uid uint32) { n.uid = uid }

func (n *Node) GID() uint32 { return n.resolved().gid }
func (n *Node) SetGID(gid uint32) { n.gid = gid }

// Nlink returns the node's link count. Unlike other content-bearing
// getters, Nlink never delegates to a hardlink target: each name in the
// tree contributes to the same link count, but the count itself is a
// property of the target, and MakeHardlink is responsible for keeping it
// correct (see DESIGN.md's Open Question resolution).
func (n *Node) Nlink() uint32 { return n.nlink }

// SetNlink sets the node's raw link count field.
func (n *Node) SetNlink(nlink uint32) { n.nlink = nlink }

func (n *Node) Rdev() uint32 { return n.resolved().rdev }
func (n *Node) SetRdev(rdev uint32) { n.rdev = rdev }

func (n *Node) Mtime() Time { return n.resolved().mtime }
func (n *Node) SetMtime(t Time) { n.mtime = t }

// Size returns the node's declared content size, following the hardlink
// target if one is set.
func (n *Node) Size() uint64 { return n.resolved().size }

// SetSize sets the node's declared content size. If content has already
// been set via SetContent, the new size must match its length or
// ErrContentSizeMismatch is returned.
func (n *Node) SetSize(size uint64) error {
	r := n.resolved()
	if r.hasContent && uint64(len(r.content)) != size {
		return ErrContentSizeMismatch
	}
	r.size = size
	return nil
}

// Content returns the node's inline content and whether any was set,
// following the hardlink target if one is set.
func (n *Node) Content() ([]byte, bool) {
	r := n.resolved()
	return r.content, r.hasContent
}

// SetContent sets inline file content. Only valid on regular files. The
// length of content must match a previously set Size, if any; otherwise
// Size is derived from len(content).
func (n *Node) SetContent(content []byte) error {
	if !n.IsRegular() {
		return ErrNotRegularFile
	}
	if n.hasContent || n.size != 0 {
		if uint64(len(content)) != n.size && n.size != 0 {
			return ErrContentSizeMismatch
		}
	}
	n.content = content
	n.hasContent = true
	n.size = uint64(len(content))
	return nil
}

// Digest returns the node's content digest and whether one was set,
// following the hardlink target if one is set.
func (n *Node) Digest() ([32]byte, bool) {
	r := n.resolved()
	if !r.hasDigest {
		return [32]byte{}, false
	}
	return *r.digest, true
}

// SetDigest sets the node's content digest. Only valid on regular files.
func (n *Node) SetDigest(digest [32]byte) error {
	if !n.IsRegular() {
		return ErrNotRegularFile
	}
	d := digest
	n.digest = &d
	n.hasDigest = true
	return nil
}

// Payload returns the node's payload string and whether one was set,
// following the hardlink target if one is set. Payload is overloaded by
// node type: a content-store relative path for regular files, or the
// link target for symlinks.
func (n *Node) Payload() (string, bool) {
	r := n.resolved()
	return r.payload, r.hasPayload
}

// SetPayload sets the node's payload string.
func (n *Node) SetPayload(payload string) {
	n.payload = payload
	n.hasPayload = true
}

// ClearPayload removes any payload value.
func (n *Node) ClearPayload() {
	n.payload = ""
	n.hasPayload = false
}

// SetXattr adds an extended attribute. It fails with ErrDuplicateXattr if
// key is already set on this node; xattrs are append-only during
// construction, matching the dump format's one-xattr-definition-per-key
// rule.
func (n *Node) SetXattr(key, value []byte) error {
	return n.xattrs.set(key, value)
}

// Xattr looks up a single extended attribute by key.
func (n *Node) Xattr(key string) ([]byte, bool) {
	return n.xattrs.get(key)
}

// Xattrs returns all extended attributes in the order they were set.
func (n *Node) Xattrs() []Xattr {
	return n.xattrs.List()
}

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// HardlinkTarget returns the node this node is hardlinked to, or nil if
// this node is not a hardlink.
func (n *Node) HardlinkTarget() *Node { return n.hardlinkTarget }

// Child looks up an immediate child by name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// Children returns the node's immediate children in sorted-by-name order,
// which is the order the dump writer and erofs encoder must both use for
// deterministic output.
func (n *Node) Children() []*Node {
	names := make([]string, len(n.order))
	copy(names, n.order)
	sort.Strings(names)
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		out = append(out, n.children[name])
	}
	return out
}
