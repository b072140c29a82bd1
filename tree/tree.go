// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"strings"
	"sync/atomic"
)

// Tree is an owning handle on a tree of Nodes, rooted at Root. Construction
// (dump parsing, directory walking) and consumption (serialization, store
// population, encoding) both hold a Tree rather than a bare *Node so that
// the underlying nodes can be shared between independent readers without
// either copying the tree or requiring a single exclusive owner to free it.
//
// Tree is not safe for concurrent mutation; concurrent read-only use (e.g.
// an erofs encoder and a store populator walking the same Tree on separate
// goroutines) is safe, since nothing here mutates an already-built tree.
type Tree struct {
	root *Node
	refs int32
}

// New creates a Tree with a single directory root node, mode 0755.
func New() *Tree {
	root := newNode("", ModeDir|0o755)
	root.nlink = 2
	return &Tree{root: root, refs: 1}
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// Ref increments the tree's reference count and returns t, so that callers
// handing the same Tree to multiple independent consumers (e.g. a dump
// writer and a store populator run over one parsed tree) can each Unref
// independently without coordinating who "owns" the tree.
func (t *Tree) Ref() *Tree {
	atomic.AddInt32(&t.refs, 1)
	return t
}

// Unref decrements the reference count. It reports whether this was the
// final reference; composefs builders have no finalizer to run (there is
// no native resource to release, unlike a C implementation's allocator),
// so the return value exists mainly for callers that want to assert
// balanced Ref/Unref pairs in tests.
func (t *Tree) Unref() bool {
	return atomic.AddInt32(&t.refs, -1) == 0
}

// AddChild attaches child to parent under name. parent must be a
// directory, name must not already be used as a sibling, and child must
// not already belong to another parent (a node can be relocated by the
// caller detaching it first, but this package provides no detach
// operation since dump parsing and directory walking both build trees
// strictly top-down).
//
// AddChild never touches parent.nlink. A dump-parsed tree carries its
// own nlink per directory record (set via SetNlink), and recomputing it
// from topology here would silently clobber that value every time a
// subdirectory record is attached; callers that actually want a
// topology-derived link count (e.g. a live directory walk) must compute
// and set it themselves once a directory's children are known.
func AddChild(parent, child *Node, name string) error {
	if !parent.IsDir() {
		return ErrNotDirectory
	}
	if child.parent != nil {
		return ErrHasParent
	}
	if _, exists := parent.children[name]; exists {
		return ErrAlreadyExists
	}
	if parent.children == nil {
		parent.children = make(map[string]*Node)
	}
	child.name = name
	child.parent = parent
	parent.children[name] = child
	parent.order = append(parent.order, name)
	return nil
}

// NewChild is a convenience wrapper that allocates a new node of the given
// mode, attaches it to parent under name via AddChild, and returns it.
func NewChild(parent *Node, name string, mode uint32) (*Node, error) {
	child := newNode(name, mode)
	if err := AddChild(parent, child, name); err != nil {
		return nil, err
	}
	return child, nil
}

// MakeHardlink sets node as a hardlink to target. Neither node nor target
// may be a directory, and target must not itself already be a hardlink
// (chains longer than one are rejected — a hardlink always points directly
// at the real node).
//
// Nlink is link-count accounting, not content identity, so wiring the
// hardlink pointer must not disturb it: this saves target's Nlink before
// touching anything and restores it afterwards, leaving the caller free to
// set Nlink on either node, in either order, around this call.
func MakeHardlink(node, target *Node) error {
	if node.IsDir() || target.IsDir() {
		return ErrIsDirectory
	}
	if node.hardlinkTarget != nil || target.hardlinkTarget != nil {
		return ErrAlreadyHardlinked
	}
	savedNlink := target.nlink
	node.hardlinkTarget = target
	target.nlink = savedNlink
	return nil
}

// LookupChild looks up a single path component under parent.
func LookupChild(parent *Node, name string) (*Node, bool) {
	return parent.Child(name)
}

// LookupPath resolves a slash-separated path from root, returning the
// final node. An empty path, "/" or "." resolves to root itself.
func LookupPath(root *Node, path string) (*Node, error) {
	node, _, err := lookup(root, path, false)
	return node, err
}

// LookupParentPath resolves a slash-separated path from root and returns
// the parent directory of the final component together with that
// component's name, without requiring the final component to exist. This
// is how AddChild-based construction locates where to attach a new node
// described by a dump record's PATH field.
func LookupParentPath(root *Node, path string) (parent *Node, name string, err error) {
	_, parentAndName, err := lookup(root, path, true)
	if err != nil {
		return nil, "", err
	}
	return parentAndName.parent, parentAndName.name, nil
}

type parentLookup struct {
	parent *Node
	name   string
}

func lookup(root *Node, path string, wantParent bool) (*Node, parentLookup, error) {
	clean := strings.Trim(path, "/")
	if clean == "" || clean == "." {
		if wantParent {
			return nil, parentLookup{}, ErrNotDirectory
		}
		return root, parentLookup{}, nil
	}

	rawParts := strings.Split(clean, "/")
	parts := rawParts[:0]
	for _, p := range rawParts {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		if wantParent {
			return nil, parentLookup{}, ErrNotDirectory
		}
		return root, parentLookup{}, nil
	}
	cur := root
	limit := len(parts)
	if wantParent {
		limit--
	}
	for i := 0; i < limit; i++ {
		if !cur.IsDir() {
			return nil, parentLookup{}, ErrNotDirectory
		}
		next, ok := cur.Child(parts[i])
		if !ok {
			return nil, parentLookup{}, ErrPathNotFound
		}
		cur = next
	}
	if wantParent {
		return nil, parentLookup{parent: cur, name: parts[len(parts)-1]}, nil
	}
	return cur, parentLookup{}, nil
}
