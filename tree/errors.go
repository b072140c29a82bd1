// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package tree

import "errors"

// Errors returned by tree construction operations. Each corresponds to a
// tree-construction failure kind named in the dump format's error handling
// design.
var (
	// ErrAlreadyExists is returned by AddChild when name already names a
	// child of parent.
	ErrAlreadyExists = errors.New("tree: child already exists")

	// ErrDuplicateXattr is returned by Node.SetXattr when key is already
	// set on the node.
	ErrDuplicateXattr = errors.New("tree: duplicate xattr key")

	// ErrNotDirectory is returned when an operation requires a directory
	// node (AddChild's parent, an intermediate path component) but finds
	// something else.
	ErrNotDirectory = errors.New("tree: not a directory")

	// ErrHasParent is returned by AddChild when child already belongs to
	// another parent.
	ErrHasParent = errors.New("tree: node already has a parent")

	// ErrIsDirectory is returned by MakeHardlink when either node or
	// target is a directory; directories cannot be hardlink sources or
	// targets.
	ErrIsDirectory = errors.New("tree: directories cannot be hardlinked")

	// ErrAlreadyHardlinked is returned by MakeHardlink when node already
	// has a hardlink target, or target is itself a hardlink (chains of
	// length other than 1 are not permitted).
	ErrAlreadyHardlinked = errors.New("tree: hardlink chain would exceed length 1")

	// ErrContentSizeMismatch is returned by SetContent when the content
	// length disagrees with the node's current Size.
	ErrContentSizeMismatch = errors.New("tree: content length does not match size")

	// ErrNotRegularFile is returned by SetContent/SetDigest on a node
	// that is not a regular file.
	ErrNotRegularFile = errors.New("tree: content and digest are only valid on regular files")

	// ErrPathNotFound is returned by LookupPath/LookupParentPath when an
	// intermediate or final path component does not exist.
	ErrPathNotFound = errors.New("tree: path component not found")
)
