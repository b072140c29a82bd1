// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package walker builds a tree.Tree from a live directory. It is a thin
// convenience layer, not a faithful reimplementation of libcomposefs's C
// directory walker: it populates mode/uid/gid/rdev/mtime/size from
// os.Lstat and leaves payload unset on regular files, since this package
// has no opinion on how its caller names content-addressed payloads.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/strongdm/go-composefs/tree"
)

// Common errors, mirroring the teacher's fstree package.
var (
	ErrTooManyFiles = errors.New("walker: too many files")
	ErrFileTooLarge = errors.New("walker: file too large")
	ErrCyclicLink   = errors.New("walker: cyclic symbolic link detected")
)

// Walk builds a tree.Tree from the directory at root, applying opts.
func Walk(root string, opts ...Option) (*tree.Tree, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	o := NewOptions(opts...)
	w := &walk{
		root:    absRoot,
		opts:    &o,
		visited: make(map[string]bool),
	}

	t := tree.New()
	if err := w.fillDir(t.Root(), absRoot, ""); err != nil {
		return nil, err
	}
	return t, nil
}

type walk struct {
	root    string
	opts    *Options
	visited map[string]bool

	fileCount int
}

func (w *walk) fillDir(dirNode *tree.Node, absPath, relPath string) error {
	realPath, err := filepath.EvalSymlinks(absPath)
	if err == nil {
		if w.visited[realPath] {
			return ErrCyclicLink
		}
		w.visited[realPath] = true
		defer delete(w.visited, realPath)
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", relPath, err)
	}

	for _, de := range entries {
		name := de.Name()
		childRel := filepath.Join(relPath, name)
		childAbs := filepath.Join(absPath, name)

		var info fs.FileInfo
		if w.opts.followSymlinks {
			info, err = os.Stat(childAbs)
		} else {
			info, err = os.Lstat(childAbs)
		}
		if err != nil {
			slog.Info("[composefs-walker] skipping unreadable entry", "path", childRel, "err", err)
			continue
		}

		if w.opts.shouldExclude(childRel, info.IsDir()) {
			continue
		}

		if err := w.addEntry(dirNode, childAbs, childRel, name, info); err != nil {
			if errors.Is(err, ErrTooManyFiles) || errors.Is(err, ErrCyclicLink) || errors.Is(err, ErrFileTooLarge) {
				return err
			}
			slog.Info("[composefs-walker] skipping entry", "path", childRel, "err", err)
			continue
		}
	}

	subdirs := uint32(0)
	for _, c := range dirNode.Children() {
		if c.IsDir() {
			subdirs++
		}
	}
	dirNode.SetNlink(2 + subdirs)
	return nil
}

func (w *walk) addEntry(parent *tree.Node, absPath, relPath, name string, info fs.FileInfo) error {
	perm := uint32(info.Mode().Perm())
	uid, gid, rdev, _ := extendedStat(info)
	mtime := mtimeFromStat(info)

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(absPath)
		if err != nil {
			return fmt.Errorf("readlink %s: %w", relPath, err)
		}
		n, err := tree.NewChild(parent, name, tree.ModeLnk|perm)
		if err != nil {
			return err
		}
		n.SetUID(uid)
		n.SetGID(gid)
		n.SetMtime(mtime)
		n.SetPayload(target)
		return nil

	case info.IsDir():
		n, err := tree.NewChild(parent, name, tree.ModeDir|perm)
		if err != nil {
			return err
		}
		n.SetUID(uid)
		n.SetGID(gid)
		n.SetMtime(mtime)
		return w.fillDir(n, absPath, relPath)

	case info.Mode()&fs.ModeNamedPipe != 0:
		n, err := tree.NewChild(parent, name, tree.ModeFifo|perm)
		if err != nil {
			return err
		}
		n.SetUID(uid)
		n.SetGID(gid)
		n.SetMtime(mtime)
		return nil

	case info.Mode()&fs.ModeSocket != 0:
		n, err := tree.NewChild(parent, name, tree.ModeSock|perm)
		if err != nil {
			return err
		}
		n.SetUID(uid)
		n.SetGID(gid)
		n.SetMtime(mtime)
		return nil

	case info.Mode()&fs.ModeDevice != 0:
		mode := uint32(tree.ModeBlk)
		if info.Mode()&fs.ModeCharDevice != 0 {
			mode = tree.ModeChr
		}
		n, err := tree.NewChild(parent, name, mode|perm)
		if err != nil {
			return err
		}
		n.SetUID(uid)
		n.SetGID(gid)
		n.SetRdev(rdev)
		n.SetMtime(mtime)
		return nil

	default:
		if w.fileCount >= w.opts.maxFiles {
			return ErrTooManyFiles
		}
		size := info.Size()
		if size > w.opts.maxFileSize {
			return fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, relPath, size)
		}

		n, err := tree.NewChild(parent, name, tree.ModeReg|perm)
		if err != nil {
			return err
		}
		n.SetUID(uid)
		n.SetGID(gid)
		n.SetMtime(mtime)
		if err := n.SetSize(uint64(size)); err != nil {
			return err
		}
		w.fileCount++
		return nil
	}
}
