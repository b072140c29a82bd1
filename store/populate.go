// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package store materializes regular-file content into a content-addressed
// store directory: for every tree node that carries a payload path but no
// inline content, it copies the source bytes to <store>/<payload> using
// reflink-or-copy with an atomic rename, optionally enabling fsverity.
package store

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/strongdm/go-composefs/tree"
)

// copyBufferSize is the buffered-copy fallback's chunk size (spec.md
// §4.4 step 5: "an 8 KiB buffer").
const copyBufferSize = 8 * 1024

// Stats summarizes one Populate run. RunID identifies the run for log
// correlation across the populator and whatever drove it (mirroring the
// correlation-ID fields on types/provenance.go's Provenance struct,
// trimmed to just what a single populate pass needs).
type Stats struct {
	RunID        string
	FilesWritten int
	FilesSkipped int
	BytesCopied  int64
}

// Populate walks t depth-first and materializes every regular file that
// carries a payload path but no inline content at <storeBase>/<payload>.
// srcBase is the directory a live-tree build walked; the source bytes of
// each such node are read from <srcBase>/<path of the node in t>. Nodes
// with inline content, or with no payload, are skipped.
func Populate(t *tree.Tree, srcBase, storeBase string, opts Options) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}
	if err := populateNode(t.Root(), "", srcBase, storeBase, opts, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func populateNode(n *tree.Node, relPath, srcBase, storeBase string, opts Options, stats *Stats) error {
	if n.IsRegular() {
		if err := populateFile(n, relPath, srcBase, storeBase, opts, stats); err != nil {
			return err
		}
	}
	for _, c := range n.Children() {
		childRel := relPath + "/" + c.Name()
		if err := populateNode(c, childRel, srcBase, storeBase, opts, stats); err != nil {
			return err
		}
	}
	return nil
}

func populateFile(n *tree.Node, relPath, srcBase, storeBase string, opts Options, stats *Stats) error {
	if _, hasContent := n.Content(); hasContent {
		return nil
	}
	payload, ok := n.Payload()
	if !ok {
		return nil
	}

	dst := filepath.Join(storeBase, payload)

	if err := ensureParentDir(dst, opts.DirMode); err != nil {
		return err
	}

	if _, err := os.Lstat(dst); err == nil {
		stats.FilesSkipped++
		return nil
	} else if !os.IsNotExist(err) {
		return &IoError{Op: "lstat", Path: dst, Err: err}
	}

	tmp, err := os.CreateTemp(storeBase, ".tmp*")
	if err != nil {
		return &IoError{Op: "create temp", Path: storeBase, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmp.Name())
		}
	}()

	src, err := os.Open(filepath.Join(srcBase, relPath))
	if err != nil {
		tmp.Close()
		return &IoError{Op: "open source", Path: relPath, Err: err}
	}
	defer src.Close()

	n2, err := copyContent(tmp, src)
	if err != nil {
		tmp.Close()
		return &IoError{Op: "copy", Path: dst, Err: err}
	}
	stats.BytesCopied += n2

	if err := tmp.Chmod(os.FileMode(opts.FileMode)); err != nil {
		tmp.Close()
		return &IoError{Op: "fchmod", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &IoError{Op: "fsync", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IoError{Op: "close", Path: tmp.Name(), Err: err}
	}

	if opts.EnableVerity {
		if vf, err := os.Open(tmp.Name()); err == nil {
			if err := opts.Verity.Enable(vf); err != nil {
				slog.Info("[composefs-store] verity enable failed, ignoring", "path", dst, "err", err)
			}
			vf.Close()
		} else {
			slog.Info("[composefs-store] reopen for verity failed, ignoring", "path", dst, "err", err)
		}
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return &IoError{Op: "rename", Path: dst, Err: err}
	}
	committed = true
	stats.FilesWritten++
	return nil
}

// ensureParentDir creates dst's parent directories with the given mode,
// tolerating an already-existing directory but refusing an existing
// non-directory intermediate.
func ensureParentDir(dst string, dirMode uint32) error {
	dir := filepath.Dir(dst)
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotADirectory, dir)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return &IoError{Op: "stat", Path: dir, Err: err}
	}
	if err := os.MkdirAll(dir, os.FileMode(dirMode)); err != nil {
		return &IoError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// copyContent attempts a reflink clone of src's extents into dst, falling
// back to a buffered copy when the filesystem doesn't support it.
func copyContent(dst, src *os.File) (int64, error) {
	if err := reflink(dst, src); err == nil {
		fi, statErr := dst.Stat()
		if statErr != nil {
			return 0, statErr
		}
		return fi.Size(), nil
	}
	return bufferedCopy(dst, src)
}

// bufferedCopy is the reflink fallback. Go's os.File.Read/Write already
// retry on EINTR internally, so the only case spec.md §4.4 step 5 calls
// out that isn't handled by the stdlib automatically is a zero-byte
// write with no error, which it treats as ENOSPC rather than looping
// forever.
func bufferedCopy(dst, src *os.File) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			written := 0
			for written < n {
				w, werr := dst.Write(buf[written:n])
				if w == 0 && werr == nil {
					return total, syscall.ENOSPC
				}
				written += w
				total += int64(w)
				if werr != nil {
					return total, werr
				}
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
