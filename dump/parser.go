// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"bytes"
	"errors"
	"io"

	"github.com/strongdm/go-composefs/escape"
	"github.com/strongdm/go-composefs/tree"
)

// minChunkSize is the minimum read size the streaming parser uses per the
// format's "chunks of at least 64 KiB" contract.
const minChunkSize = 64 * 1024

const digestSize = 32

// numPositionalFields is the count of fixed fields preceding any trailing
// xattr fields: PATH SIZE MODE NLINK UID GID RDEV MTIME PAYLOAD CONTENT
// DIGEST.
const numPositionalFields = 11

type hardlinkFixup struct {
	record     int
	node       *tree.Node
	targetPath string
}

// Parse reads a dump manifest from r and builds the tree it describes.
// Hardlink resolution is deferred until every record has been read, so
// records may reference hardlink targets that appear later in the input.
func Parse(r io.Reader) (*tree.Tree, error) {
	t := tree.New()
	rootSeen := false
	recordNum := 0
	var fixups []hardlinkFixup

	var carry []byte
	buf := make([]byte, minChunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			chunk := append(carry, buf[:n]...)
			lines := bytes.Split(chunk, []byte{'\n'})
			complete, tail := lines[:len(lines)-1], lines[len(lines)-1]
			carry = append([]byte(nil), tail...)
			for _, line := range complete {
				recordNum++
				if len(line) == 0 {
					continue
				}
				if err := applyRecord(t, line, recordNum, &rootSeen, &fixups); err != nil {
					return nil, err
				}
			}
		}
		if readErr == io.EOF {
			if len(carry) > 0 {
				recordNum++
				if err := applyRecord(t, carry, recordNum, &rootSeen, &fixups); err != nil {
					return nil, err
				}
			}
			break
		}
		if readErr != nil {
			return nil, readErr
		}
	}

	if !rootSeen && recordNum > 0 {
		return nil, parseErr(1, KindMissingParent, ErrMissingParent, "no root record")
	}

	for _, fx := range fixups {
		target, err := tree.LookupPath(t.Root(), fx.targetPath)
		if err != nil {
			return nil, parseErr(fx.record, KindDanglingHardlink, ErrDanglingHardlink, fx.targetPath)
		}
		if err := tree.MakeHardlink(fx.node, target); err != nil {
			return nil, &ParseError{Kind: KindHardlinkIsDir, Record: fx.record, Err: err}
		}
	}

	return t, nil
}

// addChildErrKind maps a tree.AddChild failure to the ParseError kind a
// caller should see. A final parent that resolves but isn't a directory
// (LookupParentPath never type-checks it) surfaces here as
// tree.ErrNotDirectory from AddChild, which is a malformed path, not a
// name clash; only tree.ErrAlreadyExists is an actual duplicate sibling.
func addChildErrKind(err error) ErrorKind {
	if errors.Is(err, tree.ErrNotDirectory) {
		return KindNotDirectory
	}
	return KindAlreadyExists
}

func applyRecord(t *tree.Tree, line []byte, recordNum int, rootSeen *bool, fixups *[]hardlinkFixup) error {
	fields := bytes.Split(line, []byte{' '})
	if len(fields) < numPositionalFields {
		return parseErr(recordNum, KindMalformedRecord, ErrMalformedRecord, "too few fields")
	}

	pathRaw := fields[0]
	path, err := escape.Decode(pathRaw)
	if err != nil {
		return &ParseError{Kind: KindMalformedEscape, Record: recordNum, Err: err}
	}
	if len(path) == 0 || path[0] != '/' {
		return parseErr(recordNum, KindMalformedRecord, ErrMalformedRecord, "PATH must begin with '/'")
	}

	mode, isHardlink, err := parseMode(fields[2])
	if err != nil {
		return &ParseError{Kind: KindInvalidInteger, Record: recordNum, Err: err}
	}

	isRoot := string(path) == "/"

	// The root record must precede every other record. tree.New() always
	// pre-creates a placeholder root node, so without this check an
	// out-of-order manifest would silently attach children under that
	// placeholder instead of being rejected.
	if !isRoot && !*rootSeen {
		return parseErr(recordNum, KindMissingParent, ErrMissingParent, "root record must precede all other records")
	}

	// A hardlink record only ever needs PATH, MODE and PAYLOAD (the
	// target path); SIZE, NLINK, UID, GID, RDEV, MTIME, CONTENT, DIGEST
	// and any xattrs are skipped entirely rather than parsed and
	// discarded, so a malformed trailing field on a hardlink line is not
	// a parse error.
	if isHardlink {
		targetRaw := fields[8]
		if escape.IsAbsentMarker(targetRaw) {
			return parseErr(recordNum, KindDanglingHardlink, ErrDanglingHardlink, "hardlink record has no target path")
		}
		targetPath, err := escape.Decode(targetRaw)
		if err != nil {
			return &ParseError{Kind: KindMalformedEscape, Record: recordNum, Err: err}
		}
		if mode&tree.ModeFmt == tree.ModeDir {
			return parseErr(recordNum, KindHardlinkIsDir, ErrHardlinkIsDir, string(path))
		}

		parent, name, err := tree.LookupParentPath(t.Root(), string(path))
		if err != nil {
			return &ParseError{Kind: KindMissingParent, Record: recordNum, Err: err}
		}
		node, err := tree.NewChild(parent, name, mode)
		if err != nil {
			return &ParseError{Kind: addChildErrKind(err), Record: recordNum, Err: err}
		}
		*fixups = append(*fixups, hardlinkFixup{record: recordNum, node: node, targetPath: string(targetPath)})
		return nil
	}

	size, err := parseUint64(fields[1])
	if err != nil {
		return &ParseError{Kind: KindInvalidInteger, Record: recordNum, Err: err}
	}
	nlink, err := parseUint32(fields[3])
	if err != nil {
		return &ParseError{Kind: KindInvalidInteger, Record: recordNum, Err: err}
	}
	uid, err := parseUint32(fields[4])
	if err != nil {
		return &ParseError{Kind: KindInvalidInteger, Record: recordNum, Err: err}
	}
	gid, err := parseUint32(fields[5])
	if err != nil {
		return &ParseError{Kind: KindInvalidInteger, Record: recordNum, Err: err}
	}
	rdev, err := parseUint32(fields[6])
	if err != nil {
		return &ParseError{Kind: KindInvalidInteger, Record: recordNum, Err: err}
	}
	mt, err := parseMtime(fields[7])
	if err != nil {
		return &ParseError{Kind: KindInvalidMtime, Record: recordNum, Err: err}
	}

	var node *tree.Node
	if isRoot {
		if *rootSeen {
			return parseErr(recordNum, KindMultipleRoots, ErrMultipleRoots, "second root record")
		}
		if mode&tree.ModeFmt != tree.ModeDir {
			return parseErr(recordNum, KindMalformedRecord, ErrMalformedRecord, "root record must be a directory")
		}
		node = t.Root()
		node.SetMode(mode)
		*rootSeen = true
	} else {
		parent, name, err := tree.LookupParentPath(t.Root(), string(path))
		if err != nil {
			return &ParseError{Kind: KindMissingParent, Record: recordNum, Err: err}
		}
		node, err = tree.NewChild(parent, name, mode)
		if err != nil {
			return &ParseError{Kind: addChildErrKind(err), Record: recordNum, Err: err}
		}
	}

	node.SetUID(uid)
	node.SetGID(gid)
	node.SetNlink(nlink)
	node.SetRdev(rdev)
	node.SetMtime(mt)
	if err := node.SetSize(size); err != nil {
		return &ParseError{Kind: KindContentSizeMismatch, Record: recordNum, Err: err}
	}

	if payload, ok, err := escape.DecodeOptional(fields[8]); err != nil {
		return &ParseError{Kind: KindMalformedEscape, Record: recordNum, Err: err}
	} else if ok {
		node.SetPayload(string(payload))
	}

	if content, ok, err := escape.DecodeOptional(fields[9]); err != nil {
		return &ParseError{Kind: KindMalformedEscape, Record: recordNum, Err: err}
	} else if ok {
		if uint64(len(content)) != size {
			return parseErr(recordNum, KindContentSizeMismatch, ErrContentSizeMismatch, "CONTENT length disagrees with SIZE")
		}
		if err := node.SetContent(content); err != nil {
			return &ParseError{Kind: KindMalformedRecord, Record: recordNum, Err: err}
		}
	}

	if !escape.IsAbsentMarker(fields[10]) {
		raw, err := escape.DecodeHexDigest(fields[10], digestSize)
		if err != nil {
			return &ParseError{Kind: KindInvalidHexDigest, Record: recordNum, Err: err}
		}
		var digest [digestSize]byte
		copy(digest[:], raw)
		if err := node.SetDigest(digest); err != nil {
			return &ParseError{Kind: KindMalformedRecord, Record: recordNum, Err: err}
		}
	}

	for _, xf := range fields[numPositionalFields:] {
		keyRaw, valRaw := splitXattr(xf)
		key, err := escape.Decode(keyRaw)
		if err != nil {
			return &ParseError{Kind: KindMalformedEscape, Record: recordNum, Err: err}
		}
		value, err := escape.Decode(valRaw)
		if err != nil {
			return &ParseError{Kind: KindMalformedEscape, Record: recordNum, Err: err}
		}
		if err := node.SetXattr(key, value); err != nil {
			return &ParseError{Kind: KindDuplicateXattr, Record: recordNum, Err: err}
		}
	}

	return nil
}
