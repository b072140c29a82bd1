// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"bytes"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/strongdm/go-composefs/tree"
)

// DebugRecord is a flattened, msgpack-friendly view of one tree.Node,
// used by MarshalDebugSnapshot to produce golden-file fixtures that are
// easier to diff than the line-oriented dump format itself.
type DebugRecord struct {
	Path    string `msgpack:"path"`
	Mode    uint32 `msgpack:"mode"`
	Size    uint64 `msgpack:"size"`
	UID     uint32 `msgpack:"uid"`
	GID     uint32 `msgpack:"gid"`
	Nlink   uint32 `msgpack:"nlink"`
	Payload string `msgpack:"payload,omitempty"`
}

// DebugSnapshot flattens t into a slice of DebugRecord values sorted by
// Path as a byte string, where directory paths carry a trailing '/'. This
// order can differ from the depth-first order writer.go emits (e.g. a
// file "/a.b" sorts before a directory "/a/").
func DebugSnapshot(t *tree.Tree) []DebugRecord {
	var records []DebugRecord
	walkDebug(t.Root(), "/", &records)
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records
}

func walkDebug(n *tree.Node, path string, out *[]DebugRecord) {
	payload, _ := n.Payload()
	*out = append(*out, DebugRecord{
		Path:    path,
		Mode:    n.ResolvedMode(),
		Size:    n.Size(),
		UID:     n.UID(),
		GID:     n.GID(),
		Nlink:   n.Nlink(),
		Payload: payload,
	})
	for _, c := range n.Children() {
		childPath := path + c.Name()
		if c.IsDir() {
			childPath += "/"
		}
		walkDebug(c, childPath, out)
	}
}

// MarshalDebugSnapshot encodes t's DebugSnapshot as msgpack with sorted
// map keys, for deterministic golden-file fixtures.
func MarshalDebugSnapshot(t *tree.Tree) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(DebugSnapshot(t)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalDebugSnapshot decodes msgpack bytes produced by
// MarshalDebugSnapshot back into a []DebugRecord, for fixture comparison
// in tests.
func UnmarshalDebugSnapshot(data []byte) ([]DebugRecord, error) {
	var records []DebugRecord
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
