// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package walker

import (
	"io/fs"

	"github.com/strongdm/go-composefs/tree"
)

func extendedStat(info fs.FileInfo) (uid, gid uint32, rdev uint32, ok bool) {
	return 0, 0, 0, false
}

func mtimeFromStat(info fs.FileInfo) tree.Time {
	t := info.ModTime()
	return tree.Time{Sec: uint64(t.Unix())}
}
