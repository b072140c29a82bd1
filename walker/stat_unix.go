// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package walker

import (
	"io/fs"
	"syscall"

	"github.com/strongdm/go-composefs/tree"
)

// extendedStat pulls the POSIX metadata os.FileInfo doesn't expose
// directly (uid, gid, device number) out of the platform-specific
// syscall.Stat_t behind info.Sys().
func extendedStat(info fs.FileInfo) (uid, gid uint32, rdev uint32, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, 0, false
	}
	return uint32(st.Uid), uint32(st.Gid), uint32(st.Rdev), true
}

func mtimeFromStat(info fs.FileInfo) tree.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		t := info.ModTime()
		return tree.Time{Sec: uint64(t.Unix())}
	}
	return tree.Time{Sec: uint64(st.Mtim.Sec), Nsec: uint64(st.Mtim.Nsec)}
}
