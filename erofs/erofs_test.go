// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package erofs

import (
	"bytes"
	"testing"

	"github.com/strongdm/go-composefs/tree"
)

func TestDriveRequiresWriteSink(t *testing.T) {
	tr := tree.New()
	err := Drive(Null{}, tr, Options{})
	if err != ErrNoWriteSink {
		t.Fatalf("err = %v, want ErrNoWriteSink", err)
	}
}

func TestDriveByDigestRequiresDigestOnRegularFiles(t *testing.T) {
	tr := tree.New()
	if _, err := tree.NewChild(tr.Root(), "a", tree.ModeReg|0o644); err != nil {
		t.Fatalf("NewChild: %v", err)
	}

	var buf bytes.Buffer
	opts := Options{ByDigest: true, WriteSink: buf.Write}
	err := Drive(Null{}, tr, opts)
	if err != ErrMissingDigest {
		t.Fatalf("err = %v, want ErrMissingDigest", err)
	}
}

func TestDriveByDigestSucceedsWhenAllRegularFilesHaveDigests(t *testing.T) {
	tr := tree.New()
	f, err := tree.NewChild(tr.Root(), "a", tree.ModeReg|0o644)
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	if err := f.SetDigest([32]byte{1}); err != nil {
		t.Fatalf("SetDigest: %v", err)
	}

	var buf bytes.Buffer
	opts := Options{ByDigest: true, WriteSink: buf.Write}
	if err := Drive(Null{}, tr, opts); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("wrote %d bytes, want 4 (header only)", buf.Len())
	}
}

func TestNullCountsNodesIncludingRoot(t *testing.T) {
	tr := tree.New()
	dir, err := tree.NewChild(tr.Root(), "sub", tree.ModeDir|0o755)
	if err != nil {
		t.Fatalf("NewChild(dir): %v", err)
	}
	if _, err := tree.NewChild(tr.Root(), "a", tree.ModeReg|0o644); err != nil {
		t.Fatalf("NewChild(a): %v", err)
	}
	if _, err := tree.NewChild(dir, "b", tree.ModeReg|0o644); err != nil {
		t.Fatalf("NewChild(b): %v", err)
	}

	var buf bytes.Buffer
	if err := Drive(Null{}, tr, Options{WriteSink: buf.Write}); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	want := []byte{0, 0, 0, 4} // root + sub + a + b
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("header = %v, want %v", buf.Bytes(), want)
	}
}

func TestNullComputeDigestWritesPlaceholderAndPopulatesDigestOut(t *testing.T) {
	tr := tree.New()
	var buf bytes.Buffer
	var digest [32]byte
	opts := Options{ComputeDigest: true, WriteSink: buf.Write, DigestOut: &digest}
	if err := Drive(Null{}, tr, opts); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if buf.Len() != 4+32 {
		t.Errorf("wrote %d bytes, want 36 (header + digest)", buf.Len())
	}
	if digest != [32]byte{} {
		t.Errorf("DigestOut = %x, want all-zero placeholder", digest)
	}
}

func TestNullSkipsDevicesWhenRequested(t *testing.T) {
	tr := tree.New()
	dev, err := tree.NewChild(tr.Root(), "dev0", tree.ModeChr|0o600)
	if err != nil {
		t.Fatalf("NewChild(dev): %v", err)
	}
	dev.SetRdev(5)

	var buf bytes.Buffer
	if err := Drive(Null{}, tr, Options{SkipDevices: true, WriteSink: buf.Write}); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	want := []byte{0, 0, 0, 1} // root only; device subtree skipped
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("header = %v, want %v", buf.Bytes(), want)
	}
}
