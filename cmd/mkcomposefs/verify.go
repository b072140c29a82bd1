// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/strongdm/go-composefs/dump"
	"github.com/strongdm/go-composefs/tree"
)

func runVerifyDump(args []string) error {
	fs := flag.NewFlagSet("verify-dump", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mkcomposefs verify-dump <input>")
	}
	input := fs.Arg(0)

	r, err := openInput(input)
	if err != nil {
		return err
	}
	defer r.Close()

	t, err := dump.Parse(r)
	if err != nil {
		return fmt.Errorf("parse %s: %w", input, err)
	}

	count := countNodes(t.Root())
	fmt.Fprintf(os.Stderr, "%s: OK, %d nodes\n", input, count)
	return nil
}

func countNodes(n *tree.Node) int {
	count := 1
	for _, c := range n.Children() {
		count += countNodes(c)
	}
	return count
}
