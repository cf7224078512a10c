// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Corral is the operator CLI for the herder daemon.
package main

import (
	"fmt"
	"os"

	"github.com/corral-fleet/corral/cmd/corral/herd"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an ExitError
		// with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return herd.Root().Execute(os.Args[1:])
}
