// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for Corral
// daemons. These functions centralize the one legitimate raw I/O
// pattern that exists before the structured logger: fatal error
// reporting to stderr when the logger may not be initialized yet.
package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. This is
// the standard Corral binary entrypoint error handler. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
