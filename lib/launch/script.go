// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"fmt"
	"os"
	"strings"
)

// WriteScript writes an executable launch script to path that execs
// the client binary with the descriptor's arguments. One script per
// rover; the script is the on-disk artifact the supervisor tracks and
// deletes on teardown.
func WriteScript(path string, binary string, args []string) error {
	var script strings.Builder
	script.WriteString("#!/bin/sh\nexec ")
	script.WriteString(shellQuote(binary))
	for _, arg := range args {
		script.WriteString(" ")
		script.WriteString(shellQuote(arg))
	}
	script.WriteString("\n")

	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		return fmt.Errorf("writing launch script: %w", err)
	}
	return nil
}

// shellQuote quotes s for safe use in a shell command line.
func shellQuote(s string) string {
	// Safe characters that don't need quoting.
	safe := true
	for _, char := range s {
		if !isShellSafe(char) {
			safe = false
			break
		}
	}
	if safe && s != "" {
		return s
	}

	// Single-quote the string, escaping any internal single quotes.
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// isShellSafe returns true if the character doesn't need shell quoting.
func isShellSafe(char rune) bool {
	if char >= 'a' && char <= 'z' {
		return true
	}
	if char >= 'A' && char <= 'Z' {
		return true
	}
	if char >= '0' && char <= '9' {
		return true
	}
	switch char {
	case '-', '_', '.', '/', ':', '=', '+', ',', '@':
		return true
	}
	return false
}
