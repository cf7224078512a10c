// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// BinaryDigest computes the BLAKE3 digest of the file at path and
// returns it as "b3:" plus lowercase hex. The digest records which
// client build a launch used; it appears in manifests and in herder
// status output.
func BinaryDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return "b3:" + hex.EncodeToString(hasher.Sum(nil)), nil
}
