// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestManifestRoundTrip(t *testing.T) {
	entries := []Descriptor{
		{Name: "scout", Port: 11411, Args: []string{"--name", "scout", "--port", "11411"}},
		{Name: "scout_1", Port: 11412, Args: []string{"--name", "scout_1", "--port", "11412"}},
	}
	manifest := NewManifest("/usr/bin/corral-client", "b3:deadbeef", entries)
	if manifest.LaunchID == "" {
		t.Fatal("NewManifest produced an empty launch ID")
	}
	if manifest.CreatedAt.IsZero() {
		t.Fatal("NewManifest produced a zero timestamp")
	}

	path := filepath.Join(t.TempDir(), "launch.yaml")
	if err := manifest.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	parsed, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if parsed.LaunchID != manifest.LaunchID {
		t.Errorf("launch ID = %q, want %q", parsed.LaunchID, manifest.LaunchID)
	}
	if !parsed.CreatedAt.Equal(manifest.CreatedAt) {
		t.Errorf("created at = %v, want %v", parsed.CreatedAt, manifest.CreatedAt)
	}
	if parsed.ClientBinary != manifest.ClientBinary {
		t.Errorf("client binary = %q, want %q", parsed.ClientBinary, manifest.ClientBinary)
	}
	if parsed.ClientDigest != manifest.ClientDigest {
		t.Errorf("client digest = %q, want %q", parsed.ClientDigest, manifest.ClientDigest)
	}
	if !reflect.DeepEqual(parsed.Entries, entries) {
		t.Errorf("entries = %+v, want %+v", parsed.Entries, entries)
	}
}

func TestManifestLaunchIDsDiffer(t *testing.T) {
	first := NewManifest("/bin/client", "", nil)
	second := NewManifest("/bin/client", "", nil)
	if first.LaunchID == second.LaunchID {
		t.Errorf("two manifests share launch ID %q", first.LaunchID)
	}
}

func TestReadManifestMissing(t *testing.T) {
	if _, err := ReadManifest(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestReadManifestMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{unclosed"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error for malformed manifest")
	}
}
