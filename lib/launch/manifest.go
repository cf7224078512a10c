// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Manifest is the batch launch artifact: everything one spawn call
// asked the launcher to start, plus enough identity to tell launches
// apart after the fact. The supervisor writes it, the launcher parses
// it back, and the file is deleted as soon as the entries are
// extracted; it exists on disk only for the handoff.
type Manifest struct {
	// LaunchID uniquely identifies this batch.
	LaunchID string `yaml:"launch_id"`

	// CreatedAt is when the batch was assembled, UTC.
	CreatedAt time.Time `yaml:"created_at"`

	// ClientBinary is the resolved path of the client binary the
	// batch launches.
	ClientBinary string `yaml:"client_binary"`

	// ClientDigest is the BLAKE3 digest of ClientBinary, when known.
	ClientDigest string `yaml:"client_digest,omitempty"`

	// Entries lists the clients to launch, in spawn order.
	Entries []Descriptor `yaml:"entries"`
}

// NewManifest assembles a manifest for one spawn batch with a fresh
// launch ID.
func NewManifest(clientBinary, clientDigest string, entries []Descriptor) *Manifest {
	return &Manifest{
		LaunchID:     uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
		ClientBinary: clientBinary,
		ClientDigest: clientDigest,
		Entries:      entries,
	}
}

// WriteFile writes the manifest as YAML to path, mode 0644.
func (m *Manifest) WriteFile(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding launch manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing launch manifest: %w", err)
	}
	return nil
}

// ReadManifest parses the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading launch manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing launch manifest %s: %w", path, err)
	}
	return &m, nil
}
