// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

// Descriptor is one rover client's launch parameters: the entry the
// supervisor writes into a batch manifest and the terminal spawns a
// process from.
type Descriptor struct {
	// Name is the rover's uniquified name.
	Name string `yaml:"name"`

	// Port is the port assigned to this client.
	Port int `yaml:"port"`

	// Args is the fully rendered client argument list, placeholders
	// already substituted.
	Args []string `yaml:"args"`
}
