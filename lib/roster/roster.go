// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package roster tracks the set of active rover names and assigns
// collision-free names for new spawn batches.
//
// The herder owns one [Roster] for the process lifetime. Spawn batches
// run their requested names through [Uniquify] against the roster
// before any entity is provisioned, so every downstream consumer
// (simulator, launcher, relay) sees names that are unique across the
// whole run.
package roster

// Membership answers whether a name is already taken. *Roster
// implements it; tests substitute map-backed sets.
type Membership interface {
	Contains(name string) bool
}

// Roster is an ordered set of active rover names. Insertion order is
// preserved for deterministic reporting; duplicate adds are ignored.
//
// Roster is not safe for concurrent use. The herder serializes all
// access under its own lock.
type Roster struct {
	names []string
	index map[string]struct{}
}

var _ Membership = (*Roster)(nil)

// New returns an empty roster.
func New() *Roster {
	return &Roster{index: make(map[string]struct{})}
}

// Add appends names that are not already present, preserving argument
// order. Names already in the roster are skipped.
func (r *Roster) Add(names ...string) {
	for _, name := range names {
		if _, exists := r.index[name]; exists {
			continue
		}
		r.index[name] = struct{}{}
		r.names = append(r.names, name)
	}
}

// Contains reports whether name is in the roster.
func (r *Roster) Contains(name string) bool {
	_, exists := r.index[name]
	return exists
}

// Names returns the roster contents in insertion order. The returned
// slice is a copy; callers may retain or mutate it freely.
func (r *Roster) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of names in the roster.
func (r *Roster) Len() int {
	return len(r.names)
}
