// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import "fmt"

// Uniquify assigns collision-free names for a spawn batch. The result
// has the same length and order as requested. A requested name that
// collides with existing, or with a name already produced earlier in
// this call, gets the suffix "_N" for the smallest N >= 0 that yields
// an unused name.
//
//	Uniquify([]string{"a", "a", "a"}, empty)        → ["a", "a_0", "a_1"]
//	Uniquify([]string{"a"}, set of {"a", "a_0"})    → ["a_1"]
//
// Pure: existing is only read, never mutated. A nil existing is
// treated as empty.
func Uniquify(requested []string, existing Membership) []string {
	result := make([]string, 0, len(requested))
	produced := make(map[string]struct{}, len(requested))

	taken := func(name string) bool {
		if _, dup := produced[name]; dup {
			return true
		}
		return existing != nil && existing.Contains(name)
	}

	for _, name := range requested {
		candidate := name
		for suffix := 0; taken(candidate); suffix++ {
			candidate = fmt.Sprintf("%s_%d", name, suffix)
		}
		produced[candidate] = struct{}{}
		result = append(result, candidate)
	}
	return result
}
