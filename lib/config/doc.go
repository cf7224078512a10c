// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Corral
// components.
//
// Configuration is loaded from a single file specified by either the
// CORRAL_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Exactly two environment variables override file values, both useful
// for relocating a herd's runtime footprint without editing the file:
// CORRAL_RUN_DIR replaces run_dir and CORRAL_LOG_LEVEL replaces
// log_level. Everything else comes from the file.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${CORRAL_RUN_DIR}, and ${VAR:-default} patterns are
// expanded. The default socket and capture paths are expressed in
// terms of ${CORRAL_RUN_DIR}, so overriding run_dir relocates all of
// them in one step.
//
// Key exports:
//
//   - [Config] -- master struct with Herd, Simulator, Relay, Launcher
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- field checks plus duration parsing
//
// This package depends on no other Corral packages.
package config
