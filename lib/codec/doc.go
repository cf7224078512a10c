// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Corral's standard CBOR encoding configuration.
//
// Corral uses two serialization formats with a clear boundary:
//
//   - JSON for operator surfaces: CLI --json output and the launch
//     argument template (JSONC). Configuration files are YAML.
//   - CBOR for socket protocols: the herder control socket, the
//     simulator socket, and the relay socket all speak the CBOR
//     request-response protocol in lib/rpc.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Corral package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It will
//     never be marshaled to JSON or interact with CLI tooling.
//     Examples: simulator spawn requests, relay route rules, the
//     socket protocol envelope.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. Examples: herder control socket
//     types, which the CLI re-emits as --json output.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract, and doubling up obscures whether a
// type participates in JSON serialization.
package codec
