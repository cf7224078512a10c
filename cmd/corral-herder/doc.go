// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Corral-herder is the fleet lifecycle coordinator: it turns a list of
// requested rover names into simulated entities, running client
// processes, and relay route registrations, then babysits the herd
// until it is disabled or interrupted.
//
// # Startup
//
// The herder loads its configuration (--config flag, CORRAL_CONFIG, or
// built-in defaults), takes an exclusive flock on
// <run_dir>/herder.lock so only one herder runs per run directory,
// and waits for the simulator and relay sockets to answer ping. It
// then clears the simulator's pre-seeded default entity, spawns the
// configured rovers, and enters the poll loop.
//
// # Spawn pipeline
//
// Each spawn batch runs: uniquify the requested names against the
// roster, append them, provision a simulated body per name at a
// random pose, launch one client process per name through the
// configured terminal (tmux or headless), and register the inbound
// command and outbound status routes for the batch with the relay in
// a single request. Provisioning failures are logged and skipped;
// by default a rover whose body failed to spawn still gets its
// process and routes.
//
// # Socket API
//
// The control socket (<run_dir>/herder.sock) speaks CBOR, one request
// per connection, routed by the "action" field: ping, status, roster,
// and disable. The corral CLI is the intended client.
//
// # Shutdown
//
// The poll loop exits when the disable flag is set over the control
// socket or the process receives SIGINT/SIGTERM. Shutdown stops every
// tracked client process (capturing terminal output first when a
// capture directory is configured), deletes the per-rover launch
// scripts, and — only when the teardown toggles are enabled — cancels
// the herd's routes and removes its simulated entities.
package main
