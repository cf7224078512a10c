// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/corral-fleet/corral/lib/control"
	"github.com/corral-fleet/corral/lib/rpc"
)

// registerActions registers the herder's control socket actions.
// status and roster are read-only snapshots; disable is the herd's
// off switch. The server answers ping on its own.
func (h *Herder) registerActions(server *rpc.SocketServer) {
	server.Handle("status", h.handleStatus)
	server.Handle("roster", h.handleRoster)
	server.Handle("disable", h.handleDisable)
}

// handleStatus returns the herd summary.
func (h *Herder) handleStatus(ctx context.Context, raw []byte) (any, error) {
	h.mu.Lock()
	phase := h.phase
	disabled := h.disabled
	roverCount := h.roster.Len()
	h.mu.Unlock()

	processes, artifactCount, nextPort := h.supervisor.snapshot()

	return control.StatusInfo{
		Phase:         phase,
		UptimeSeconds: h.clock.Now().Sub(h.startedAt).Seconds(),
		Disabled:      disabled,
		RoverCount:    roverCount,
		ProcessCount:  len(processes),
		ArtifactCount: artifactCount,
		NextPort:      nextPort,
		Launcher:      h.supervisor.terminal.Kind(),
		ClientDigest:  h.supervisor.clientDigest,
	}, nil
}

// handleRoster returns per-rover detail in registry order. Process
// state is probed live through the launcher; a rover with no tracked
// client reports state unknown.
func (h *Herder) handleRoster(ctx context.Context, raw []byte) (any, error) {
	h.mu.Lock()
	names := h.roster.Names()
	provisioned := make(map[string]bool, len(h.provisioned))
	for name, ok := range h.provisioned {
		provisioned[name] = ok
	}
	h.mu.Unlock()

	processes, _, _ := h.supervisor.snapshot()
	byName := make(map[string]int, len(processes))
	for index, process := range processes {
		byName[process.Name] = index
	}

	rovers := make([]control.RosterEntry, 0, len(names))
	for _, name := range names {
		entry := control.RosterEntry{
			Name:        name,
			Provisioned: provisioned[name],
			State:       control.StateUnknown,
		}
		if index, ok := byName[name]; ok {
			process := processes[index]
			entry.Port = process.Port
			entry.Session = process.Session
			entry.PID = process.PID
			entry.State = string(h.supervisor.terminal.State(process))
		}
		rovers = append(rovers, entry)
	}

	return control.RosterInfo{Rovers: rovers}, nil
}

// handleDisable sets the disable flag. The poll loop observes it at
// the next tick and begins shutdown.
func (h *Herder) handleDisable(ctx context.Context, raw []byte) (any, error) {
	return h.Disable(), nil
}
