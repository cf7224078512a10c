// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package control defines the herder's control protocol: the typed
// client the CLI uses and the response shapes the herder serves. Both
// sides import this package, so the wire contract lives in one place.
//
// The types carry json tags only. On the socket they travel as CBOR
// (lib/codec falls back to json tags for field names); in the CLI's
// --json output they marshal through encoding/json with the same
// names.
package control

import (
	"context"

	"github.com/corral-fleet/corral/lib/rpc"
)

// Phase values reported in StatusInfo.
const (
	PhaseInitializing = "initializing"
	PhaseRunning      = "running"
	PhaseShuttingDown = "shutting-down"
)

// Rover client process states reported in RosterEntry.
const (
	StateRunning = "running"
	StateExited  = "exited"
	StateUnknown = "unknown"
)

// StatusInfo is the response to the status action: a point-in-time
// summary of the herd.
type StatusInfo struct {
	// Phase is the coordinator state: initializing, running, or
	// shutting-down.
	Phase string `json:"phase"`

	// UptimeSeconds is the time since the herder finished starting.
	UptimeSeconds float64 `json:"uptime_seconds"`

	// Disabled reports whether the disable flag has been set. A
	// disabled herder shuts down at its next poll tick.
	Disabled bool `json:"disabled"`

	// RoverCount is the number of names in the roster.
	RoverCount int `json:"rover_count"`

	// ProcessCount is the number of tracked client processes.
	ProcessCount int `json:"process_count"`

	// ArtifactCount is the number of tracked transient artifacts
	// awaiting cleanup.
	ArtifactCount int `json:"artifact_count"`

	// NextPort is the port the next launched client will receive.
	NextPort int `json:"next_port"`

	// Launcher is the active launcher kind: tmux or headless.
	Launcher string `json:"launcher"`

	// ClientDigest is the BLAKE3 digest of the client binary recorded
	// at startup, empty if the binary could not be read.
	ClientDigest string `json:"client_digest,omitempty"`
}

// RosterEntry is one rover's row in the roster response.
type RosterEntry struct {
	// Name is the uniquified rover name.
	Name string `json:"name"`

	// Port is the port assigned to the rover's client process, 0 if
	// no client was launched.
	Port int `json:"port,omitempty"`

	// Provisioned reports whether the simulator accepted the rover's
	// spawn call.
	Provisioned bool `json:"provisioned"`

	// State is the client process state: running, exited, or unknown
	// (no client, or the launcher cannot tell).
	State string `json:"state"`

	// Session is the tmux session hosting the client, empty for the
	// headless launcher.
	Session string `json:"session,omitempty"`

	// PID is the client process ID, 0 if unknown.
	PID int `json:"pid,omitempty"`
}

// RosterInfo is the response to the roster action. Rovers appear in
// registry order (insertion order, which is spawn order).
type RosterInfo struct {
	Rovers []RosterEntry `json:"rovers"`
}

// DisableResult is the response to the disable action.
type DisableResult struct {
	// Disabled is true after the call; the flag cannot be unset.
	Disabled bool `json:"disabled"`

	// AlreadyDisabled is true when the flag was set before this call.
	AlreadyDisabled bool `json:"already_disabled"`
}

// Client is a typed client for the herder's control socket.
type Client struct {
	rpc *rpc.Client
}

// NewClient creates a control client for the herder socket at
// socketPath.
func NewClient(socketPath string) *Client {
	return &Client{rpc: rpc.NewClient(socketPath)}
}

// SocketPath returns the herder socket path this client targets.
func (c *Client) SocketPath() string {
	return c.rpc.SocketPath()
}

// Ping probes herder liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.rpc.Ping(ctx)
}

// Status fetches the herd summary.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	var info StatusInfo
	if err := c.rpc.Call(ctx, "status", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Roster fetches per-rover detail in registry order.
func (c *Client) Roster(ctx context.Context) (*RosterInfo, error) {
	var info RosterInfo
	if err := c.rpc.Call(ctx, "roster", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Disable sets the herder's disable flag. The herder observes the
// flag at its next poll tick and shuts down. Calling Disable on an
// already-disabled herder is safe; the result reports it.
func (c *Client) Disable(ctx context.Context) (*DisableResult, error) {
	var result DisableResult
	if err := c.rpc.Call(ctx, "disable", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
