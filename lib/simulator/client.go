// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package simulator provides the typed client for the entity
// simulator service and the wire types its protocol is built from.
// The herder is the only caller in a normal deployment; corral-sim
// serves the same shapes as a development stand-in.
package simulator

import (
	"context"

	"github.com/corral-fleet/corral/lib/rpc"
)

// SpawnRequest is the wire shape of the spawn action. The server
// decodes the full request into this struct; the extra "action" field
// in the request map is ignored.
type SpawnRequest struct {
	Name    string  `cbor:"name"`
	X       float64 `cbor:"x"`
	Y       float64 `cbor:"y"`
	Heading float64 `cbor:"heading"`
}

// RemoveRequest is the wire shape of the remove action.
type RemoveRequest struct {
	Name string `cbor:"name"`
}

// Entity is one simulated rover as reported by the list action.
type Entity struct {
	Name    string  `cbor:"name"`
	X       float64 `cbor:"x"`
	Y       float64 `cbor:"y"`
	Heading float64 `cbor:"heading"`
}

// ListResult is the response to the list action. Entities appear in
// the order they were spawned.
type ListResult struct {
	Entities []Entity `cbor:"entities"`
}

// Client is a typed client for the simulator socket.
type Client struct {
	rpc *rpc.Client
}

// NewClient creates a simulator client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{rpc: rpc.NewClient(socketPath)}
}

// SocketPath returns the simulator socket path this client targets.
func (c *Client) SocketPath() string {
	return c.rpc.SocketPath()
}

// Ping probes simulator liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.rpc.Ping(ctx)
}

// Spawn creates a simulated rover at the given pose. The simulator
// rejects duplicate names and out-of-range poses.
func (c *Client) Spawn(ctx context.Context, name string, pose Pose) error {
	return c.rpc.Call(ctx, "spawn", map[string]any{
		"name":    name,
		"x":       pose.X,
		"y":       pose.Y,
		"heading": pose.Heading,
	}, nil)
}

// Remove deletes a simulated rover. The simulator rejects unknown
// names.
func (c *Client) Remove(ctx context.Context, name string) error {
	return c.rpc.Call(ctx, "remove", map[string]any{
		"name": name,
	}, nil)
}

// List returns all simulated rovers in spawn order.
func (c *Client) List(ctx context.Context) ([]Entity, error) {
	var result ListResult
	if err := c.rpc.Call(ctx, "list", nil, &result); err != nil {
		return nil, err
	}
	return result.Entities, nil
}
