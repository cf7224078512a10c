// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"

	"github.com/corral-fleet/corral/lib/rpc"
)

// ApplyRequest is the wire shape of the apply-routes action. The
// whole batch is one request: the relay registers or cancels all
// rules together.
type ApplyRequest struct {
	Namespace string `cbor:"namespace"`
	Rules     []Rule `cbor:"rules"`
	Cancel    bool   `cbor:"cancel"`
}

// Route is one active registration as reported by list-routes.
type Route struct {
	Namespace string    `cbor:"namespace"`
	Direction Direction `cbor:"direction"`
	Entity    string    `cbor:"entity"`
	Channel   string    `cbor:"channel"`
}

// ListRequest is the wire shape of the list-routes action. An empty
// namespace lists every route on the relay.
type ListRequest struct {
	Namespace string `cbor:"namespace,omitempty"`
}

// ListResult is the response to list-routes.
type ListResult struct {
	Routes []Route `cbor:"routes"`
}

// Client is a typed client for the relay socket, scoped to one
// namespace. All rules a herd registers carry its namespace, so herds
// sharing a relay cannot collide.
type Client struct {
	rpc       *rpc.Client
	namespace string
}

// NewClient creates a relay client for the socket at socketPath. All
// calls are scoped to the given namespace.
func NewClient(socketPath, namespace string) *Client {
	return &Client{
		rpc:       rpc.NewClient(socketPath),
		namespace: namespace,
	}
}

// SocketPath returns the relay socket path this client targets.
func (c *Client) SocketPath() string {
	return c.rpc.SocketPath()
}

// Namespace returns the namespace this client is scoped to.
func (c *Client) Namespace() string {
	return c.namespace
}

// Ping probes relay liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.rpc.Ping(ctx)
}

// Apply sends one batched route request. cancel=false registers the
// rules, cancel=true cancels them. The batch is atomic on the relay
// side: there is no per-rule fallback.
func (c *Client) Apply(ctx context.Context, rules []Rule, cancel bool) error {
	return c.rpc.Call(ctx, "apply-routes", map[string]any{
		"namespace": c.namespace,
		"rules":     rules,
		"cancel":    cancel,
	}, nil)
}

// List returns the active routes in this client's namespace, sorted
// by the relay.
func (c *Client) List(ctx context.Context) ([]Route, error) {
	var result ListResult
	if err := c.rpc.Call(ctx, "list-routes", map[string]any{
		"namespace": c.namespace,
	}, &result); err != nil {
		return nil, err
	}
	return result.Routes, nil
}
