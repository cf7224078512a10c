// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Corral-relay is an in-memory stand-in for the route broker in
// development and demo deployments. It serves the relay socket
// protocol exactly (apply-routes, list-routes, ping) and keeps the
// registered routes in memory.
//
// A batch is applied atomically: every rule is validated before any
// rule takes effect, so a bad rule rejects the whole request and
// leaves the table unchanged. Registering a rule that already exists
// is idempotent; cancelling a rule that was never registered is a
// logged no-op.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/corral-fleet/corral/lib/codec"
	"github.com/corral-fleet/corral/lib/config"
	"github.com/corral-fleet/corral/lib/process"
	"github.com/corral-fleet/corral/lib/relay"
	"github.com/corral-fleet/corral/lib/rpc"
	"github.com/corral-fleet/corral/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var socketPath string
	var logLevel string
	var showVersion bool
	flag.StringVar(&socketPath, "socket", "", "relay socket path (default: <run dir>/relay.sock)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		version.Print("corral-relay")
		return nil
	}

	if socketPath == "" {
		cfg := config.Default()
		cfg.Resolve()
		if err := cfg.EnsurePaths(); err != nil {
			return err
		}
		socketPath = cfg.Relay.Socket
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(logLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table := newRouteTable(logger)

	server := rpc.NewSocketServer(socketPath, logger)
	table.registerActions(server)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- server.Serve(ctx)
	}()

	logger.Info("relay running", "socket", socketPath)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	return nil
}

// routeTable is the in-memory route registry, keyed by the full
// {namespace, direction, entity, channel} tuple.
type routeTable struct {
	mu     sync.Mutex
	routes map[relay.Route]struct{}
	logger *slog.Logger
}

func newRouteTable(logger *slog.Logger) *routeTable {
	return &routeTable{
		routes: make(map[relay.Route]struct{}),
		logger: logger,
	}
}

func (t *routeTable) registerActions(server *rpc.SocketServer) {
	server.Handle("apply-routes", t.handleApply)
	server.Handle("list-routes", t.handleList)
}

func (t *routeTable) handleApply(ctx context.Context, raw []byte) (any, error) {
	var request relay.ApplyRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid apply-routes request: %w", err)
	}
	if request.Namespace == "" {
		return nil, fmt.Errorf("missing required field: namespace")
	}
	if len(request.Rules) == 0 {
		return nil, fmt.Errorf("apply-routes request has no rules")
	}

	// Validate the whole batch before touching the table: either
	// every rule applies or none does.
	for index, rule := range request.Rules {
		if err := validateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", index, err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rule := range request.Rules {
		route := relay.Route{
			Namespace: request.Namespace,
			Direction: rule.Direction,
			Entity:    rule.Entity,
			Channel:   rule.Channel,
		}
		if request.Cancel {
			if _, exists := t.routes[route]; !exists {
				t.logger.Info("cancel of unknown route ignored",
					"namespace", route.Namespace, "entity", route.Entity,
					"direction", string(route.Direction), "channel", route.Channel)
				continue
			}
			delete(t.routes, route)
		} else {
			t.routes[route] = struct{}{}
		}
	}

	t.logger.Info("routes applied",
		"namespace", request.Namespace,
		"rules", len(request.Rules),
		"cancel", request.Cancel,
		"active", len(t.routes),
	)
	return nil, nil
}

func (t *routeTable) handleList(ctx context.Context, raw []byte) (any, error) {
	var request relay.ListRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid list-routes request: %w", err)
	}

	t.mu.Lock()
	routes := make([]relay.Route, 0, len(t.routes))
	for route := range t.routes {
		if request.Namespace != "" && route.Namespace != request.Namespace {
			continue
		}
		routes = append(routes, route)
	}
	t.mu.Unlock()

	slices.SortFunc(routes, func(a, b relay.Route) int {
		if c := cmp.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Entity, b.Entity); c != 0 {
			return c
		}
		if c := cmp.Compare(string(a.Direction), string(b.Direction)); c != 0 {
			return c
		}
		return cmp.Compare(a.Channel, b.Channel)
	})

	return relay.ListResult{Routes: routes}, nil
}

func validateRule(rule relay.Rule) error {
	if !rule.Direction.Valid() {
		return fmt.Errorf("unknown direction %q", string(rule.Direction))
	}
	if rule.Entity == "" {
		return fmt.Errorf("missing entity")
	}
	if rule.Channel == "" {
		return fmt.Errorf("missing channel")
	}
	return nil
}
