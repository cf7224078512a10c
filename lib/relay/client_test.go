// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package relay_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/corral-fleet/corral/lib/codec"
	"github.com/corral-fleet/corral/lib/relay"
	"github.com/corral-fleet/corral/lib/rpc"
	"github.com/corral-fleet/corral/lib/testutil"
)

// startRelayStub serves the given handlers on a fresh socket and
// returns a relay client scoped to the "corral" namespace.
func startRelayStub(t *testing.T, register func(*rpc.SocketServer)) *relay.Client {
	t.Helper()

	socketPath := filepath.Join(testutil.SocketDir(t), "relay.sock")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	server := rpc.NewSocketServer(socketPath, logger)
	if register != nil {
		register(server)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	for {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if t.Context().Err() != nil {
			t.Fatal("timed out waiting for socket")
		}
		runtime.Gosched()
	}

	return relay.NewClient(socketPath, "corral")
}

func TestApplySendsOneBatch(t *testing.T) {
	received := make(chan relay.ApplyRequest, 2)

	client := startRelayStub(t, func(s *rpc.SocketServer) {
		s.Handle("apply-routes", func(ctx context.Context, raw []byte) (any, error) {
			var req relay.ApplyRequest
			if err := codec.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			received <- req
			return nil, nil
		})
	})

	rules := relay.RulesFor([]string{"t1", "t2"}, "drive", "pose")
	if err := client.Apply(t.Context(), rules, false); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	req := testutil.RequireReceive(t, received, 5*time.Second, "apply request")
	if req.Namespace != "corral" {
		t.Errorf("Namespace = %q, want corral", req.Namespace)
	}
	if req.Cancel {
		t.Error("Cancel = true, want false")
	}
	if len(req.Rules) != 4 {
		t.Fatalf("received %d rules, want all 4 in one request", len(req.Rules))
	}
	for i, want := range rules {
		if req.Rules[i] != want {
			t.Errorf("rule %d = %+v, want %+v", i, req.Rules[i], want)
		}
	}

	// The whole batch went as exactly one request.
	select {
	case extra := <-received:
		t.Fatalf("unexpected second request: %+v", extra)
	default:
	}
}

func TestApplyCancelFlag(t *testing.T) {
	received := make(chan relay.ApplyRequest, 1)

	client := startRelayStub(t, func(s *rpc.SocketServer) {
		s.Handle("apply-routes", func(ctx context.Context, raw []byte) (any, error) {
			var req relay.ApplyRequest
			if err := codec.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			received <- req
			return nil, nil
		})
	})

	rules := relay.RulesFor([]string{"scout"}, "drive", "pose")
	if err := client.Apply(t.Context(), rules, true); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	req := testutil.RequireReceive(t, received, 5*time.Second, "apply request")
	if !req.Cancel {
		t.Error("Cancel = false, want true")
	}
}

func TestApplyFailureSurfaces(t *testing.T) {
	client := startRelayStub(t, func(s *rpc.SocketServer) {
		s.Handle("apply-routes", func(ctx context.Context, raw []byte) (any, error) {
			return nil, errors.New("unknown direction")
		})
	})

	err := client.Apply(t.Context(), relay.RulesFor([]string{"x"}, "drive", "pose"), false)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var serviceErr *rpc.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error %T is not a *rpc.ServiceError", err)
	}
	if serviceErr.Action != "apply-routes" {
		t.Errorf("Action = %q, want apply-routes", serviceErr.Action)
	}
}

func TestListScopedToNamespace(t *testing.T) {
	routes := []relay.Route{
		{Namespace: "corral", Direction: relay.Inbound, Entity: "scout", Channel: "drive"},
		{Namespace: "corral", Direction: relay.Outbound, Entity: "scout", Channel: "pose"},
	}
	requested := make(chan string, 1)

	client := startRelayStub(t, func(s *rpc.SocketServer) {
		s.Handle("list-routes", func(ctx context.Context, raw []byte) (any, error) {
			var req relay.ListRequest
			if err := codec.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			requested <- req.Namespace
			return relay.ListResult{Routes: routes}, nil
		})
	})

	got, err := client.List(t.Context())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	namespace := testutil.RequireReceive(t, requested, 5*time.Second, "list request")
	if namespace != "corral" {
		t.Errorf("request namespace = %q, want corral", namespace)
	}
	if len(got) != len(routes) {
		t.Fatalf("got %d routes, want %d", len(got), len(routes))
	}
	for i, want := range routes {
		if got[i] != want {
			t.Errorf("route %d = %+v, want %+v", i, got[i], want)
		}
	}
}
