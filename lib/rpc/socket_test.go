// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corral-fleet/corral/lib/codec"
	"github.com/corral-fleet/corral/lib/testutil"
)

// sendRequest connects to a Unix socket, sends a CBOR request, and
// returns the decoded response envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	// Signal that we're done writing (half-close). CBOR is self-
	// delimiting so this isn't required by the protocol, but it's
	// good hygiene.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

// decodeData unmarshals the Data field of a response into the given
// target. Fails the test if decoding fails.
func decodeData(t *testing.T, response Response, target any) {
	t.Helper()
	if len(response.Data) == 0 {
		t.Fatal("response has no data to decode")
	}
	if err := codec.Unmarshal(response.Data, target); err != nil {
		t.Fatalf("decoding response data: %v", err)
	}
}

func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "test.sock")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	for {
		// A stale regular file may sit at the path until Serve
		// replaces it; wait for an actual socket.
		if info, err := os.Stat(path); err == nil && info.Mode()&os.ModeSocket != 0 {
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear before test context expired", path)
		}
		runtime.Gosched()
	}
}

// startServer runs server.Serve in a goroutine and returns a stop
// function that cancels it and waits for Serve to return.
func startServer(t *testing.T, server *SocketServer, socketPath string) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var serveErr error
	go func() {
		defer wg.Done()
		serveErr = server.Serve(ctx)
	}()
	waitForSocket(t, socketPath)

	return func() {
		cancel()
		wg.Wait()
		if serveErr != nil {
			t.Errorf("Serve returned error: %v", serveErr)
		}
	}
}

func TestSocketServerRoundtrip(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{
			"uptime_seconds": 42,
			"rovers":         3,
		}, nil
	})

	stop := startServer(t, server, socketPath)
	defer stop()

	response := sendRequest(t, socketPath, map[string]string{"action": "status"})

	if !response.OK {
		t.Errorf("expected ok=true, got false")
	}

	var data map[string]any
	decodeData(t, response, &data)
	if data["uptime_seconds"] != uint64(42) {
		t.Errorf("expected uptime_seconds=42, got %v (%T)", data["uptime_seconds"], data["uptime_seconds"])
	}
	if data["rovers"] != uint64(3) {
		t.Errorf("expected rovers=3, got %v (%T)", data["rovers"], data["rovers"])
	}
}

func TestSocketServerBuiltinPing(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	stop := startServer(t, server, socketPath)
	defer stop()

	// No handlers registered: ping must still answer.
	response := sendRequest(t, socketPath, map[string]string{"action": "ping"})

	if !response.OK {
		t.Errorf("expected ok=true from builtin ping, got false (%s)", response.Error)
	}
	if len(response.Data) != 0 {
		t.Errorf("ping response should have no data, got %d bytes", len(response.Data))
	}
}

func TestSocketServerUnknownAction(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	stop := startServer(t, server, socketPath)
	defer stop()

	response := sendRequest(t, socketPath, map[string]string{"action": "nonexistent"})

	if response.OK {
		t.Errorf("expected ok=false, got true")
	}
	if !strings.Contains(response.Error, "nonexistent") {
		t.Errorf("error %q should name the unknown action", response.Error)
	}
}

func TestSocketServerMissingAction(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	stop := startServer(t, server, socketPath)
	defer stop()

	response := sendRequest(t, socketPath, map[string]string{"foo": "bar"})

	if response.OK {
		t.Errorf("expected ok=false, got true")
	}
	if !strings.Contains(response.Error, "action") {
		t.Errorf("error %q should mention the missing action field", response.Error)
	}
}

func TestSocketServerInvalidCBOR(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	stop := startServer(t, server, socketPath)
	defer stop()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0xFF, 0xFE, 0xFD}); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.OK {
		t.Error("expected ok=false for invalid CBOR")
	}
}

func TestSocketServerEmptyConnection(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	stop := startServer(t, server, socketPath)
	defer stop()

	// Connect and immediately close without sending anything. The
	// server must treat this as benign.
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	conn.Close()

	// The server still answers subsequent requests.
	response := sendRequest(t, socketPath, map[string]string{"action": "ping"})
	if !response.OK {
		t.Errorf("expected ok=true after empty connection, got false")
	}
}

func TestSocketServerHandlerError(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, context.DeadlineExceeded
	})

	stop := startServer(t, server, socketPath)
	defer stop()

	response := sendRequest(t, socketPath, map[string]string{"action": "fail"})

	if response.OK {
		t.Error("expected ok=false for handler error")
	}
	if response.Error != context.DeadlineExceeded.Error() {
		t.Errorf("error = %q, want %q", response.Error, context.DeadlineExceeded.Error())
	}
}

func TestSocketServerNilResultOmitsData(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	server.Handle("noop", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})

	stop := startServer(t, server, socketPath)
	defer stop()

	response := sendRequest(t, socketPath, map[string]string{"action": "noop"})

	if !response.OK {
		t.Error("expected ok=true")
	}
	if len(response.Data) != 0 {
		t.Errorf("expected empty data, got %d bytes", len(response.Data))
	}
}

func TestSocketServerDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for duplicate handler registration")
		}
	}()
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
}

func TestSocketServerPingIsReserved(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", testLogger())

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when registering the reserved ping action")
		}
	}()
	server.Handle("ping", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
}

func TestSocketServerStaleSocketRemoved(t *testing.T) {
	socketPath := testSocketPath(t)

	// Leave a stale file where the socket should go, as after an
	// unclean daemon exit.
	if err := os.WriteFile(socketPath, []byte("stale"), 0600); err != nil {
		t.Fatalf("writing stale socket file: %v", err)
	}

	server := NewSocketServer(socketPath, testLogger())
	stop := startServer(t, server, socketPath)
	defer stop()

	response := sendRequest(t, socketPath, map[string]string{"action": "ping"})
	if !response.OK {
		t.Error("expected ok=true after stale socket removal")
	}
}

func TestSocketServerGracefulShutdown(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	entered := make(chan struct{})
	release := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(entered)
		<-release
		return map[string]string{"state": "done"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	waitForSocket(t, socketPath)

	// Issue a request that blocks inside the handler. The goroutine
	// reports through channels; it must not call t.Fatalf.
	type result struct {
		response Response
		err      error
	}
	results := make(chan result, 1)
	go func() {
		conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
		if err != nil {
			results <- result{err: err}
			return
		}
		defer conn.Close()
		if err := codec.NewEncoder(conn).Encode(map[string]string{"action": "slow"}); err != nil {
			results <- result{err: err}
			return
		}
		if unixConn, ok := conn.(*net.UnixConn); ok {
			unixConn.CloseWrite()
		}
		var response Response
		if err := codec.NewDecoder(conn).Decode(&response); err != nil {
			results <- result{err: err}
			return
		}
		results <- result{response: response}
	}()

	testutil.RequireClosed(t, entered, 5*time.Second, "handler to start")

	// Cancel while the handler is in flight. Serve must wait for the
	// handler rather than dropping the connection.
	cancel()
	close(release)

	got := testutil.RequireReceive(t, results, 5*time.Second, "in-flight response")
	if got.err != nil {
		t.Fatalf("in-flight request: %v", got.err)
	}
	if !got.response.OK {
		t.Errorf("in-flight request failed: %s", got.response.Error)
	}
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve to return"); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
}
