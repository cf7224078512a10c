// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corral-fleet/corral/lib/clock"
)

// ErrStartupUnavailable indicates a dependency socket did not become
// ready within the configured timeout. The herder refuses to start
// without its simulator and relay; callers match this sentinel with
// errors.Is to distinguish "dependency missing" from other startup
// failures.
var ErrStartupUnavailable = errors.New("dependency unavailable at startup")

// defaultReadyInterval is the probe interval used when ReadyConfig
// leaves Interval unset.
const defaultReadyInterval = 500 * time.Millisecond

// ReadyConfig configures WaitReady.
type ReadyConfig struct {
	// Name identifies the dependency in logs and error messages
	// ("simulator", "relay").
	Name string

	// SocketPath is the Unix socket to probe.
	SocketPath string

	// Interval is the delay between probes. Zero or negative uses a
	// 500ms default.
	Interval time.Duration

	// Timeout bounds the total wait. Zero means wait until ctx is
	// cancelled.
	Timeout time.Duration
}

// WaitReady probes the dependency's ping action until it answers, the
// timeout elapses, or ctx is cancelled. The first probe is immediate;
// failed probes are retried every Interval.
//
// Returns nil once the dependency answers. Returns an error wrapping
// ErrStartupUnavailable when the timeout elapses first, or an error
// wrapping the context's error on cancellation.
func WaitReady(ctx context.Context, clk clock.Clock, logger *slog.Logger, cfg ReadyConfig) error {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultReadyInterval
	}

	logger.Info("waiting for dependency",
		"name", cfg.Name,
		"socket", cfg.SocketPath,
		"timeout", cfg.Timeout,
	)

	client := NewClient(cfg.SocketPath)
	start := clk.Now()
	for attempt := 1; ; attempt++ {
		err := client.Ping(ctx)
		if err == nil {
			logger.Info("dependency ready",
				"name", cfg.Name,
				"socket", cfg.SocketPath,
				"attempts", attempt,
				"elapsed", clk.Now().Sub(start),
			)
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("waiting for %s at %s: %w", cfg.Name, cfg.SocketPath, ctx.Err())
		}
		logger.Debug("dependency not ready",
			"name", cfg.Name,
			"socket", cfg.SocketPath,
			"attempt", attempt,
			"error", err,
		)

		if cfg.Timeout > 0 && clk.Now().Sub(start) >= cfg.Timeout {
			return fmt.Errorf("%s at %s not ready after %v: %w",
				cfg.Name, cfg.SocketPath, cfg.Timeout, ErrStartupUnavailable)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s at %s: %w", cfg.Name, cfg.SocketPath, ctx.Err())
		case <-clk.After(interval):
		}
	}
}
