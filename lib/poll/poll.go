// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package poll implements the herder's scheduling policy: a fixed
// tick loop that waits for a disable signal or an interrupt. The
// policy lives outside the coordinator so it can be tested with a
// fake clock and swapped without touching orchestration logic.
package poll

import (
	"context"
	"time"

	"github.com/corral-fleet/corral/lib/clock"
)

// Reason reports why Wait returned.
type Reason string

const (
	// Disabled means the disabled check reported true at a tick (or
	// at entry).
	Disabled Reason = "disabled"

	// Interrupted means the context was cancelled.
	Interrupted Reason = "interrupted"
)

// Wait blocks until the disabled check reports true or ctx is
// cancelled, then returns why. The check runs once at entry (a herd
// disabled before the loop starts never sleeps) and then once per
// tick; a flag set between ticks is observed at the next tick, which
// bounds shutdown latency to one interval.
func Wait(ctx context.Context, clk clock.Clock, interval time.Duration, disabled func() bool) Reason {
	if ctx.Err() != nil {
		return Interrupted
	}
	if disabled() {
		return Disabled
	}

	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Interrupted
		case <-ticker.C():
			if disabled() {
				return Disabled
			}
		}
	}
}
