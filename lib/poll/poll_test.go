// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package poll_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corral-fleet/corral/lib/clock"
	"github.com/corral-fleet/corral/lib/poll"
	"github.com/corral-fleet/corral/lib/testutil"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const tick = 300 * time.Millisecond

func TestAlreadyDisabledAtEntry(t *testing.T) {
	clk := clock.Fake(testEpoch)

	reason := poll.Wait(t.Context(), clk, tick, func() bool { return true })
	if reason != poll.Disabled {
		t.Fatalf("reason = %q, want %q", reason, poll.Disabled)
	}

	// A herd disabled before the loop starts never registers a ticker.
	if n := clk.PendingCount(); n != 0 {
		t.Errorf("PendingCount = %d, want 0", n)
	}
}

func TestContextCancelledAtEntry(t *testing.T) {
	clk := clock.Fake(testEpoch)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	reason := poll.Wait(ctx, clk, tick, func() bool { return false })
	if reason != poll.Interrupted {
		t.Fatalf("reason = %q, want %q", reason, poll.Interrupted)
	}
}

func TestDisableObservedAtNextTick(t *testing.T) {
	clk := clock.Fake(testEpoch)

	// Each disabled check signals on checks before reporting the flag,
	// so the test can sequence Advance calls with check execution and
	// never race the ticker channel.
	var flag atomic.Bool
	checks := make(chan struct{}, 16)
	disabled := func() bool {
		checks <- struct{}{}
		return flag.Load()
	}

	result := make(chan poll.Reason, 1)
	go func() {
		result <- poll.Wait(t.Context(), clk, tick, disabled)
	}()

	// Entry check runs before any ticker exists.
	testutil.RequireReceive(t, checks, 5*time.Second, "entry check")
	clk.WaitForTimers(1)

	// A tick with the flag clear does not exit the loop.
	clk.Advance(tick)
	testutil.RequireReceive(t, checks, 5*time.Second, "first tick check")
	select {
	case reason := <-result:
		t.Fatalf("Wait returned %q with the flag clear", reason)
	default:
	}

	// Setting the flag is observed at the next tick, not immediately.
	flag.Store(true)
	select {
	case reason := <-result:
		t.Fatalf("Wait returned %q before the next tick", reason)
	default:
	}

	clk.Advance(tick)
	testutil.RequireReceive(t, checks, 5*time.Second, "second tick check")

	reason := testutil.RequireReceive(t, result, 5*time.Second, "poll reason")
	if reason != poll.Disabled {
		t.Fatalf("reason = %q, want %q", reason, poll.Disabled)
	}
}

func TestInterruptedWhileWaiting(t *testing.T) {
	clk := clock.Fake(testEpoch)
	ctx, cancel := context.WithCancel(t.Context())

	checks := make(chan struct{}, 16)
	disabled := func() bool {
		checks <- struct{}{}
		return false
	}

	result := make(chan poll.Reason, 1)
	go func() {
		result <- poll.Wait(ctx, clk, tick, disabled)
	}()

	testutil.RequireReceive(t, checks, 5*time.Second, "entry check")
	clk.WaitForTimers(1)

	cancel()

	reason := testutil.RequireReceive(t, result, 5*time.Second, "poll reason")
	if reason != poll.Interrupted {
		t.Fatalf("reason = %q, want %q", reason, poll.Interrupted)
	}
}

func TestLoopSurvivesManyTicks(t *testing.T) {
	clk := clock.Fake(testEpoch)

	var flag atomic.Bool
	checks := make(chan struct{}, 16)
	disabled := func() bool {
		checks <- struct{}{}
		return flag.Load()
	}

	result := make(chan poll.Reason, 1)
	go func() {
		result <- poll.Wait(t.Context(), clk, tick, disabled)
	}()

	testutil.RequireReceive(t, checks, 5*time.Second, "entry check")
	clk.WaitForTimers(1)

	for range 10 {
		clk.Advance(tick)
		testutil.RequireReceive(t, checks, 5*time.Second, "tick check")
	}

	flag.Store(true)
	clk.Advance(tick)
	testutil.RequireReceive(t, checks, 5*time.Second, "final check")

	reason := testutil.RequireReceive(t, result, 5*time.Second, "poll reason")
	if reason != poll.Disabled {
		t.Fatalf("reason = %q, want %q", reason, poll.Disabled)
	}
}
