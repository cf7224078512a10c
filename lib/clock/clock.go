// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts time operations for testability. Production code
// uses Real(); tests use Fake() for deterministic time control.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that delivers the current time after
	// duration d has elapsed.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that delivers ticks on its channel
	// every d interval.
	NewTicker(d time.Duration) Ticker

	// Sleep blocks for duration d.
	Sleep(d time.Duration)
}

// Ticker delivers ticks on a channel at a regular interval. It behaves
// like time.Ticker but can be backed by a fake clock in tests.
type Ticker interface {
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time

	// Stop turns off the ticker. Stop does not close the channel.
	Stop()

	// Reset stops the ticker and resets its period to d. The next
	// tick arrives after the new period elapses.
	Reset(d time.Duration)
}
