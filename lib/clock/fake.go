// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. The clock
// advances only when Advance is called.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a Clock whose time is controlled by the test. All
// methods are safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	current time.Time
	waiters []*waiter
}

// waiter is a pending timer or ticker registration.
type waiter struct {
	deadline time.Time
	period   time.Duration // zero for one-shot timers
	ch       chan time.Time
	stopped  bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.current
		return ch
	}
	c.addLocked(&waiter{deadline: c.current.Add(d), ch: ch})
	return ch
}

func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &waiter{deadline: c.current.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.addLocked(w)
	return &fakeTicker{clock: c, w: w}
}

func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// Advance moves the clock forward by d, firing due timers in deadline
// order. One-shot timers deliver exactly once; tickers re-arm after
// each delivery and drop ticks when the receiver is not ready, matching
// time.Ticker. Advance returns once all due deliveries have been made.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.current.Add(d)
	for {
		w := c.earliestLocked(target)
		if w == nil {
			break
		}
		c.current = w.deadline
		if w.period > 0 {
			select {
			case w.ch <- c.current:
			default:
			}
			w.deadline = w.deadline.Add(w.period)
		} else {
			w.ch <- c.current
			c.removeLocked(w)
		}
	}
	c.current = target
}

// WaitForTimers blocks until at least n timers or tickers are
// registered. Call it before Advance to synchronize with goroutines
// that register their timers asynchronously.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.cond.Wait()
	}
}

// PendingCount returns the number of registered timers and tickers,
// excluding stopped tickers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

// earliestLocked returns the active waiter with the earliest deadline
// at or before limit, or nil when none are due.
func (c *FakeClock) earliestLocked(limit time.Time) *waiter {
	var best *waiter
	for _, w := range c.waiters {
		if w.stopped || w.deadline.After(limit) {
			continue
		}
		if best == nil || w.deadline.Before(best.deadline) {
			best = w
		}
	}
	return best
}

func (c *FakeClock) addLocked(w *waiter) {
	c.waiters = append(c.waiters, w)
	c.cond.Broadcast()
}

func (c *FakeClock) removeLocked(target *waiter) {
	for i, w := range c.waiters {
		if w == target {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

func (c *FakeClock) pendingLocked() int {
	n := 0
	for _, w := range c.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}

type fakeTicker struct {
	clock *FakeClock
	w     *waiter
}

func (t *fakeTicker) C() <-chan time.Time { return t.w.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.w.stopped = true
}

func (t *fakeTicker) Reset(d time.Duration) {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.w.stopped = false
	t.w.period = d
	t.w.deadline = t.clock.current.Add(d)
}
