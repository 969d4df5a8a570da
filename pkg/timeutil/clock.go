// Package timeutil provides calendar-date helpers and a mockable clock.
package timeutil

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts wall-clock time and timer creation so session countdowns
// and persistence debouncing can be tested deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules f to run after d and returns a cancellable timer.
	AfterFunc(d time.Duration, f func()) Timer

	// NewTicker returns a ticker firing every d.
	NewTicker(d time.Duration) Ticker
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped the
	// timer before it fired.
	Stop() bool
}

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// ═══════════════════════════════════════════════════════════════════════════
// Real clock
// ═══════════════════════════════════════════════════════════════════════════

// RealClock implements Clock using the time package.
type RealClock struct{}

// NewRealClock returns a Clock backed by real wall-clock time.
func NewRealClock() RealClock {
	return RealClock{}
}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f after d.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

// NewTicker returns a real ticker.
func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool {
	return r.t.Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time {
	return r.t.C
}

func (r *realTicker) Stop() {
	r.t.Stop()
}

// ═══════════════════════════════════════════════════════════════════════════
// Fake clock (for tests)
// ═══════════════════════════════════════════════════════════════════════════

// FakeClock is a manually advanced Clock for deterministic tests.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

// NewFakeClock creates a FakeClock starting at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run when the clock is advanced past d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// NewTicker returns a ticker advanced by Advance calls.
func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{
		clock:    c,
		deadline: c.now.Add(d),
		interval: d,
		ch:       make(chan time.Time, 64),
	}
	c.timers = append(c.timers, t)
	return &fakeTicker{t: t}
}

// Advance moves the clock forward, firing due timers in deadline order.
// Callbacks run synchronously on the calling goroutine.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		next := c.nextDueLocked(target)
		if next == nil {
			break
		}
		c.now = next.deadline

		var fn func()
		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
			select {
			case next.ch <- c.now:
			default:
			}
		} else {
			next.fired = true
			fn = next.fn
		}

		if fn != nil {
			// Release the lock while the callback runs so it can
			// schedule new timers or read the clock.
			c.mu.Unlock()
			fn()
			c.mu.Lock()
		}
	}

	c.now = target
	c.mu.Unlock()
}

// nextDueLocked returns the earliest pending timer due at or before target.
func (c *FakeClock) nextDueLocked(target time.Time) *fakeTimer {
	pending := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.deadline.After(target) {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].deadline.Before(pending[j].deadline)
	})
	return pending[0]
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	interval time.Duration
	fn       func()
	ch       chan time.Time
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

// fakeTicker adapts a repeating fakeTimer to the Ticker interface.
type fakeTicker struct {
	t *fakeTimer
}

func (f *fakeTicker) C() <-chan time.Time {
	return f.t.ch
}

func (f *fakeTicker) Stop() {
	f.t.Stop()
}
