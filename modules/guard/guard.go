// Package guard implements the process-wide brute-force circuit breaker
// shared by room joins and admin logins.
package guard

import (
	"sync"
	"time"

	"github.com/example/shared-rooms/domain/room"
)

// Guard counts failed authentication attempts in a sliding window and locks
// all authentication for a fixed period once the threshold is exceeded.
// It is global on purpose: guessing against any room or the admin login is
// one attack surface.
type Guard struct {
	mu          sync.Mutex
	cfg         Config
	now         func() time.Time
	failures    []time.Time
	lockedUntil time.Time
	onTrip      []func(until time.Time)
}

// New creates a Guard from cfg with opts applied on top.
func New(cfg Config, opts ...Option) *Guard {
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Guard{
		cfg: cfg.normalized(),
		now: time.Now,
	}
}

// WithClock replaces the time source. Tests use it to step time manually.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
	return g
}

// OnTrip registers fn to run, outside the guard's lock, each time the
// lockout trips.
func (g *Guard) OnTrip(fn func(until time.Time)) {
	g.mu.Lock()
	g.onTrip = append(g.onTrip, fn)
	g.mu.Unlock()
}

// Check returns a LockedOut AuthError while the lockout is active.
func (g *Guard) Check() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.liftExpired(now)
	if g.lockedUntil.IsZero() {
		return nil
	}
	return &room.AuthError{Reason: room.LockedOut, RetryAfter: g.lockedUntil.Sub(now)}
}

// RecordFailure notes a failed attempt and reports whether this attempt
// tripped the lockout.
func (g *Guard) RecordFailure() bool {
	g.mu.Lock()
	until, tripped := g.recordLocked()
	callbacks := g.onTrip
	g.mu.Unlock()

	if tripped {
		for _, fn := range callbacks {
			fn(until)
		}
	}
	return tripped
}

func (g *Guard) recordLocked() (time.Time, bool) {
	now := g.now()
	g.liftExpired(now)
	if !g.lockedUntil.IsZero() {
		return time.Time{}, false
	}

	g.failures = append(g.failures, now)
	cutoff := now.Add(-g.cfg.Window)
	kept := g.failures[:0]
	for _, ts := range g.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	g.failures = kept

	if len(g.failures) > g.cfg.Threshold {
		g.lockedUntil = now.Add(g.cfg.Lockout)
		return g.lockedUntil, true
	}
	return time.Time{}, false
}

// Locked reports whether authentication is currently refused.
func (g *Guard) Locked() bool {
	return g.Check() != nil
}

// Failures returns the number of failures currently inside the window.
func (g *Guard) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.failures)
}

// Config returns the effective configuration.
func (g *Guard) Config() Config {
	return g.cfg
}

// liftExpired clears the lockout and the failure list once the lockout ends.
// Caller must hold g.mu.
func (g *Guard) liftExpired(now time.Time) {
	if g.lockedUntil.IsZero() || now.Before(g.lockedUntil) {
		return
	}
	g.lockedUntil = time.Time{}
	g.failures = g.failures[:0]
}
