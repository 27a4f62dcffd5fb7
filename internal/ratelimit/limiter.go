// Package ratelimit provides a process-local cooldown limiter. It is a
// best-effort throttle, not a correctness mechanism: durable invariants rely
// on storage transactions, never on this map.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter gates actions per (subject, action) key.
type Limiter interface {
	// Allow reports whether subject may perform action now, and records the
	// attempt when it may.
	Allow(subject, action string) bool
}

// CooldownLimiter allows one action per (subject, action) per window.
type CooldownLimiter struct {
	clock   clockwork.Clock
	window  time.Duration
	windows map[string]time.Duration // per-action overrides

	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldown builds a limiter with a default window and optional per-action
// overrides.
func NewCooldown(clock clockwork.Clock, window time.Duration, overrides map[string]time.Duration) *CooldownLimiter {
	return &CooldownLimiter{
		clock:   clock,
		window:  window,
		windows: overrides,
		last:    make(map[string]time.Time),
	}
}

var _ Limiter = (*CooldownLimiter)(nil)

func (l *CooldownLimiter) Allow(subject, action string) bool {
	window := l.window
	if w, ok := l.windows[action]; ok {
		window = w
	}
	if window <= 0 {
		return true
	}

	key := subject + "|" + action
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if at, ok := l.last[key]; ok && now.Sub(at) < window {
		return false
	}
	l.last[key] = now
	return true
}

// Unlimited never throttles. Useful for tests and single-user tools.
type Unlimited struct{}

func (Unlimited) Allow(string, string) bool { return true }
