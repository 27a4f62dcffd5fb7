// Package timers schedules delayed callbacks keyed by id, one timer per key.
// The registry is process-local; see the limiter package note on multi-instance
// deployments.
package timers

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Registry tracks pending timers. Scheduling a key that already has a timer
// replaces it; any terminal resolution must Cancel its key, and Shutdown
// cancels everything so no callback fires against a torn-down system.
type Registry struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[uuid.UUID]clockwork.Timer
	closed bool
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:  clock,
		timers: make(map[uuid.UUID]clockwork.Timer),
	}
}

// Schedule runs fn after d unless the key is cancelled first.
func (r *Registry) Schedule(id uuid.UUID, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		log.Warn().Str("timer_id", id.String()).Msg("registry closed, dropping timer")
		return
	}
	if t, ok := r.timers[id]; ok {
		t.Stop()
	}
	r.timers[id] = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		delete(r.timers, id)
		r.mu.Unlock()
		fn()
	})
}

// Cancel stops the timer for id if one is pending.
func (r *Registry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[id]
	if !ok {
		return false
	}
	delete(r.timers, id)
	return t.Stop()
}

// Pending returns the number of scheduled timers.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Shutdown cancels all timers and refuses further scheduling.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
