// Package gracetimer generalizes the single-timer cancel-channel idiom
// used throughout this kind of server (one cancellable delay per key) into
// a small reusable table, so both the lobby registry's reconnect timers and
// the session registry's cleanup timers share one implementation instead of
// two hand-rolled copies.
package gracetimer

import (
	"sync"
	"time"
)

// Table tracks at most one armed timer per key. It does not hold its own
// mutex over caller state — Arm and Cancel only protect the timer table
// itself; the onExpire callback is responsible for taking whatever lock
// guards the state it inspects and mutates, and for re-checking conditions
// before acting, since the timer may have raced with a cancellation.
type Table struct {
	mu     sync.Mutex
	timers map[string]chan struct{}
}

// NewTable returns an empty timer table.
func NewTable() *Table {
	return &Table{timers: make(map[string]chan struct{})}
}

// Arm starts a timer for key if (and only if) none is currently armed. If a
// timer already exists for key, Arm is a no-op — this is what makes
// scheduleDisconnect/scheduleCleanup idempotent under concurrent callers.
// After delay elapses without cancellation, onExpire runs and the entry is
// removed from the table.
func (t *Table) Arm(key string, delay time.Duration, onExpire func()) {
	t.mu.Lock()
	if _, exists := t.timers[key]; exists {
		t.mu.Unlock()
		return
	}
	cancel := make(chan struct{})
	t.timers[key] = cancel
	t.mu.Unlock()

	go func() {
		select {
		case <-time.After(delay):
			t.mu.Lock()
			// The timer may have been cancelled and re-armed (or just
			// cancelled) between firing and acquiring the lock; only run
			// onExpire if this is still the live timer for key.
			if t.timers[key] != cancel {
				t.mu.Unlock()
				return
			}
			delete(t.timers, key)
			t.mu.Unlock()
			onExpire()
		case <-cancel:
		}
	}()
}

// Cancel cancels the timer for key if one is armed. No-op otherwise.
func (t *Table) Cancel(key string) {
	t.mu.Lock()
	cancel, exists := t.timers[key]
	if exists {
		delete(t.timers, key)
	}
	t.mu.Unlock()
	if exists {
		close(cancel)
	}
}

// Armed reports whether a timer is currently armed for key. Intended for
// tests and diagnostics, not for control flow (it is stale the instant it
// returns under concurrent use).
func (t *Table) Armed(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.timers[key]
	return exists
}
