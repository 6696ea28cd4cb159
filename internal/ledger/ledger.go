// Package ledger tracks per-owner expiring unlock windows.
//
// State is in-memory only: a restart returns every owner to LOCKED, which is
// the safe default. Expiry is evaluated lazily at read time; there is no
// background sweeper.
package ledger

import (
	"sync"
	"time"
)

// Ledger records the unlock window of each owner. An owner with no window,
// or a window in the past, is locked.
type Ledger struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// New creates an empty ledger using the wall clock.
func New() *Ledger {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty ledger with an injected clock.
func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{
		until: make(map[string]time.Time),
		now:   now,
	}
}

// Unlock grants the owner a window of the given duration starting now,
// overwriting any prior window (extension, not accumulation). It returns the
// expiry timestamp.
func (l *Ledger) Unlock(ownerID string, window time.Duration) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.now().Add(window)
	l.until[ownerID] = until
	return until
}

// Lock immediately transitions the owner to LOCKED regardless of prior state.
func (l *Ledger) Lock(ownerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.until, ownerID)
}

// IsUnlocked reports whether the owner's window exists and has not expired.
func (l *Ledger) IsUnlocked(ownerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.until[ownerID]
	return ok && l.now().Before(until)
}

// UnlockedCount returns the number of owners currently within a window.
func (l *Ledger) UnlockedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	count := 0
	for _, until := range l.until {
		if now.Before(until) {
			count++
		}
	}
	return count
}
