// Package ratelimit implements a per-user sliding-window limiter for
// the event pipeline. Single-process by design; promo counters and the
// duplicate-confirmation guard live in shared stores already, so this
// is the only piece that would need an external counter to scale out.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows up to max events per window for each user, counted
// over a sliding window. Stale timestamps are evicted lazily on each
// check; there is no background sweep. A user who hits the limit can
// optionally be banned for banFor on top of the window.
type Limiter struct {
	max    int
	window time.Duration
	banFor time.Duration

	mu   sync.Mutex
	seen map[string][]time.Time
	bans map[string]time.Time
}

func New(max int, window, banFor time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		banFor: banFor,
		seen:   map[string][]time.Time{},
		bans:   map[string]time.Time{},
	}
}

// Allow records the event and reports whether it may proceed. O(window
// size) per call.
func (l *Limiter) Allow(userID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.bans[userID]; ok {
		if now.Before(until) {
			return false
		}
		delete(l.bans, userID)
	}

	cutoff := now.Add(-l.window)
	kept := l.seen[userID][:0]
	for _, ts := range l.seen[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.seen[userID] = kept
		if l.banFor > 0 {
			l.bans[userID] = now.Add(l.banFor)
		}
		return false
	}

	l.seen[userID] = append(kept, now)
	return true
}

// InWindow returns how many events the user currently has in the
// window. For metrics and tests.
func (l *Limiter) InWindow(userID string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	n := 0
	for _, ts := range l.seen[userID] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// Forget drops all state for users idle longer than maxAge. Callers may
// run this from a housekeeping loop to cap memory on long uptimes.
func (l *Limiter) Forget(now time.Time, maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-maxAge)
	removed := 0
	for user, stamps := range l.seen {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.seen, user)
			removed++
		}
	}
	for user, until := range l.bans {
		if now.After(until) {
			delete(l.bans, user)
		}
	}
	return removed
}
