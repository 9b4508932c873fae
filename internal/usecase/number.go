package usecase

import (
	"fmt"
	"sync"
	"time"
)

// NumberAllocator hands out human-readable order numbers, e.g.
// ORD-20250901-143055-003: date, time, and an in-process sequence so
// concurrent finalizations inside the same second never collide. The
// unique index on orders.number is the backstop across restarts.
type NumberAllocator struct {
	mu  sync.Mutex
	day string
	seq int64
}

func NewNumberAllocator() *NumberAllocator {
	return &NumberAllocator{}
}

func (a *NumberAllocator) Next(now time.Time) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	day := now.Format("20060102")
	if day != a.day {
		a.day = day
		a.seq = 0
	}
	a.seq++

	return fmt.Sprintf("ORD-%s-%s-%03d", day, now.Format("150405"), a.seq%1000)
}
