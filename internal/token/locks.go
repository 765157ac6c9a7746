package token

import (
	"context"
	"sync"
	"time"
)

// Locker is the fingerprint lock table keeping one token award per image
// within the lock window. Keys are fingerprints only, so the same image is
// blocked across sessions.
type Locker interface {
	// Acquire sets the lock if it is free or expired and reports whether it
	// was taken. When refused, wait is the remaining lock time.
	Acquire(ctx context.Context, fingerprint string, ttl time.Duration) (taken bool, wait time.Duration, err error)
}

// evictThreshold bounds the in-memory table: once the map grows past it,
// every expired entry is swept on the next Acquire.
const evictThreshold = 4096

// MemoryLocker is the single-process lock table. Check and set happen under
// one mutex, so concurrent uploads of the same image cannot both win.
type MemoryLocker struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, fp string, ttl time.Duration) (bool, time.Duration, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if deadline, ok := l.until[fp]; ok {
		if deadline.After(now) {
			return false, deadline.Sub(now), nil
		}
		delete(l.until, fp)
	}

	if len(l.until) > evictThreshold {
		for k, d := range l.until {
			if !d.After(now) {
				delete(l.until, k)
			}
		}
	}

	l.until[fp] = now.Add(ttl)
	return true, 0, nil
}

// Len reports the current table size.
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.until)
}
