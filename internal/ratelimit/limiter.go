// Package ratelimit implements a fixed-window per-client rate limiter for the
// render endpoints.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is the fixed accounting period for every client.
const Window = 60 * time.Second

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

type window struct {
	count int
	reset time.Time
}

// Limiter counts render requests per client address over fixed 60-second
// windows. Expired windows are evicted by a periodic sweep; correctness does
// not depend on it. Every read compares the window's reset timestamp against
// the current clock, so an entry that has logically expired but not yet been
// swept is treated as expired.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	now     func() time.Time
}

// New creates a Limiter allowing limit requests per client per window.
func New(limit int) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		now:     time.Now,
	}
}

// Allow records a request from addr and reports whether it fits the window.
func (l *Limiter) Allow(addr string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[addr]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(Window)}
		l.windows[addr] = w
	}

	if w.count >= l.limit {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, Reset: w.reset}
	}
	w.count++
	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - w.count,
		Reset:     w.reset,
	}
}

// Sweep evicts expired windows every interval until ctx finishes. Run it in
// its own goroutine; it exists to bound memory, not to enforce expiry.
func (l *Limiter) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = Window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictExpired()
		}
	}
}

func (l *Limiter) evictExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for addr, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, addr)
		}
	}
}

// tracked returns the number of live window entries. Test hook.
func (l *Limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
