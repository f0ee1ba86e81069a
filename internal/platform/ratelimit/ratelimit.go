// Package ratelimit throttles callers by key using fixed counting windows.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// FixedWindow admits up to limit calls per key in each window. The zero
// value is not usable; construct with NewFixedWindow.
type FixedWindow struct {
	limit     int
	window    time.Duration
	clock     func() time.Time
	mu        sync.Mutex
	entries   map[string]entry
	lastPrune time.Time
}

type entry struct {
	count int
	reset time.Time
}

// NewFixedWindow returns nil when limit or window is not positive, which
// callers treat as "limiting disabled".
func NewFixedWindow(limit int, window time.Duration, clock func() time.Time) *FixedWindow {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &FixedWindow{
		limit:   limit,
		window:  window,
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Allow records one call for key. A nil limiter allows everything.
func (l *FixedWindow) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	current, ok := l.entries[key]
	if !ok || !now.Before(current.reset) {
		l.entries[key] = entry{count: 1, reset: now.Add(l.window)}
		return true
	}
	if current.count >= l.limit {
		return false
	}
	current.count++
	l.entries[key] = current
	return true
}

// pruneLocked drops expired keys at most once per window.
func (l *FixedWindow) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	l.lastPrune = now
	for key, e := range l.entries {
		if !now.Before(e.reset) {
			delete(l.entries, key)
		}
	}
}

// Len reports the number of tracked keys.
func (l *FixedWindow) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
