package ratelimit

import (
	"sync"
	"time"
)

// Limiter bounds the frequency of an operation per identifying key.
type Limiter interface {
	// Allow reports whether another attempt for key is admitted under
	// limit attempts per trailing window. Rejected attempts are not
	// recorded.
	Allow(key string, limit int, window time.Duration) bool
}

// SlidingWindow is an in-memory Limiter keeping per-key attempt instants.
// The window boundary moves continuously with now, so bursts straddling
// a bucket edge are still bounded. State is process-local: a restart
// resets all limits.
type SlidingWindow struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewSlidingWindow creates a limiter and starts a background sweep that
// drops keys whose attempts have all aged out.
func NewSlidingWindow() *SlidingWindow {
	sw := &SlidingWindow{
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
	go sw.cleanup()
	return sw
}

// newSlidingWindowAt is like NewSlidingWindow with an injected clock and
// no background sweep. Used by tests.
func newSlidingWindowAt(now func() time.Time) *SlidingWindow {
	return &SlidingWindow{
		attempts: make(map[string][]time.Time),
		now:      now,
	}
}

func (sw *SlidingWindow) Allow(key string, limit int, window time.Duration) bool {
	now := sw.now()
	cutoff := now.Add(-window)

	sw.mu.Lock()
	defer sw.mu.Unlock()

	kept := sw.attempts[key][:0]
	for _, at := range sw.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= limit {
		sw.attempts[key] = kept
		return false
	}
	sw.attempts[key] = append(kept, now)
	return true
}

// cleanup removes keys with no attempts in the last hour. Windows in use
// are far shorter, so an hour-old entry cannot affect any decision.
func (sw *SlidingWindow) cleanup() {
	for {
		time.Sleep(10 * time.Minute)
		cutoff := sw.now().Add(-time.Hour)
		sw.mu.Lock()
		for key, atts := range sw.attempts {
			live := false
			for _, at := range atts {
				if at.After(cutoff) {
					live = true
					break
				}
			}
			if !live {
				delete(sw.attempts, key)
			}
		}
		sw.mu.Unlock()
	}
}
