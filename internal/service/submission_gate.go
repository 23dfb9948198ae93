package service

import (
	"strings"
	"sync"
	"time"
)

// SubmissionGate throttles the public form per submitter. It counts
// submission attempts inside a sliding window; crossing the limit blocks
// the username for a fixed period. State is in-memory and resets on
// restart, which is acceptable for an abuse brake.
type SubmissionGate struct {
	maxAttempts int
	window      time.Duration
	blockFor    time.Duration

	mu       sync.Mutex
	attempts map[string][]time.Time
	blocked  map[string]time.Time
	now      func() time.Time
}

// NewSubmissionGate builds a gate with the given limits.
func NewSubmissionGate(maxAttempts int, window, blockFor time.Duration) *SubmissionGate {
	return &SubmissionGate{
		maxAttempts: maxAttempts,
		window:      window,
		blockFor:    blockFor,
		attempts:    make(map[string][]time.Time),
		blocked:     make(map[string]time.Time),
		now:         time.Now,
	}
}

// Allow records an attempt for the username and reports whether it may
// proceed. When blocked, the remaining block duration is returned.
func (g *SubmissionGate) Allow(username string) (bool, time.Duration) {
	key := strings.ToLower(strings.TrimSpace(username))
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if until, ok := g.blocked[key]; ok {
		if now.Before(until) {
			return false, until.Sub(now)
		}
		delete(g.blocked, key)
		delete(g.attempts, key)
	}

	cutoff := now.Add(-g.window)
	recent := g.attempts[key][:0]
	for _, at := range g.attempts[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	recent = append(recent, now)
	g.attempts[key] = recent

	if len(recent) > g.maxAttempts {
		until := now.Add(g.blockFor)
		g.blocked[key] = until
		return false, g.blockFor
	}
	return true, 0
}
