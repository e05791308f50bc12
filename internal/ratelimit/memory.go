package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxTrackedKeys bounds the in-process limiter's memory. When exceeded, a
// full prune drops every key whose window has fully elapsed.
const maxTrackedKeys = 10000

// MemoryLimiter is a sliding-window-log limiter backed by a process-local
// map. It is the default store and the failover target when Redis is
// unavailable; counts are per process, so in a multi-replica deployment
// the effective limit is limit times replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	timestamps []time.Time
	policy     Policy
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow consumes one request for key under policy. The whole
// read-modify-write runs under one lock, so concurrent callers for the
// same key serialize and the limit cannot be oversubscribed.
func (m *MemoryLimiter) Allow(_ context.Context, policy Policy, key string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	mapKey := policy.Name + ":" + key

	if len(m.windows) > maxTrackedKeys {
		m.pruneLocked(now)
	}

	w, ok := m.windows[mapKey]
	if !ok {
		w = &window{policy: policy}
		m.windows[mapKey] = w
	}

	cutoff := now.Add(-policy.Window)
	live := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}
	w.timestamps = live

	result := &Result{
		Limit: policy.Limit,
	}

	if len(w.timestamps) >= policy.Limit {
		// oldest live entry determines when a slot frees up
		result.Allowed = false
		result.Remaining = 0
		result.ResetAt = w.timestamps[0].Add(policy.Window)
		return result, nil
	}

	w.timestamps = append(w.timestamps, now)
	result.Allowed = true
	result.Remaining = policy.Limit - len(w.timestamps)
	result.ResetAt = w.timestamps[0].Add(policy.Window)
	return result, nil
}

// pruneLocked drops keys whose windows fully elapsed. Caller holds mu.
func (m *MemoryLimiter) pruneLocked(now time.Time) {
	for key, w := range m.windows {
		cutoff := now.Add(-w.policy.Window)
		stale := true
		for _, ts := range w.timestamps {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(m.windows, key)
		}
	}
}

// Len reports the number of tracked keys. Used by tests and the stats
// endpoint.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
