package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const anonymousKey = "__anonymous__"

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InMemoryRateLimiter keeps one token bucket per key, refilled evenly across
// the window. Buckets idle for two windows are dropped.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration
	now      func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

func (m *InMemoryRateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if key == "" {
		key = anonymousKey
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bucketFor(key, now)
	m.sweep(now)

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: int(b.limiter.TokensAt(now))}, nil
}

func (m *InMemoryRateLimiter) bucketFor(key string, now time.Time) *bucket {
	b, ok := m.buckets[key]
	if !ok {
		every := rate.Every(m.window / time.Duration(max(1, m.requests)))
		b = &bucket{limiter: rate.NewLimiter(every, m.requests)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (m *InMemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	cutoff := now.Add(-2 * m.window)
	for k, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, k)
		}
	}
}

func (m *InMemoryRateLimiter) Budget() (int, time.Duration) {
	return m.requests, m.window
}

func (m *InMemoryRateLimiter) Close() error { return nil }
