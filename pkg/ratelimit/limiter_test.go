package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedLimiter(requests int, window time.Duration) (*InMemoryRateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := NewInMemoryRateLimiter(requests, window)
	l.now = clock.now
	return l, clock
}

func allow(t *testing.T, l RateLimiter, key string) Decision {
	t.Helper()
	d, err := l.Allow(context.Background(), key)
	require.NoError(t, err)
	return d
}

func TestInMemory_BudgetIsPerKey(t *testing.T) {
	l, _ := newClockedLimiter(1, time.Second)

	assert.True(t, allow(t, l, "client-a").Allowed)
	assert.False(t, allow(t, l, "client-a").Allowed)
	assert.True(t, allow(t, l, "client-b").Allowed)
}

func TestInMemory_BurstThenRetryAfter(t *testing.T) {
	l, _ := newClockedLimiter(5, time.Minute)

	for i := 4; i >= 0; i-- {
		d := allow(t, l, "signup")
		require.True(t, d.Allowed)
		assert.Equal(t, i, d.Remaining)
	}

	d := allow(t, l, "signup")
	assert.False(t, d.Allowed)
	assert.Equal(t, 12*time.Second, d.RetryAfter)
}

func TestInMemory_RejectionDoesNotConsumeBudget(t *testing.T) {
	l, clock := newClockedLimiter(2, 2*time.Second)

	allow(t, l, "k")
	allow(t, l, "k")
	for i := 0; i < 5; i++ {
		require.False(t, allow(t, l, "k").Allowed)
	}

	clock.advance(time.Second)
	assert.True(t, allow(t, l, "k").Allowed)
}

func TestInMemory_SweepsIdleKeys(t *testing.T) {
	l, clock := newClockedLimiter(1, time.Second)

	allow(t, l, "old")
	clock.advance(3 * time.Second)
	allow(t, l, "new")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "old")
	assert.Contains(t, l.buckets, "new")
}

func TestInMemory_EmptyKeySharesAnonymousBucket(t *testing.T) {
	l, _ := newClockedLimiter(1, time.Minute)

	assert.True(t, allow(t, l, "").Allowed)
	assert.False(t, allow(t, l, "").Allowed)
}

func TestRedis_KeyPrefix(t *testing.T) {
	l := NewRedisRateLimiter(nil, 5, time.Minute, "", nil)
	assert.Equal(t, "ratelimit:10.0.0.1", l.key("10.0.0.1"))

	login := NewRedisRateLimiter(nil, 5, time.Minute, "ratelimit:login:", nil)
	assert.Equal(t, "ratelimit:login:10.0.0.1", login.key("10.0.0.1"))
	assert.Equal(t, "ratelimit:login:10.0.0.1", login.key("ratelimit:login:10.0.0.1"))
}

func TestNewRateLimiter_InMemoryWithoutRedis(t *testing.T) {
	l := NewRateLimiter(&RateLimitConfig{Requests: 3, Window: time.Second})

	assert.IsType(t, &InMemoryRateLimiter{}, l)
	requests, window := l.Budget()
	assert.Equal(t, 3, requests)
	assert.Equal(t, time.Second, window)
	assert.NoError(t, l.Close())
}
