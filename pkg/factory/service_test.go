package factory

import (
	"context"
	"testing"
	"time"

	"github.com/kennelworks/kennel-api/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
)

type pingOnlyCache struct{}

func (pingOnlyCache) Ping(context.Context) error { return nil }

func TestDefaultRateLimiterFactory_FallsBackToInMemory(t *testing.T) {
	f := NewDefaultRateLimiterFactory(100, time.Minute, pingOnlyCache{}, nil)

	assert.False(t, f.IsDistributed())
	assert.IsType(t, &ratelimit.InMemoryRateLimiter{}, f.CreateRateLimiter())
}

func TestDefaultRateLimiterFactory_RouteBudgetOverridesDefault(t *testing.T) {
	f := NewDefaultRateLimiterFactory(100, time.Minute, nil, nil)

	limiter := f.CreateRouteRateLimiter("login", 5, 30*time.Second)
	requests, window := limiter.Budget()

	assert.Equal(t, 5, requests)
	assert.Equal(t, 30*time.Second, window)

	defaultRequests, defaultWindow := f.CreateRateLimiter().Budget()
	assert.Equal(t, 100, defaultRequests)
	assert.Equal(t, time.Minute, defaultWindow)
}
