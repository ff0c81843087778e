package factory

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kennelworks/kennel-api/pkg/ratelimit"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RateLimiterFactory interface {
	// CreateRateLimiter builds a limiter with the factory's default budget.
	CreateRateLimiter() ratelimit.RateLimiter
	// CreateRouteRateLimiter builds a limiter with a route-specific budget and its own key space.
	CreateRouteRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter
}

// DefaultRateLimiterFactory hands out Redis-backed limiters when the cache
// exposes a Redis client, in-memory limiters otherwise.
type DefaultRateLimiterFactory struct {
	config *ratelimit.RateLimitConfig
}

func NewDefaultRateLimiterFactory(requests int, window time.Duration, cache Cache, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	var redisClient *redis.Client
	if cache != nil {
		if provider, ok := cache.(RedisClientProvider); ok {
			redisClient = provider.GetClient()
		}
	}

	return &DefaultRateLimiterFactory{
		config: &ratelimit.RateLimitConfig{
			Requests: requests,
			Window:   window,
			Redis:    redisClient,
			Logger:   logger,
		},
	}
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter() ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(f.config)
}

func (f *DefaultRateLimiterFactory) CreateRouteRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter {
	cfg := *f.config
	cfg.Requests = requests
	cfg.Window = window
	cfg.KeyPrefix = "ratelimit:" + name + ":"
	return ratelimit.NewRateLimiter(&cfg)
}

// IsDistributed reports whether limiters share state across instances through Redis.
func (f *DefaultRateLimiterFactory) IsDistributed() bool {
	return f.config.Redis != nil
}
