// Package ratelimit enforces per-client request budgets, in process or shared
// through Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Logger interface {
	Error(msg string, args ...interface{})
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the client should wait when Allowed is false.
	RetryAfter time.Duration
}

// RateLimiter admits or rejects requests for a client key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	// Budget returns the number of requests admitted per window.
	Budget() (int, time.Duration)
	Close() error
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Redis selects the shared sliding-window limiter; nil keeps budgets in process.
	Redis *redis.Client
	// KeyPrefix namespaces Redis keys so route budgets do not share counters.
	KeyPrefix string
	Logger    Logger
}

func NewRateLimiter(cfg *RateLimitConfig) RateLimiter {
	if cfg.Redis != nil {
		return NewRedisRateLimiter(cfg.Redis, cfg.Requests, cfg.Window, cfg.KeyPrefix, cfg.Logger)
	}
	return NewInMemoryRateLimiter(cfg.Requests, cfg.Window)
}
