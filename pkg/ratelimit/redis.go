package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const defaultKeyPrefix = "ratelimit:"

// slidingWindow trims members older than the window, then admits the caller if
// fewer than limit remain. It returns {admitted, count, retry_after_ms}.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local wait = window
	if oldest[2] then
		wait = tonumber(oldest[2]) + window - now
	end
	return {0, count, wait}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

// RedisRateLimiter applies a sliding window kept in a Redis sorted set, so the
// budget is shared by every instance behind the same Redis.
type RedisRateLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
	now       func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, keyPrefix string, logger Logger) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisRateLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: keyPrefix,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *RedisRateLimiter) key(client string) string {
	if strings.HasPrefix(client, r.keyPrefix) {
		return client
	}
	return r.keyPrefix + client
}

// Allow returns an error when Redis is unreachable; the caller decides whether
// to admit the request.
func (r *RedisRateLimiter) Allow(ctx context.Context, client string) (Decision, error) {
	key := r.key(client)

	res, err := slidingWindow.Run(ctx, r.client, []string{key},
		r.now().UnixMilli(), r.window.Milliseconds(), r.requests, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Rate limit script failed", "key", key, "error", err)
		}
		return Decision{}, fmt.Errorf("redis rate limiter: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("redis rate limiter: unexpected reply of length %d", len(res))
	}

	if res[0] == 0 {
		return Decision{RetryAfter: time.Duration(res[2]) * time.Millisecond}, nil
	}
	return Decision{Allowed: true, Remaining: max(0, r.requests-int(res[1]))}, nil
}

func (r *RedisRateLimiter) Budget() (int, time.Duration) {
	return r.requests, r.window
}

// Close leaves the client open; it belongs to the cache config.
func (r *RedisRateLimiter) Close() error { return nil }
