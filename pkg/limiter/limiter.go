// Package limiter provides Redis-backed fixed-window rate limiting shared by
// every instance of the service.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

// incrExpire increments the counter and sets its TTL on the first hit of a window.
var incrExpire = goredis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter counts hits per key in Redis.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow records a hit on key and reports whether it is within limit for the
// current window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	current, err := incrExpire.Run(ctx, rl.client.Universal(), []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return current <= limit, nil
}

// Remaining returns the hits left in the current window.
func (rl *RateLimiter) Remaining(ctx context.Context, key string, limit int64) (int64, error) {
	raw, err := rl.client.Get(ctx, key)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}
	current, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid counter value: %w", err)
	}
	if current >= limit {
		return 0, nil
	}
	return limit - current, nil
}

// Reset clears the counter for key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if err := rl.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to reset counter: %w", err)
	}
	return nil
}
