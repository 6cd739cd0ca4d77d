package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

func setupTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client), mr
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, mr := setupTestLimiter(t)
	ctx := context.Background()
	key := redis.RateLimitKey("auth", "10.0.0.1")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i)
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := rl.Remaining(ctx, key, 3)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	mr.FastForward(time.Minute + time.Second)
	ok, err = rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_RemainingAndReset(t *testing.T) {
	rl, _ := setupTestLimiter(t)
	ctx := context.Background()
	key := redis.RateLimitKey("auth", "10.0.0.2")

	remaining, err := rl.Remaining(ctx, key, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), remaining)

	_, err = rl.Allow(ctx, key, 5, time.Minute)
	require.NoError(t, err)
	remaining, err = rl.Remaining(ctx, key, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(4), remaining)

	require.NoError(t, rl.Reset(ctx, key))
	remaining, err = rl.Remaining(ctx, key, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), remaining)
}
