// Package redis provides Redis client utilities.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zhy3800/MovieWebsite/pkg/config"
)

// ErrKeyNotFound is returned when a key doesn't exist.
var ErrKeyNotFound = errors.New("key not found")

// Client wraps a go-redis UniversalClient.
type Client struct {
	universal redis.UniversalClient
}

// NewClient creates a Redis client from config and pings it.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{universal: rdb}, nil
}

// NewFromUniversal wraps an existing client (tests use miniredis this way).
func NewFromUniversal(rdb redis.UniversalClient) *Client {
	return &Client{universal: rdb}
}

// Universal returns the underlying UniversalClient.
func (c *Client) Universal() redis.UniversalClient {
	return c.universal
}

// Get retrieves a value from Redis.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.universal.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return val, nil
}

// Set stores a value with an optional expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.universal.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete deletes one or more keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if err := c.universal.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Publish sends a message to a channel.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	if err := c.universal.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe subscribes to channels. The caller closes the returned PubSub.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.universal.Subscribe(ctx, channels...)
}

// PSubscribe subscribes to channel patterns. The caller closes the returned PubSub.
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	return c.universal.PSubscribe(ctx, patterns...)
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.universal.Ping(ctx).Err()
}

// Close closes the client.
func (c *Client) Close() error {
	return c.universal.Close()
}
