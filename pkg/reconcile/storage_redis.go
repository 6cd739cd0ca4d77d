package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

// changeMessage is published on the namespace change channel.
type changeMessage struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Removed bool   `json:"removed,omitempty"`
}

// RedisStorage shares session storage across processes. Values live under
// ms:client:{namespace}:{key}; writes are announced on
// ms:client:{namespace}:changes.
type RedisStorage struct {
	client    *redis.Client
	namespace string
	id        string
}

// NewRedisStorage creates a handle for namespace (typically one per user device).
func NewRedisStorage(client *redis.Client, namespace string) *RedisStorage {
	return &RedisStorage{client: client, namespace: namespace, id: uuid.New().String()}
}

// Get returns the value for key.
func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, redis.ClientStorageKey(s.namespace, key))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

// Set stores value under key and announces the change.
func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redis.ClientStorageKey(s.namespace, key), value, 0); err != nil {
		return err
	}
	return s.announce(ctx, Change{Key: key})
}

// Remove deletes key and announces the change.
func (s *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := s.client.Delete(ctx, redis.ClientStorageKey(s.namespace, key)); err != nil {
		return err
	}
	return s.announce(ctx, Change{Key: key, Removed: true})
}

func (s *RedisStorage) announce(ctx context.Context, c Change) error {
	payload, err := json.Marshal(changeMessage{Origin: s.id, Key: c.Key, Removed: c.Removed})
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, redis.ClientStorageChannel(s.namespace), payload); err != nil {
		return fmt.Errorf("announce change: %w", err)
	}
	return nil
}

// Watch subscribes to changes announced by other handles.
func (s *RedisStorage) Watch(ctx context.Context) (<-chan Change, error) {
	ps := s.client.Subscribe(ctx, redis.ClientStorageChannel(s.namespace))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Change, watchBuffer)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg changeMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil || msg.Origin == s.id {
					continue
				}
				select {
				case out <- Change{Key: msg.Key, Removed: msg.Removed}:
				default:
				}
			}
		}
	}()
	return out, nil
}
