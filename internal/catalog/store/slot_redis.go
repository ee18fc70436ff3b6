package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisSlotKeyPrefix = "sbname:slot:"

// RedisSlot keeps blobs as plain Redis strings without expiry.
type RedisSlot struct {
	client redis.UniversalClient
}

// NewRedisSlot wraps a configured Redis client.
func NewRedisSlot(client redis.UniversalClient) *RedisSlot {
	return &RedisSlot{client: client}
}

// Load performs a GET for key.
func (s *RedisSlot) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisSlotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", key, err)
	}
	return data, nil
}

// Store performs a SET for key with no TTL; the cache has no eviction.
func (s *RedisSlot) Store(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, redisSlotKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("set slot %s: %w", key, err)
	}
	return nil
}

// Health pings Redis.
func (s *RedisSlot) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func redisSlotKey(key string) string {
	return redisSlotKeyPrefix + key
}
