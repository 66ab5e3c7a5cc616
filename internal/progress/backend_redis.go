package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "learn:progress:"

// RedisBackend stores blobs as plain Redis strings without expiry.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a Redis-backed progress backend.
func NewRedisBackend(client *redis.Client) (*RedisBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	blob, err := b.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get progress: %w", err)
	}
	return blob, true, nil
}

func (b *RedisBackend) Put(ctx context.Context, key string, blob []byte) error {
	if err := b.client.Set(ctx, redisKeyPrefix+key, blob, 0).Err(); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}
