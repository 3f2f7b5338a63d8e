package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/repositories"
)

const redisOpTimeout = 2 * time.Second

// RedisStore is a KeyValueStore backed by Redis, for deployments where the
// companion shares state with other local tooling. The KeyValueStore
// contract is synchronous and failure-silent, so every operation runs
// under a short timeout and errors are logged rather than surfaced.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis at addr and verifies the connection.
// Keys are namespaced under prefix to keep the store's flat key space
// from colliding with other users of the instance.
func NewRedisStore(ctx context.Context, addr, prefix string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}, nil
}

var _ repositories.KeyValueStore = (*RedisStore)(nil)

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Error("Failed to get value from redis",
				zap.String("key", key),
				zap.Error(err))
		}
		return "", false
	}
	return value, true
}

func (s *RedisStore) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		s.logger.Error("Failed to set value in redis",
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *RedisStore) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		s.logger.Error("Failed to delete value from redis",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}
