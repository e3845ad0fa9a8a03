package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key the cursor is stored under.
const DefaultRedisKey = "collector:checkpoint"

// RedisStore keeps the cursor in a single Redis key. It is meant for runs whose
// local disk does not survive a restart.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a Redis-backed store. An empty key selects DefaultRedisKey.
func NewRedisStore(redisClient *redis.Client, key string) *RedisStore {
	if redisClient == nil {
		panic("redis client is required")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{redis: redisClient, key: key}
}

// Key returns the Redis key in use.
func (s *RedisStore) Key() string {
	return s.key
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (int, error) {
	val, err := s.redis.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		checkpointBatch.Set(FirstBatch)
		return FirstBatch, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	next, err := parse(val)
	if err != nil {
		return 0, fmt.Errorf("checkpoint key %s: %w", s.key, err)
	}
	checkpointBatch.Set(float64(next))
	return next, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, next int) error {
	if err := validate(next); err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key, next, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	checkpointBatch.Set(float64(next))
	return nil
}

// Clear deletes the key.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}
