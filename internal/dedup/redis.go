package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dedup:event:"

// RedisStore backs the dedup set with Redis so the horizon survives
// process restarts. SET NX gives the same atomic check-and-record
// contract as the in-memory store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and fails fast when it is
// unreachable. ttl of zero stores IDs without expiry.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// CheckAndRecord sets the ID key if absent. The SetNX round trip is
// the atomicity boundary; no lock is held in-process.
func (s *RedisStore) CheckAndRecord(ctx context.Context, eventID string) (bool, error) {
	fresh, err := s.client.SetNX(ctx, keyPrefix+eventID, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return fresh, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
