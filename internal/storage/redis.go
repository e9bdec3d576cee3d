package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "smarta:pending"

// RedisStore keeps pending slots in Redis so they survive restarts and are
// shared between replicas. Every write refreshes the slot's TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore over client
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func slotKey(clientID, slot string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, clientID, slot)
}

// Put stores value in clientID's slot
func (s *RedisStore) Put(ctx context.Context, clientID, slot, value string) error {
	if err := s.client.Set(ctx, slotKey(clientID, slot), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", slot, err)
	}
	return nil
}

// Get returns the slot value, "" when unset or expired
func (s *RedisStore) Get(ctx context.Context, clientID, slot string) (string, error) {
	value, err := s.client.Get(ctx, slotKey(clientID, slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", slot, err)
	}
	return value, nil
}

// Remove clears the given slots
func (s *RedisStore) Remove(ctx context.Context, clientID string, slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = slotKey(clientID, slot)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
