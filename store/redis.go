package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mbsync:imposter:"

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps snapshots as JSON values in Redis.
type RedisStore struct {
	client RedisClient
}

// NewRedisStore connects to the Redis server at addr.
func NewRedisStore(addr string, db int) *RedisStore {
	log.Printf("Initializing Redis snapshot store at %s (db %d)", addr, db)
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(port int) string {
	return fmt.Sprintf("%s%d", keyPrefix, port)
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for port %d: %w", snap.Descriptor.Port, err)
	}
	if err := s.client.Set(ctx, redisKey(snap.Descriptor.Port), data, 0).Err(); err != nil {
		log.Printf("ERROR: Failed to save snapshot for port %d: %v", snap.Descriptor.Port, err)
		return fmt.Errorf("failed to save snapshot for port %d: %w", snap.Descriptor.Port, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, port int) (Snapshot, error) {
	data, err := s.client.Get(ctx, redisKey(port)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, notFound(port)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load snapshot for port %d: %w", port, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot for port %d: %w", port, err)
	}
	return snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, port int) error {
	if err := s.client.Del(ctx, redisKey(port)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot for port %d: %w", port, err)
	}
	return nil
}
