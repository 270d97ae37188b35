package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

const purgeBatch = 100

// CacheRepository is the Redis store behind sessions, import jobs, held courses and the list cache.
// Every key is prefixed with the namespace so several portals can share one Redis database.
// A nil client behaves as an always-empty store.
type CacheRepository struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewCacheRepository constructs a CacheRepository.
func NewCacheRepository(client *redis.Client, namespace string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, namespace: namespace, logger: logger}
}

func (r *CacheRepository) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// Get decodes the JSON value at key into dest. A missing key yields ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Set stores value as JSON. A zero ttl keeps the key until it is deleted.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; missing keys are not an error.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix and returns how many were deleted.
// Keys are found with SCAN so a large keyspace never blocks Redis.
func (r *CacheRepository) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", purgeBatch).Iterator()
	batch := make([]string, 0, purgeBatch)
	deleted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis delete %s*: %w", prefix, err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan %s*: %w", prefix, err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	r.logger.Debug("cache prefix purged", zap.String("prefix", prefix), zap.Int("keys", deleted))
	return deleted, nil
}

// Ping reports whether Redis is reachable.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("redis not configured")
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
