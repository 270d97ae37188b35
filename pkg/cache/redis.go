package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/pkg/config"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// NewRedis returns a connected Redis client. The first ping is retried with a linear backoff
// so the portal can start alongside Redis.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		logger.Warn("redis not reachable", zap.String("addr", addr), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("connect redis %s: %w", addr, err)
}
