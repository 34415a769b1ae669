package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a shared Redis instance. All backend errors are
// swallowed: reads degrade to a miss, writes and deletes become no-ops, so a
// cache outage never fails a request.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis-backed cache from a redis:// or rediss:// URL.
func NewRedis(redisURL string, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Redis{
		client: redis.NewClient(opts),
		logger: logger,
	}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

func (r *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// Ping verifies connectivity, used by the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
