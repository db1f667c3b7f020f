// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"assettrack-notifier/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client. Its only job in this service is the
// per-job run lock that serializes overlapping scan invocations.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{Client: rdb}, nil
}

// NewRedisFromClient wraps an existing client (tests use redismock here).
func NewRedisFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{Client: client}
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// AcquireLock takes the named run lock with SETNX. Returns false when
// another invocation already holds it. The TTL bounds a crashed holder.
func (c *RedisClient) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := c.Client.SetNX(ctx, lockKey(name), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// ReleaseLock frees the named run lock.
func (c *RedisClient) ReleaseLock(ctx context.Context, name string) error {
	return c.Client.Del(ctx, lockKey(name)).Err()
}

func lockKey(name string) string {
	return "jobs:lock:" + name
}
