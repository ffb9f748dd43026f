package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete only deletes the key if we still own it.
var compareAndDelete = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisKV implements KV on a Redis server.
type RedisKV struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisKV implements KV interface
var _ KV = (*RedisKV)(nil)

// NewRedisKV connects to the server at redisURL (redis://host:port/db).
func NewRedisKV(redisURL string, logger *slog.Logger) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisKVFromClient(redis.NewClient(opts), logger), nil
}

// NewRedisKVFromClient wraps an existing client.
func NewRedisKVFromClient(client *redis.Client, logger *slog.Logger) *RedisKV {
	return &RedisKV{client: client, logger: logger}
}

// Client exposes the underlying client so pub/sub can share the connection pool.
func (r *RedisKV) Client() *redis.Client {
	return r.client
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis key not found", "key", key)
		return "", ErrNotFound
	}
	if err != nil {
		r.logger.Error("Redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	r.logger.Debug("Redis SET successful", "key", key)
	return nil
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Redis DEL failed", "key", key, "error", err)
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (r *RedisKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (r *RedisKV) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, r.client, []string{key}, value).Int()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-delete failed: %w", err)
	}
	return n > 0, nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
