package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/namelens/domainwatch/internal/config"
)

// RedisState keeps monitor memory in Redis so several watchers can share it.
// Activity, events and logs stay in the SQL store.
type RedisState struct {
	Client *redis.Client
	Prefix string
}

// NewRedisState connects to Redis and verifies the connection.
func NewRedisState(ctx context.Context, cfg config.RedisConfig) (*RedisState, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("redis url is required when store.state is redis")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisState{Client: client, Prefix: cfg.KeyPrefix}, nil
}

// GetMemory returns the stored flag, or nil when the key is absent.
func (r *RedisState) GetMemory(ctx context.Context, monitor, key string) (*bool, error) {
	redisKey, err := r.key(monitor, key)
	if err != nil {
		return nil, err
	}

	raw, err := r.Client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", redisKey, err)
	}

	value := raw == "1"
	return &value, nil
}

// SetMemory stores the flag without expiry.
func (r *RedisState) SetMemory(ctx context.Context, monitor, key string, value bool) error {
	redisKey, err := r.key(monitor, key)
	if err != nil {
		return err
	}

	raw := "0"
	if value {
		raw = "1"
	}
	if err := r.Client.Set(ctx, redisKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", redisKey, err)
	}
	return nil
}

// Health checks if the Redis connection is healthy.
func (r *RedisState) Health(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisState) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

func (r *RedisState) key(monitor, key string) (string, error) {
	if r == nil || r.Client == nil {
		return "", errors.New("redis state is not initialized")
	}
	return redisMemoryKey(r.Prefix, monitor, key)
}

func redisMemoryKey(prefix, monitor, key string) (string, error) {
	monitor, key, err := memoryKey(monitor, key)
	if err != nil {
		return "", err
	}
	return prefix + "memory:" + monitor + ":" + key, nil
}
