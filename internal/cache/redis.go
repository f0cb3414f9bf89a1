package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/jury-engine/internal/models"
)

// RedisCache implements Cache on a Redis server
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, address, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Generation returns the current listing generation, 0 before the first invalidation
func (c *RedisCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, generationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

// GetRounds returns a listing cached in generation gen
func (c *RedisCache) GetRounds(ctx context.Context, gen uint64, key string) ([]models.Round, bool, error) {
	key = versioned(gen, key)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var rounds []models.Round
	if err := json.Unmarshal(data, &rounds); err != nil {
		// A stale shape is treated as a miss and overwritten on the next set
		slog.Warn("dropping undecodable cache entry", "key", key, "error", err)
		return nil, false, nil
	}

	return rounds, true, nil
}

// SetRounds stores a listing in generation gen for the configured TTL
func (c *RedisCache) SetRounds(ctx context.Context, gen uint64, key string, rounds []models.Round) error {
	key = versioned(gen, key)
	data, err := json.Marshal(rounds)
	if err != nil {
		return fmt.Errorf("failed to marshal rounds: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

// InvalidateRounds starts a new generation, then removes the listings cached so far
func (c *RedisCache) InvalidateRounds(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to advance cache generation: %w", err)
	}

	pattern := keyPrefix + "*"
	var cursor uint64
	var keysDeleted int

	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
			keysDeleted += len(keys)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	slog.Debug("round cache invalidated", "keys_deleted", keysDeleted)
	return nil
}

// HealthCheck verifies Redis connectivity
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
