package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"svw.info/meldsolver/internal/config"
	"svw.info/meldsolver/internal/domain"
)

// KeyPrefix namespaces solve results.
const KeyPrefix = "meldsolver:solution:"

// BuildKey is the cache key of a pool.
func BuildKey(pool domain.TileSet) string {
	return KeyPrefix + pool.Key()
}

// Redis caches conclusive solve results. Unknown outcomes are never
// stored since a later call with a larger budget may settle them.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(cfg config.RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return NewRedisWithClient(client, cfg.TTL)
}

func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, logger: slog.Default()}
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns nil, nil on a miss.
func (c *Redis) Get(ctx context.Context, pool domain.TileSet) (*domain.Solution, error) {
	key := BuildKey(pool)
	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Solution
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal solution: %w", err)
	}
	c.logger.Debug("solution cache hit", "key", key, "outcome", s.Outcome)
	return &s, nil
}

func (c *Redis) Put(ctx context.Context, pool domain.TileSet, s domain.Solution) error {
	if s.Outcome == domain.Unknown {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}
	key := BuildKey(pool)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return err
	}
	c.logger.Debug("solution cached", "key", key, "outcome", s.Outcome)
	return nil
}

func (c *Redis) Close() error { return c.client.Close() }
