package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

// RedisCache реализует domain.Cache через Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ domain.Cache = (*RedisCache)(nil)

// NewRedis создаёт кэш. Все ключи получают префикс prefix.
func NewRedis(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Once выполняет функцию, если ключ ещё не задан. При ошибке fn ключ снимается.
func (c *RedisCache) Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	full := c.prefix + key
	start := time.Now()
	ok, err := c.client.SetNX(ctx, full, "1", ttl).Result()
	metrics.ObserveNetworkRequest("redis", "setnx", start, err)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := fn(); err != nil {
		_ = c.client.Del(ctx, full).Err()
		return err
	}
	return nil
}
