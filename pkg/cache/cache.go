package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"housecall/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin JSON read-through cache over redis. A nil *Cache is valid
// and disables caching, so callers never need to branch on configuration.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func New(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get unmarshals the cached value for key into target. Returns false on a
// miss, a disabled cache, or any redis error (errors are logged, not returned:
// the cache must never break a read path).
func (c *Cache) Get(ctx context.Context, key string, target any) bool {
	if c == nil {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Cache read failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, target); err != nil {
		c.log.Warn("Cache entry is not valid JSON, dropping", "key", key, "error", err)
		c.Delete(ctx, key)
		return false
	}

	return true
}

func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Cache marshal failed", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("Cache invalidation failed", "keys", keys, "error", err)
	}
}
