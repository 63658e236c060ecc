// internal/report/genclient/cache.go
package genclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"report-workers/internal/common/logger"
)

const cachePrefix = "report:generation:"

// ResponseCache stores accepted texts by prompt hash. Errors are treated as misses.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, text string)
}

// CacheKey hashes the model and the rendered prompt.
func CacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: logger.OrNoOp(log)}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, cachePrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Debug("Response cache read failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key, text string) {
	if err := c.client.Set(ctx, cachePrefix+key, text, c.ttl).Err(); err != nil {
		c.log.Debug("Response cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
