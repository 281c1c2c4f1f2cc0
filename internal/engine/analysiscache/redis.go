// internal/engine/analysiscache/redis.go
package analysiscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"match-engine/internal/common/clock"
	"match-engine/internal/common/logger"
	"match-engine/internal/common/metrics"
	"match-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "match:analysis:"

// RedisCache stores one JSON entry per product id with last-write-wins
// overwrite semantics. Redis failures degrade to miss / skip-cache.
type RedisCache struct {
	client *redis.Client
	clock  clock.Clock
	window time.Duration
	logger logger.Logger
}

func NewRedisCache(client *redis.Client, clk clock.Clock, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		clock:  clk,
		window: FreshnessWindow,
		logger: log.WithFields(map[string]interface{}{"component": "analysiscache"}),
	}
}

// WithWindow overrides the freshness window; used when config shortens the
// default seven days.
func (c *RedisCache) WithWindow(window time.Duration) *RedisCache {
	c.window = window
	return c
}

func (c *RedisCache) Get(ctx context.Context, productID string) (models.AIAnalysis, bool) {
	val, err := c.client.Get(ctx, keyPrefix+productID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", map[string]interface{}{
				"productId": productID,
				"error":     err.Error(),
			})
		}
		metrics.CacheMisses.Inc()
		return models.AIAnalysis{}, false
	}

	var e entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		c.logger.Warn("cache entry corrupt", map[string]interface{}{
			"productId": productID,
			"error":     err.Error(),
		})
		metrics.CacheMisses.Inc()
		return models.AIAnalysis{}, false
	}

	// Stale entries behave as misses so callers recompute.
	if c.clock.Now().Sub(e.CachedAt) >= c.window {
		metrics.CacheMisses.Inc()
		return models.AIAnalysis{}, false
	}

	metrics.CacheHits.Inc()
	return e.toAnalysis(), true
}

func (c *RedisCache) Put(ctx context.Context, productID string, analysis models.AIAnalysis) {
	e := entry{
		Score:    analysis.Score,
		Analysis: analysis.Analysis,
		Reasons:  analysis.Reasons,
		CachedAt: c.clock.Now(),
	}

	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("cache entry marshal failed", map[string]interface{}{
			"productId": productID,
			"error":     err.Error(),
		})
		return
	}

	// The redis TTL is a safety net; freshness is judged against CachedAt.
	if err := c.client.Set(ctx, keyPrefix+productID, data, c.window).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"productId": productID,
			"error":     err.Error(),
		})
	}
}
