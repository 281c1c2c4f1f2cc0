// internal/engine/analysiscache/cache.go
package analysiscache

import (
	"context"
	"sync"
	"time"

	"match-engine/internal/common/clock"
	"match-engine/internal/models"
)

// FreshnessWindow is how long a cached analysis is served before being
// treated as absent.
const FreshnessWindow = 7 * 24 * time.Hour

// Cache stores the most recent AI analysis per product. Implementations must
// degrade to a miss on read failure and skip the write on write failure;
// callers never see an error from this layer.
type Cache interface {
	Get(ctx context.Context, productID string) (models.AIAnalysis, bool)
	Put(ctx context.Context, productID string, analysis models.AIAnalysis)
}

// entry is the stored shape, shared by the redis and memory implementations.
type entry struct {
	Score    int       `json:"score"`
	Analysis string    `json:"analysis"`
	Reasons  []string  `json:"reasons"`
	CachedAt time.Time `json:"cachedAt"`
}

func (e entry) toAnalysis() models.AIAnalysis {
	return models.AIAnalysis{
		Score:        e.Score,
		Reasons:      e.Reasons,
		Analysis:     e.Analysis,
		ShouldNotify: e.Score >= 65,
	}
}

// MemoryCache keeps entries in-process. Used by tests and by deployments
// without redis.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   clock.Clock
	window  time.Duration
}

func NewMemoryCache(clk clock.Clock) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		clock:   clk,
		window:  FreshnessWindow,
	}
}

func (c *MemoryCache) Get(_ context.Context, productID string) (models.AIAnalysis, bool) {
	c.mu.RLock()
	e, ok := c.entries[productID]
	c.mu.RUnlock()

	if !ok || c.clock.Now().Sub(e.CachedAt) >= c.window {
		return models.AIAnalysis{}, false
	}
	return e.toAnalysis(), true
}

func (c *MemoryCache) Put(_ context.Context, productID string, analysis models.AIAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[productID] = entry{
		Score:    analysis.Score,
		Analysis: analysis.Analysis,
		Reasons:  analysis.Reasons,
		CachedAt: c.clock.Now(),
	}
}
