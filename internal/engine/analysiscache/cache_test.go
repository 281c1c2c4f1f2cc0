// internal/engine/analysiscache/cache_test.go
package analysiscache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"match-engine/internal/common/clock"
	"match-engine/internal/common/logger"
	"match-engine/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testAnalysis() models.AIAnalysis {
	return models.AIAnalysis{
		Score:    80,
		Reasons:  []string{"strong category fit"},
		Analysis: "good match",
	}
}

func newMiniredisCache(t *testing.T, clk clock.Clock) (*RedisCache, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, clk, logger.NewNoOpLogger()), srv
}

// ==========================
// Memory Cache Tests
// ==========================

func TestMemoryCache_PutThenGet(t *testing.T) {
	clk := clock.NewFixed(testNow)
	cache := NewMemoryCache(clk)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "product-1")
	assert.False(t, ok)

	cache.Put(ctx, "product-1", testAnalysis())

	got, ok := cache.Get(ctx, "product-1")
	require.True(t, ok)
	assert.Equal(t, 80, got.Score)
	assert.Equal(t, []string{"strong category fit"}, got.Reasons)
	assert.True(t, got.ShouldNotify)
}

func TestMemoryCache_Freshness(t *testing.T) {
	clk := clock.NewFixed(testNow)
	cache := NewMemoryCache(clk)
	ctx := context.Background()

	cache.Put(ctx, "product-1", testAnalysis())

	// Still fresh just inside the window.
	clk.Advance(7*24*time.Hour - time.Hour)
	_, ok := cache.Get(ctx, "product-1")
	assert.True(t, ok)

	// Stale at the boundary and beyond.
	clk.Advance(time.Hour)
	_, ok = cache.Get(ctx, "product-1")
	assert.False(t, ok)
}

func TestMemoryCache_OverwriteResetsFreshness(t *testing.T) {
	clk := clock.NewFixed(testNow)
	cache := NewMemoryCache(clk)
	ctx := context.Background()

	cache.Put(ctx, "product-1", testAnalysis())
	clk.Advance(6 * 24 * time.Hour)

	fresher := testAnalysis()
	fresher.Score = 40
	cache.Put(ctx, "product-1", fresher)

	clk.Advance(2 * 24 * time.Hour)
	got, ok := cache.Get(ctx, "product-1")
	require.True(t, ok)
	assert.Equal(t, 40, got.Score)
	assert.False(t, got.ShouldNotify)
}

// ==========================
// Redis Cache Tests
// ==========================

func TestRedisCache_PutThenGet(t *testing.T) {
	clk := clock.NewFixed(testNow)
	cache, _ := newMiniredisCache(t, clk)
	ctx := context.Background()

	cache.Put(ctx, "product-1", testAnalysis())

	got, ok := cache.Get(ctx, "product-1")
	require.True(t, ok)
	assert.Equal(t, 80, got.Score)
	assert.Equal(t, "good match", got.Analysis)
	assert.True(t, got.ShouldNotify)
}

func TestRedisCache_MissOnUnknownProduct(t *testing.T) {
	cache, _ := newMiniredisCache(t, clock.NewFixed(testNow))

	_, ok := cache.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestRedisCache_StaleEntryIsMiss(t *testing.T) {
	clk := clock.NewFixed(testNow)
	cache, _ := newMiniredisCache(t, clk)
	ctx := context.Background()

	cache.Put(ctx, "product-1", testAnalysis())

	clk.Advance(7*24*time.Hour + time.Minute)
	_, ok := cache.Get(ctx, "product-1")
	assert.False(t, ok)
}

func TestRedisCache_WithWindow(t *testing.T) {
	clk := clock.NewFixed(testNow)
	cache, _ := newMiniredisCache(t, clk)
	cache = cache.WithWindow(24 * time.Hour)
	ctx := context.Background()

	cache.Put(ctx, "product-1", testAnalysis())

	clk.Advance(25 * time.Hour)
	_, ok := cache.Get(ctx, "product-1")
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	clk := clock.NewFixed(testNow)
	cache, srv := newMiniredisCache(t, clk)

	srv.Set(keyPrefix+"product-1", "not json at all")

	_, ok := cache.Get(context.Background(), "product-1")
	assert.False(t, ok)
}

func TestRedisCache_ReadErrorDegradesToMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, clock.NewFixed(testNow), logger.NewNoOpLogger())

	mock.ExpectGet(keyPrefix + "product-1").SetErr(redis.ErrClosed)

	_, ok := cache.Get(context.Background(), "product-1")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_WriteErrorIsSilent(t *testing.T) {
	clk := clock.NewFixed(testNow)
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, clk, logger.NewNoOpLogger())

	data, err := json.Marshal(entry{
		Score:    80,
		Analysis: "good match",
		Reasons:  []string{"strong category fit"},
		CachedAt: clk.Now(),
	})
	require.NoError(t, err)
	mock.ExpectSet(keyPrefix+"product-1", data, FreshnessWindow).SetErr(redis.ErrClosed)

	// Must not panic or propagate.
	cache.Put(context.Background(), "product-1", testAnalysis())
	assert.NoError(t, mock.ExpectationsWereMet())
}
