// internal/engine/batch/runner_test.go
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"match-engine/internal/common/logger"
	"match-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubMatcher struct {
	mu      sync.Mutex
	calls   int
	scoreFn func(user models.UserProfile, product models.Product) models.HybridMatchResult
}

func (m *stubMatcher) Match(_ context.Context, user models.UserProfile, product models.Product) models.HybridMatchResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.scoreFn != nil {
		return m.scoreFn(user, product)
	}
	return models.HybridMatchResult{UserID: user.ID, ProductID: product.ID}
}

func (m *stubMatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type stubRecords struct {
	existing map[string]bool
	err      error
}

func (s *stubRecords) Exists(_ context.Context, userID, productID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.existing[userID+"/"+productID], nil
}

func makeUsers(n int) []models.UserProfile {
	users := make([]models.UserProfile, n)
	for i := range users {
		users[i] = models.UserProfile{ID: fmt.Sprintf("user-%d", i)}
	}
	return users
}

func makeProducts(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{ID: fmt.Sprintf("product-%d", i)}
	}
	return products
}

func newTestRunner(t *testing.T, matcher Matcher, records RecordChecker, workers int) *Runner {
	return NewRunner(&Config{Workers: workers}, matcher, records, logger.NewTestLogger(t))
}

// ==========================
// Sweep Tests
// ==========================

func TestRunner_Run_EvaluatesEveryPair(t *testing.T) {
	matcher := &stubMatcher{scoreFn: func(u models.UserProfile, p models.Product) models.HybridMatchResult {
		return models.HybridMatchResult{UserID: u.ID, ProductID: p.ID, HybridScore: 70, ShouldNotify: true}
	}}
	runner := newTestRunner(t, matcher, nil, 4)

	report := runner.Run(context.Background(), makeUsers(3), makeProducts(5))

	assert.Equal(t, 15, report.PairsEvaluated)
	assert.Equal(t, 15, report.MatchesFound)
	assert.Equal(t, 0, report.Failures)
	assert.Len(t, report.Results, 15)
	assert.Equal(t, 15, matcher.callCount())
}

func TestRunner_Run_EmptyInputs(t *testing.T) {
	matcher := &stubMatcher{}
	runner := newTestRunner(t, matcher, nil, 4)

	tests := []struct {
		name     string
		users    []models.UserProfile
		products []models.Product
	}{
		{"no users", nil, makeProducts(3)},
		{"no products", makeUsers(3), nil},
		{"nothing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := runner.Run(context.Background(), tt.users, tt.products)
			assert.Equal(t, 0, report.PairsEvaluated)
			assert.Empty(t, report.Results)
		})
	}
}

func TestRunner_Run_SkipsAlreadyNotifiedPairs(t *testing.T) {
	matcher := &stubMatcher{}
	records := &stubRecords{existing: map[string]bool{
		"user-0/product-0": true,
		"user-1/product-1": true,
	}}
	runner := newTestRunner(t, matcher, records, 1)

	report := runner.Run(context.Background(), makeUsers(2), makeProducts(2))

	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.PairsEvaluated)
	assert.Equal(t, 2, matcher.callCount())
}

func TestRunner_Run_RecordLookupErrorStillEvaluates(t *testing.T) {
	matcher := &stubMatcher{}
	records := &stubRecords{err: errors.New("connection refused")}
	runner := newTestRunner(t, matcher, records, 1)

	report := runner.Run(context.Background(), makeUsers(1), makeProducts(3))

	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 3, report.PairsEvaluated)
}

// ==========================
// Failure Isolation Tests
// ==========================

func TestRunner_Run_PanicInOnePairDoesNotAbortSweep(t *testing.T) {
	matcher := &stubMatcher{scoreFn: func(u models.UserProfile, p models.Product) models.HybridMatchResult {
		if p.ID == "product-1" {
			panic("scoring blew up")
		}
		return models.HybridMatchResult{UserID: u.ID, ProductID: p.ID, HybridScore: 70, ShouldNotify: true}
	}}
	runner := newTestRunner(t, matcher, nil, 2)

	report := runner.Run(context.Background(), makeUsers(2), makeProducts(3))

	assert.Equal(t, 6, report.PairsEvaluated)
	assert.Equal(t, 2, report.Failures)
	assert.Equal(t, 4, report.MatchesFound)
	assert.Len(t, report.Results, 4)
}

func TestRunner_Run_CancelledContextStopsEarly(t *testing.T) {
	matcher := &stubMatcher{}
	runner := newTestRunner(t, matcher, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := runner.Run(ctx, makeUsers(10), makeProducts(10))

	assert.Equal(t, 0, report.PairsEvaluated)
}

// ==========================
// Configuration Tests
// ==========================

func TestNewRunner_DefaultsToOneWorker(t *testing.T) {
	runner := NewRunner(nil, &stubMatcher{}, nil, logger.NewNoOpLogger())
	assert.Equal(t, 1, runner.config.Workers)

	runner = NewRunner(&Config{Workers: -3}, &stubMatcher{}, nil, logger.NewNoOpLogger())
	assert.Equal(t, 1, runner.config.Workers)
}

// ==========================
// Ranking Tests
// ==========================

func TestRankMatches_FiltersAndSortsDescending(t *testing.T) {
	results := []models.HybridMatchResult{
		{ProductID: "p1", HybridScore: 70, ShouldNotify: true},
		{ProductID: "p2", HybridScore: 40, ShouldNotify: false},
		{ProductID: "p3", HybridScore: 90, ShouldNotify: true},
		{ProductID: "p4", HybridScore: 65, ShouldNotify: true},
	}

	ranked := RankMatches(results)

	require.Len(t, ranked, 3)
	assert.Equal(t, "p3", ranked[0].ProductID)
	assert.Equal(t, "p1", ranked[1].ProductID)
	assert.Equal(t, "p4", ranked[2].ProductID)
}

func TestRankMatches_StableOnTies(t *testing.T) {
	results := []models.HybridMatchResult{
		{ProductID: "first", HybridScore: 80, ShouldNotify: true},
		{ProductID: "second", HybridScore: 80, ShouldNotify: true},
		{ProductID: "third", HybridScore: 80, ShouldNotify: true},
	}

	ranked := RankMatches(results)

	require.Len(t, ranked, 3)
	assert.Equal(t, "first", ranked[0].ProductID)
	assert.Equal(t, "second", ranked[1].ProductID)
	assert.Equal(t, "third", ranked[2].ProductID)
}

func TestRankMatches_Empty(t *testing.T) {
	assert.Empty(t, RankMatches(nil))
	assert.Empty(t, RankMatches([]models.HybridMatchResult{{ShouldNotify: false}}))
}
