// internal/trigger/handler_test.go
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"match-engine/internal/common/clock"
	"match-engine/internal/common/config"
	"match-engine/internal/common/logger"
	"match-engine/internal/engine/batch"
	"match-engine/internal/models"
	"match-engine/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubProfiles struct {
	users []models.UserProfile
	err   error
}

func (s *stubProfiles) EligibleUsers(_ context.Context) ([]models.UserProfile, error) {
	return s.users, s.err
}

type stubCatalog struct {
	products []models.Product
	err      error
	since    time.Time
	limit    int
}

func (s *stubCatalog) RecentActiveProducts(_ context.Context, since time.Time, limit int) ([]models.Product, error) {
	s.since = since
	s.limit = limit
	return s.products, s.err
}

type stubMatcher struct {
	score int
}

func (m *stubMatcher) Match(_ context.Context, user models.UserProfile, product models.Product) models.HybridMatchResult {
	return models.HybridMatchResult{
		UserID:       user.ID,
		ProductID:    product.ID,
		HybridScore:  m.score,
		Reasons:      []string{"basic match found"},
		ShouldNotify: m.score >= 65,
		MatchType:    models.MatchTypeRuleBased,
	}
}

type spyDispatcher struct {
	dispatched []models.HybridMatchResult
	outcome    notify.Outcome
}

func (s *spyDispatcher) Dispatch(_ context.Context, _ models.UserProfile, _ models.Product, result models.HybridMatchResult) notify.Outcome {
	s.dispatched = append(s.dispatched, result)
	return s.outcome
}

func testConfig() *config.Config {
	return &config.Config{
		Batch: config.BatchConfig{
			Workers:     2,
			MaxProducts: 50,
			Timeout:     60000,
		},
		Trigger: config.TriggerConfig{
			AuthToken: "secret-token",
		},
	}
}

func newTestHandler(t *testing.T, cfg *config.Config, profiles ProfileProvider, catalog CatalogProvider,
	matcher batch.Matcher, dispatcher MatchDispatcher) *Handler {
	log := logger.NewTestLogger(t)
	runner := batch.NewRunner(&batch.Config{Workers: cfg.Batch.Workers}, matcher, nil, log)
	return NewHandler(cfg, profiles, catalog, runner, dispatcher, clock.NewFixed(testNow), nil, log)
}

// ==========================
// RunBatch Tests
// ==========================

func TestHandler_RunBatch_Success(t *testing.T) {
	profiles := &stubProfiles{users: []models.UserProfile{{ID: "user-1"}, {ID: "user-2"}}}
	catalog := &stubCatalog{products: []models.Product{{ID: "product-1"}, {ID: "product-2"}, {ID: "product-3"}}}
	dispatcher := &spyDispatcher{outcome: notify.Outcome{RecordCreated: true, Sent: 1}}
	handler := newTestHandler(t, testConfig(), profiles, catalog, &stubMatcher{score: 70}, dispatcher)

	summary := handler.RunBatch(context.Background())

	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Equal(t, 3, summary.ProductsAnalyzed)
	assert.Equal(t, 6, summary.PairsEvaluated)
	assert.Equal(t, 6, summary.MatchesFound)
	assert.Equal(t, 6, summary.NotificationsSent)
	assert.Equal(t, 0, summary.NotificationsFailed)
	assert.Empty(t, summary.Error)
	assert.Equal(t, testNow.Format(time.RFC3339), summary.Timestamp)
	assert.Len(t, dispatcher.dispatched, 6)
}

func TestHandler_RunBatch_BelowThresholdDispatchesNothing(t *testing.T) {
	profiles := &stubProfiles{users: []models.UserProfile{{ID: "user-1"}}}
	catalog := &stubCatalog{products: []models.Product{{ID: "product-1"}}}
	dispatcher := &spyDispatcher{}
	handler := newTestHandler(t, testConfig(), profiles, catalog, &stubMatcher{score: 40}, dispatcher)

	summary := handler.RunBatch(context.Background())

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.PairsEvaluated)
	assert.Equal(t, 0, summary.MatchesFound)
	assert.Empty(t, dispatcher.dispatched)
}

func TestHandler_RunBatch_CatalogWindowAndLimit(t *testing.T) {
	profiles := &stubProfiles{}
	catalog := &stubCatalog{}
	handler := newTestHandler(t, testConfig(), profiles, catalog, &stubMatcher{}, &spyDispatcher{})

	handler.RunBatch(context.Background())

	assert.Equal(t, testNow.Add(-productWindow), catalog.since)
	assert.Equal(t, 50, catalog.limit)
}

func TestHandler_RunBatch_LoadFailures(t *testing.T) {
	tests := []struct {
		name     string
		profiles *stubProfiles
		catalog  *stubCatalog
	}{
		{
			name:     "users load fails",
			profiles: &stubProfiles{err: errors.New("connection refused")},
			catalog:  &stubCatalog{},
		},
		{
			name:     "products load fails",
			profiles: &stubProfiles{users: []models.UserProfile{{ID: "user-1"}}},
			catalog:  &stubCatalog{err: errors.New("connection refused")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &spyDispatcher{}
			handler := newTestHandler(t, testConfig(), tt.profiles, tt.catalog, &stubMatcher{score: 90}, dispatcher)

			summary := handler.RunBatch(context.Background())

			assert.False(t, summary.Success)
			assert.Contains(t, summary.Error, "connection refused")
			assert.Equal(t, 0, summary.PairsEvaluated)
			assert.Empty(t, dispatcher.dispatched)
		})
	}
}

// ==========================
// HTTP Endpoint Tests
// ==========================

func TestHandler_ServeHTTP_Authorized(t *testing.T) {
	profiles := &stubProfiles{users: []models.UserProfile{{ID: "user-1"}}}
	catalog := &stubCatalog{products: []models.Product{{ID: "product-1"}}}
	handler := newTestHandler(t, testConfig(), profiles, catalog, &stubMatcher{score: 70},
		&spyDispatcher{outcome: notify.Outcome{Sent: 1}})

	req := httptest.NewRequest(http.MethodPost, "/internal/match/run", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var summary models.BatchSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.MatchesFound)
}

func TestHandler_ServeHTTP_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong token", "Bearer wrong-token"},
		{"not bearer scheme", "Basic secret-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &spyDispatcher{}
			handler := newTestHandler(t, testConfig(), &stubProfiles{}, &stubCatalog{}, &stubMatcher{}, dispatcher)

			req := httptest.NewRequest(http.MethodPost, "/internal/match/run", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, dispatcher.dispatched)
		})
	}
}

func TestHandler_ServeHTTP_EmptyConfiguredTokenRejectsEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Trigger.AuthToken = ""
	handler := newTestHandler(t, cfg, &stubProfiles{}, &stubCatalog{}, &stubMatcher{}, &spyDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/internal/match/run", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ServeHTTP_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, testConfig(), &stubProfiles{}, &stubCatalog{}, &stubMatcher{}, &spyDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/internal/match/run", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_ServeHTTP_LoadFailureIs500(t *testing.T) {
	profiles := &stubProfiles{err: errors.New("connection refused")}
	handler := newTestHandler(t, testConfig(), profiles, &stubCatalog{}, &stubMatcher{}, &spyDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/internal/match/run", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var summary models.BatchSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.False(t, summary.Success)
}
