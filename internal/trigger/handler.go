// internal/trigger/handler.go
package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"match-engine/internal/common/clock"
	"match-engine/internal/common/config"
	"match-engine/internal/common/errors"
	"match-engine/internal/common/logger"
	"match-engine/internal/common/observability"
	"match-engine/internal/engine/batch"
	"match-engine/internal/models"
	"match-engine/internal/notify"
)

const productWindow = 24 * time.Hour

// MatchDispatcher sends notifications for one qualifying match.
type MatchDispatcher interface {
	Dispatch(ctx context.Context, user models.UserProfile, product models.Product, result models.HybridMatchResult) notify.Outcome
}

// Handler is the scheduler-facing batch entry point. Each invocation is an
// independent stateless sweep.
type Handler struct {
	config     *config.Config
	profiles   ProfileProvider
	catalog    CatalogProvider
	runner     *batch.Runner
	dispatcher MatchDispatcher
	clock      clock.Clock
	obs        *observability.Observability
	logger     logger.Logger
}

func NewHandler(cfg *config.Config, profiles ProfileProvider, catalog CatalogProvider,
	runner *batch.Runner, dispatcher MatchDispatcher, clk clock.Clock,
	obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:     cfg,
		profiles:   profiles,
		catalog:    catalog,
		runner:     runner,
		dispatcher: dispatcher,
		clock:      clk,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"component": "trigger"}),
	}
}

// RunBatch loads inputs, sweeps, then dispatches ranked qualifying results.
// Failing to load either list is fatal for the invocation; everything after
// that is partial-failure tolerant.
func (h *Handler) RunBatch(ctx context.Context) models.BatchSummary {
	start := h.clock.Now()

	deadline := time.Duration(h.config.Batch.Timeout) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	users, err := h.profiles.EligibleUsers(ctx)
	if err != nil {
		return h.failSummary(ctx, start, errors.NewBatchLoadFailed("load users: "+err.Error()))
	}

	products, err := h.catalog.RecentActiveProducts(ctx, start.Add(-productWindow), h.config.Batch.MaxProducts)
	if err != nil {
		return h.failSummary(ctx, start, errors.NewBatchLoadFailed("load products: "+err.Error()))
	}

	report := h.runner.Run(ctx, users, products)

	userByID := make(map[string]models.UserProfile, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	productByID := make(map[string]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	sent, failed := 0, 0
	for _, ranked := range batch.RankMatches(report.Results) {
		user := userByID[ranked.Result.UserID]
		product := productByID[ranked.ProductID]

		outcome := h.dispatcher.Dispatch(ctx, user, product, ranked.Result)
		sent += outcome.Sent
		failed += outcome.Failed
	}

	duration := h.clock.Now().Sub(start)
	if h.obs != nil {
		h.obs.RecordBatch(ctx, duration, "ok")
	}

	summary := models.BatchSummary{
		Success:             true,
		UsersProcessed:      len(users),
		ProductsAnalyzed:    len(products),
		PairsEvaluated:      report.PairsEvaluated,
		MatchesFound:        report.MatchesFound,
		NotificationsSent:   sent,
		NotificationsFailed: failed,
		DurationMs:          duration.Milliseconds(),
		Timestamp:           h.clock.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Info("batch run finished", map[string]interface{}{
		"usersProcessed":      summary.UsersProcessed,
		"productsAnalyzed":    summary.ProductsAnalyzed,
		"pairsEvaluated":      summary.PairsEvaluated,
		"matchesFound":        summary.MatchesFound,
		"notificationsSent":   summary.NotificationsSent,
		"notificationsFailed": summary.NotificationsFailed,
		"durationMs":          summary.DurationMs,
	})

	return summary
}

func (h *Handler) failSummary(ctx context.Context, start time.Time, stdErr *errors.StandardError) models.BatchSummary {
	if h.obs != nil {
		h.obs.RecordBatch(ctx, h.clock.Now().Sub(start), "failed")
	}
	h.logger.Error("batch run failed", map[string]interface{}{
		"errorCode": stdErr.Code,
		"error":     stdErr.Details,
	})
	return models.BatchSummary{
		Success:   false,
		Error:     stdErr.Details,
		Timestamp: h.clock.Now().UTC().Format(time.RFC3339),
	}
}

// ServeHTTP implements the trigger endpoint. The scheduler authenticates with
// the configured bearer credential.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "unauthorized",
		})
		return
	}

	summary := h.RunBatch(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !summary.Success {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(summary)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.config.Trigger.AuthToken == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	return token != auth && token == h.config.Trigger.AuthToken
}
