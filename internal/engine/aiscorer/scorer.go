// internal/engine/aiscorer/scorer.go
package aiscorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"match-engine/internal/common/logger"
	"match-engine/internal/common/metrics"
	"match-engine/internal/common/observability"
	"match-engine/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const NotifyThreshold = 65

// responseSchema is the contract the model must honor: a single JSON object,
// all four fields present.
const responseSchema = `{
	"type": "object",
	"required": ["score", "reasons", "analysis", "shouldNotify"],
	"properties": {
		"score": {"type": "number"},
		"reasons": {"type": "array", "items": {"type": "string"}},
		"analysis": {"type": "string"},
		"shouldNotify": {"type": "boolean"}
	}
}`

type Config struct {
	MaxRetries int
}

// Scorer asks the external text-generation service for a qualitative
// compatibility judgment. Score never returns an error: every failure mode
// degrades to a zero-score analysis so the caller's control flow stays linear.
type Scorer struct {
	config *Config
	client TextGenerationClient
	schema *gojsonschema.Schema
	obs    *observability.Observability
	logger logger.Logger
}

// NewScorer builds a Scorer. client may be nil, in which case every call
// reports the unconfigured fallback without touching the network.
func NewScorer(cfg *Config, client TextGenerationClient, log logger.Logger) *Scorer {
	schemaLoader := gojsonschema.NewStringLoader(responseSchema)
	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		// The schema is a compile-time constant; this only trips in development.
		panic(fmt.Sprintf("aiscorer: invalid response schema: %v", err))
	}

	return &Scorer{
		config: cfg,
		client: client,
		schema: schema,
		logger: log.WithFields(map[string]interface{}{"component": "aiscorer"}),
	}
}

// WithObservability attaches the otel recorder for request timings.
func (s *Scorer) WithObservability(obs *observability.Observability) *Scorer {
	s.obs = obs
	return s
}

// Score returns the analysis and whether a real signal was obtained. ok is
// false for every fallback path, so callers can tell "model said zero" apart
// from "no model".
func (s *Scorer) Score(ctx context.Context, user models.UserProfile, product models.Product) (models.AIAnalysis, bool) {
	if s.client == nil {
		metrics.AIRequests.WithLabelValues("unconfigured").Inc()
		return fallbackAnalysis("provider not configured"), false
	}

	prompt := buildPrompt(user, product)

	start := time.Now()
	body, err := s.generateWithRetry(ctx, prompt)
	if err != nil {
		metrics.AIRequests.WithLabelValues("request_failed").Inc()
		s.recordRequest(ctx, time.Since(start), "request_failed")
		s.logger.Warn("ai request failed", map[string]interface{}{
			"productId": product.ID,
			"userId":    user.ID,
			"error":     err.Error(),
		})
		return fallbackAnalysis(fmt.Sprintf("ai request failed: %v", err)), false
	}

	analysis, err := s.parseResponse(body)
	if err != nil {
		metrics.AIRequests.WithLabelValues("invalid_response").Inc()
		s.recordRequest(ctx, time.Since(start), "invalid_response")
		s.logger.Warn("ai response invalid", map[string]interface{}{
			"productId": product.ID,
			"userId":    user.ID,
			"error":     err.Error(),
		})
		return fallbackAnalysis(fmt.Sprintf("ai response invalid: %v", err)), false
	}

	metrics.AIRequests.WithLabelValues("success").Inc()
	s.recordRequest(ctx, time.Since(start), "success")
	return analysis, true
}

func (s *Scorer) recordRequest(ctx context.Context, duration time.Duration, outcome string) {
	if s.obs != nil {
		s.obs.RecordAIRequest(ctx, duration, outcome)
	}
}

func (s *Scorer) generateWithRetry(ctx context.Context, prompt string) ([]byte, error) {
	var body []byte
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, lastErr = s.client.Generate(ctx, prompt)
		if lastErr == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// parseResponse validates the body against the schema, then clamps the score
// and recomputes the notify flag locally rather than trusting the model's.
func (s *Scorer) parseResponse(body []byte) (models.AIAnalysis, error) {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return models.AIAnalysis{}, fmt.Errorf("not a JSON object: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return models.AIAnalysis{}, fmt.Errorf("schema violation: %s", strings.Join(details, "; "))
	}

	var parsed struct {
		Score        float64  `json:"score"`
		Reasons      []string `json:"reasons"`
		Analysis     string   `json:"analysis"`
		ShouldNotify bool     `json:"shouldNotify"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.AIAnalysis{}, fmt.Errorf("decode: %w", err)
	}

	score := int(parsed.Score)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return models.AIAnalysis{
		Score:        score,
		Reasons:      parsed.Reasons,
		Analysis:     parsed.Analysis,
		ShouldNotify: score >= NotifyThreshold,
	}, nil
}

func buildPrompt(user models.UserProfile, product models.Product) string {
	var parts []string

	parts = append(parts, "You are a product matching assistant. Judge how well this product fits this user's preferences.")

	parts = append(parts, "\nUser preferences:")
	parts = append(parts, fmt.Sprintf("- Interests: %s", strings.Join(user.Interests, ", ")))
	parts = append(parts, fmt.Sprintf("- Price range: %.2f to %.2f", user.MinPrice, user.MaxPrice))
	parts = append(parts, fmt.Sprintf("- Preferred locations: %s", strings.Join(user.PreferredLocations, ", ")))
	parts = append(parts, fmt.Sprintf("- Urgency: %s", user.Urgency))

	parts = append(parts, "\nProduct:")
	parts = append(parts, fmt.Sprintf("- Name: %s", product.DisplayName()))
	parts = append(parts, fmt.Sprintf("- Category: %s", product.Category))
	parts = append(parts, fmt.Sprintf("- Price: %.2f", product.Price))
	parts = append(parts, fmt.Sprintf("- Location: %s", product.EffectiveLocation()))
	if product.Description != "" {
		parts = append(parts, fmt.Sprintf("- Description: %s", product.Description))
	}

	parts = append(parts, "\nRespond with a single JSON object and nothing else:")
	parts = append(parts, `{"score": <0-100>, "reasons": [<short strings>], "analysis": "<short summary>", "shouldNotify": <boolean>}`)

	return strings.Join(parts, "\n")
}

func fallbackAnalysis(reason string) models.AIAnalysis {
	return models.AIAnalysis{
		Score:        0,
		Reasons:      []string{},
		Analysis:     reason,
		ShouldNotify: false,
	}
}
