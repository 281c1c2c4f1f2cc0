// internal/engine/hybrid/matcher.go
package hybrid

import (
	"context"
	"math"

	"match-engine/internal/common/logger"
	"match-engine/internal/engine/analysiscache"
	"match-engine/internal/models"
)

const (
	// DefaultGateScore is the rule score a pair needs before the slower AI
	// scorer is consulted at all.
	DefaultGateScore = 50

	// DefaultNotifyScore is the hybrid score a pair needs to notify.
	DefaultNotifyScore = 65

	ruleWeight = 0.6
	aiWeight   = 0.4
)

// RuleScorer is the deterministic first-pass scorer.
type RuleScorer interface {
	Score(user models.UserProfile, product models.Product) models.RuleMatchResult
}

// AIScorer returns a qualitative analysis; ok is false when no real signal
// was obtained (unconfigured, failed, or invalid response).
type AIScorer interface {
	Score(ctx context.Context, user models.UserProfile, product models.Product) (models.AIAnalysis, bool)
}

type Config struct {
	GateScore   int
	NotifyScore int
}

// Matcher blends the deterministic and AI scores for one (user, product)
// pair. Match never returns an error: AI and cache failures degrade to
// rule-only scoring.
type Matcher struct {
	config *Config
	rules  RuleScorer
	ai     AIScorer
	cache  analysiscache.Cache
	logger logger.Logger
}

func NewMatcher(cfg *Config, rules RuleScorer, ai AIScorer, cache analysiscache.Cache, log logger.Logger) *Matcher {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.GateScore == 0 {
		cfg.GateScore = DefaultGateScore
	}
	if cfg.NotifyScore == 0 {
		cfg.NotifyScore = DefaultNotifyScore
	}
	return &Matcher{
		config: cfg,
		rules:  rules,
		ai:     ai,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "hybrid"}),
	}
}

func (m *Matcher) Match(ctx context.Context, user models.UserProfile, product models.Product) models.HybridMatchResult {
	ruleResult := m.rules.Score(user, product)

	aiScore := 0
	var aiReasons []string
	matchType := models.MatchTypeRuleBased

	// Cheap signal below the gate means the expensive call is skipped.
	if ruleResult.Score >= m.config.GateScore && m.ai != nil {
		if analysis, ok := m.obtainAnalysis(ctx, user, product); ok {
			aiScore = analysis.Score
			aiReasons = analysis.Reasons
			matchType = models.MatchTypeHybrid
		}
	}

	hybridScore := int(math.Round(float64(ruleResult.Score)*ruleWeight + float64(aiScore)*aiWeight))

	return models.HybridMatchResult{
		UserID:       user.ID,
		ProductID:    product.ID,
		RuleScore:    ruleResult.Score,
		AIScore:      aiScore,
		HybridScore:  hybridScore,
		Reasons:      dedupeReasons(ruleResult.Reasons, aiReasons),
		ShouldNotify: hybridScore >= m.config.NotifyScore,
		MatchType:    matchType,
	}
}

// obtainAnalysis serves from cache when fresh, otherwise calls the AI scorer
// and caches a successful result.
func (m *Matcher) obtainAnalysis(ctx context.Context, user models.UserProfile, product models.Product) (models.AIAnalysis, bool) {
	if m.cache != nil {
		if analysis, ok := m.cache.Get(ctx, product.ID); ok {
			return analysis, true
		}
	}

	analysis, ok := m.ai.Score(ctx, user, product)
	if !ok {
		return models.AIAnalysis{}, false
	}

	if m.cache != nil {
		m.cache.Put(ctx, product.ID, analysis)
	}
	return analysis, true
}

// dedupeReasons concatenates rule reasons then AI reasons, dropping exact
// duplicates while preserving first-seen order.
func dedupeReasons(ruleReasons, aiReasons []string) []string {
	seen := make(map[string]bool, len(ruleReasons)+len(aiReasons))
	out := make([]string, 0, len(ruleReasons)+len(aiReasons))
	for _, r := range ruleReasons {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, r := range aiReasons {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
