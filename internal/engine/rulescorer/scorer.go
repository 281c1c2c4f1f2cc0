// internal/engine/rulescorer/scorer.go
package rulescorer

import (
	"fmt"
	"strings"

	"match-engine/internal/common/clock"
	"match-engine/internal/models"
)

// Factor weights. They sum to 100; the final score is capped there anyway.
const (
	CategoryPoints = 35
	PricePoints    = 30
	LocationPoints = 20
	RecencyHigh    = 15
	RecencyNormal  = 10

	NotifyThreshold = 65

	highUrgencyWindowDays   = 7
	normalUrgencyWindowDays = 14
)

// FallbackReason is returned when no factor fires so callers can always
// render something.
const FallbackReason = "basic match found"

// Scorer computes a deterministic 0-100 compatibility score. Pure aside from
// the injected clock; never performs I/O.
type Scorer struct {
	clock clock.Clock
}

func NewScorer(clk clock.Clock) *Scorer {
	return &Scorer{clock: clk}
}

// Score evaluates the four weighted factors for one (user, product) pair.
func (s *Scorer) Score(user models.UserProfile, product models.Product) models.RuleMatchResult {
	score := 0
	var reasons []string

	// Category match: exact membership in the user's interests.
	if len(user.Interests) > 0 && user.WantsCategory(product.Category) {
		score += CategoryPoints
		reasons = append(reasons, fmt.Sprintf("matches your interest in %s", product.Category))
	}

	// Price in range, inclusive both ends. Inverted ranges never pass.
	if product.Price >= user.MinPrice && product.Price <= user.MaxPrice {
		score += PricePoints
		reasons = append(reasons, fmt.Sprintf("price %.2f fits your range", product.Price))
	}

	// Location: case-sensitive substring containment against each preference.
	productLocation := product.EffectiveLocation()
	if len(user.PreferredLocations) > 0 && productLocation != "" {
		for _, preferred := range user.PreferredLocations {
			if strings.Contains(productLocation, preferred) {
				score += LocationPoints
				reasons = append(reasons, fmt.Sprintf("located in %s", productLocation))
				break
			}
		}
	}

	// Recency weighted by urgency; only one branch can fire.
	daysSinceCreation := s.clock.Now().Sub(product.CreatedAt).Hours() / 24
	switch {
	case user.Urgency == models.UrgencyHigh && daysSinceCreation < highUrgencyWindowDays:
		score += RecencyHigh
		reasons = append(reasons, "recent opportunity")
	case user.Urgency == models.UrgencyNormal && daysSinceCreation < normalUrgencyWindowDays:
		score += RecencyNormal
		reasons = append(reasons, "added recently")
	}

	if score > 100 {
		score = 100
	}

	if len(reasons) == 0 {
		reasons = []string{FallbackReason}
	}

	return models.RuleMatchResult{
		Score:        score,
		Reasons:      reasons,
		ShouldNotify: score >= NotifyThreshold,
		MatchType:    models.MatchTypeRuleBased,
	}
}
