// internal/models/match.go
package models

import "time"

const (
	MatchTypeRuleBased = "rule_based"
	MatchTypeHybrid    = "hybrid"
)

// RuleMatchResult is the deterministic scorer's output. Reasons is always
// non-empty.
type RuleMatchResult struct {
	Score        int      `json:"score"`
	Reasons      []string `json:"reasons"`
	ShouldNotify bool     `json:"shouldNotify"`
	MatchType    string   `json:"matchType"`
}

// AIAnalysis is the AI scorer's output, possibly reconstructed from cache.
// ShouldNotify is recomputed locally from the score; downstream decisions use
// HybridMatchResult.ShouldNotify, never this flag.
type AIAnalysis struct {
	Score        int      `json:"score"`
	Reasons      []string `json:"reasons"`
	Analysis     string   `json:"analysis"`
	ShouldNotify bool     `json:"shouldNotify"`
}

// HybridMatchResult is the final per-pair output.
type HybridMatchResult struct {
	UserID       string   `json:"userId"`
	ProductID    string   `json:"productId"`
	RuleScore    int      `json:"ruleScore"`
	AIScore      int      `json:"aiScore"`
	HybridScore  int      `json:"hybridScore"`
	Reasons      []string `json:"reasons"`
	ShouldNotify bool     `json:"shouldNotify"`
	MatchType    string   `json:"matchType"`
}

// RankedMatch pairs a product id with its full result, in rank order.
type RankedMatch struct {
	ProductID string            `json:"productId"`
	Result    HybridMatchResult `json:"result"`
}

// MatchRecord is the persisted row whose existence per (userId, productId)
// pair carries the at-most-once notification guarantee.
type MatchRecord struct {
	UserID      string    `json:"userId"`
	ProductID   string    `json:"productId"`
	HybridScore int       `json:"hybridScore"`
	RuleScore   int       `json:"ruleScore"`
	AIScore     int       `json:"aiScore"`
	MatchType   string    `json:"matchType"`
	Reasons     []string  `json:"reasons"`
	NotifiedAt  time.Time `json:"notifiedAt"`
}

// BatchSummary is the trigger endpoint's response body.
type BatchSummary struct {
	Success             bool   `json:"success"`
	UsersProcessed      int    `json:"usersProcessed"`
	ProductsAnalyzed    int    `json:"productsAnalyzed"`
	PairsEvaluated      int    `json:"pairsEvaluated"`
	MatchesFound        int    `json:"matchesFound"`
	NotificationsSent   int    `json:"notificationsSent"`
	NotificationsFailed int    `json:"notificationsFailed"`
	DurationMs          int64  `json:"durationMs"`
	Error               string `json:"error,omitempty"`
	Timestamp           string `json:"timestamp"`
}
