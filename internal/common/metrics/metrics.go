// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PairsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_pairs_evaluated_total",
			Help: "Total number of (user, product) pairs scored",
		},
	)

	MatchesFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_found_total",
			Help: "Total number of pairs that cleared the notify threshold",
		},
	)

	PairFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_pair_failures_total",
			Help: "Total number of pairs that failed to score",
		},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_ai_requests_total",
			Help: "Total AI scoring requests by outcome",
		},
		[]string{"outcome"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_analysis_cache_hits_total",
			Help: "Total fresh analysis cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_analysis_cache_misses_total",
			Help: "Total analysis cache misses, including stale entries",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_notifications_sent_total",
			Help: "Total notifications delivered by channel",
		},
		[]string{"channel"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_notifications_failed_total",
			Help: "Total notification delivery failures by channel",
		},
		[]string{"channel"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "match_batch_duration_seconds",
			Help: "Duration of a full batch sweep in seconds",
		},
	)
)
