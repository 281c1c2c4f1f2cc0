// internal/engine/batch/runner.go
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"match-engine/internal/common/logger"
	"match-engine/internal/common/metrics"
	"match-engine/internal/models"
)

// Matcher scores one (user, product) pair.
type Matcher interface {
	Match(ctx context.Context, user models.UserProfile, product models.Product) models.HybridMatchResult
}

// RecordChecker reports whether a pair has already been notified. A nil
// checker disables the idempotence skip.
type RecordChecker interface {
	Exists(ctx context.Context, userID, productID string) (bool, error)
}

type Config struct {
	Workers int
}

// Report collects what one sweep produced. The three counters mirror what an
// operator needs: pairs evaluated, matches found, failures.
type Report struct {
	Results        []models.HybridMatchResult
	PairsEvaluated int
	MatchesFound   int
	Failures       int
	Skipped        int
}

// Runner sweeps every user against every product. One failing pair never
// aborts the batch; the sweep always completes with whatever succeeded.
type Runner struct {
	config  *Config
	matcher Matcher
	records RecordChecker
	logger  logger.Logger
}

func NewRunner(cfg *Config, matcher Matcher, records RecordChecker, log logger.Logger) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		config:  cfg,
		matcher: matcher,
		records: records,
		logger:  log.WithFields(map[string]interface{}{"component": "batch"}),
	}
}

// Run evaluates users x products. Pairs with an existing match record are
// skipped, which keeps re-runs from re-notifying. Users are fanned out across
// a bounded worker pool; pair results are independent so ordering across
// users carries no contract.
func (r *Runner) Run(ctx context.Context, users []models.UserProfile, products []models.Product) Report {
	start := time.Now()

	var mu sync.Mutex
	report := Report{}

	userCh := make(chan models.UserProfile)
	var wg sync.WaitGroup

	workers := r.config.Workers
	if workers > len(users) && len(users) > 0 {
		workers = len(users)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range userCh {
				local := r.sweepUser(ctx, user, products)
				mu.Lock()
				report.Results = append(report.Results, local.Results...)
				report.PairsEvaluated += local.PairsEvaluated
				report.MatchesFound += local.MatchesFound
				report.Failures += local.Failures
				report.Skipped += local.Skipped
				mu.Unlock()
			}
		}()
	}

	for _, user := range users {
		select {
		case userCh <- user:
		case <-ctx.Done():
			// Deadline hit: remaining users are left for the next sweep.
			r.logger.Warn("batch cut off by deadline", map[string]interface{}{
				"error": ctx.Err().Error(),
			})
			goto done
		}
	}
done:
	close(userCh)
	wg.Wait()

	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("batch sweep completed", map[string]interface{}{
		"users":          len(users),
		"products":       len(products),
		"pairsEvaluated": report.PairsEvaluated,
		"matchesFound":   report.MatchesFound,
		"failures":       report.Failures,
		"skipped":        report.Skipped,
		"durationMs":     time.Since(start).Milliseconds(),
	})

	return report
}

func (r *Runner) sweepUser(ctx context.Context, user models.UserProfile, products []models.Product) Report {
	local := Report{}

	for _, product := range products {
		if ctx.Err() != nil {
			return local
		}

		if r.records != nil {
			exists, err := r.records.Exists(ctx, user.ID, product.ID)
			if err != nil {
				// Treat an unreadable record as absent; the store's unique
				// constraint still prevents a duplicate notification.
				r.logger.Warn("record lookup failed", map[string]interface{}{
					"userId":    user.ID,
					"productId": product.ID,
					"error":     err.Error(),
				})
			} else if exists {
				local.Skipped++
				continue
			}
		}

		result, err := r.matchPair(ctx, user, product)
		local.PairsEvaluated++
		metrics.PairsEvaluated.Inc()

		if err != nil {
			local.Failures++
			metrics.PairFailures.Inc()
			r.logger.Error("pair scoring failed", map[string]interface{}{
				"userId":    user.ID,
				"productId": product.ID,
				"error":     err.Error(),
			})
			continue
		}

		if result.ShouldNotify {
			local.MatchesFound++
			metrics.MatchesFound.Inc()
		}
		local.Results = append(local.Results, result)
	}

	return local
}

// matchPair isolates one pair so a panic in scoring is contained and counted
// instead of killing the sweep.
func (r *Runner) matchPair(ctx context.Context, user models.UserProfile, product models.Product) (result models.HybridMatchResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic scoring pair: %v", rec)
		}
	}()

	result = r.matcher.Match(ctx, user, product)
	return result, nil
}
