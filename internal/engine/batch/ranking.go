// internal/engine/batch/ranking.go
package batch

import (
	"sort"

	"match-engine/internal/models"
)

// RankMatches filters to notify-worthy results and orders them by hybrid
// score, highest first. The sort is stable so ties keep their original
// iteration order.
func RankMatches(results []models.HybridMatchResult) []models.RankedMatch {
	ranked := make([]models.RankedMatch, 0, len(results))
	for _, r := range results {
		if !r.ShouldNotify {
			continue
		}
		ranked = append(ranked, models.RankedMatch{
			ProductID: r.ProductID,
			Result:    r,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.HybridScore > ranked[j].Result.HybridScore
	})

	return ranked
}
