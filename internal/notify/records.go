// internal/notify/records.go
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"match-engine/internal/common/logger"
	"match-engine/internal/models"
)

// MatchRecordStore persists one row per notified (user, product) pair. The
// primary key on the pair is what makes notification at-most-once: concurrent
// writers race on the insert, not on a check-then-act in process.
type MatchRecordStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewMatchRecordStore(db *sql.DB, log logger.Logger) *MatchRecordStore {
	return &MatchRecordStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "matchrecords"}),
	}
}

// Exists reports whether the pair has already been notified.
func (s *MatchRecordStore) Exists(ctx context.Context, userID, productID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM match_records WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("match record lookup: %w", err)
	}
	return true, nil
}

// Create inserts the record, returning false when the pair already existed.
// ON CONFLICT DO NOTHING lets the database arbitrate races between workers.
func (s *MatchRecordStore) Create(ctx context.Context, record models.MatchRecord) (bool, error) {
	reasons, err := json.Marshal(record.Reasons)
	if err != nil {
		return false, fmt.Errorf("marshal reasons: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO match_records
			(user_id, product_id, hybrid_score, rule_score, ai_score, match_type, reasons, notified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, product_id) DO NOTHING`,
		record.UserID, record.ProductID, record.HybridScore, record.RuleScore,
		record.AIScore, record.MatchType, reasons, record.NotifiedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert match record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert match record result: %w", err)
	}
	return affected > 0, nil
}
