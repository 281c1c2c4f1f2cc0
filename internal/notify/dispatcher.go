// internal/notify/dispatcher.go
package notify

import (
	"context"

	"match-engine/internal/common/clock"
	"match-engine/internal/common/logger"
	"match-engine/internal/common/metrics"
	"match-engine/internal/models"

	"github.com/google/uuid"
)

// Outcome summarizes one dispatch attempt.
type Outcome struct {
	RecordCreated bool
	Sent          int
	Failed        int
}

// RecordStore is the persistence the dispatcher needs; satisfied by
// MatchRecordStore.
type RecordStore interface {
	Create(ctx context.Context, record models.MatchRecord) (bool, error)
}

// Dispatcher persists a qualifying match and fans it out to the configured
// channels. The record insert happens first: if the pair was already
// recorded, nothing is sent.
type Dispatcher struct {
	records  RecordStore
	channels []Channel
	clock    clock.Clock
	logger   logger.Logger
}

func NewDispatcher(records RecordStore, channels []Channel, clk clock.Clock, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		records:  records,
		channels: channels,
		clock:    clk,
		logger:   log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, user models.UserProfile, product models.Product, result models.HybridMatchResult) Outcome {
	record := models.MatchRecord{
		UserID:      user.ID,
		ProductID:   product.ID,
		HybridScore: result.HybridScore,
		RuleScore:   result.RuleScore,
		AIScore:     result.AIScore,
		MatchType:   result.MatchType,
		Reasons:     result.Reasons,
		NotifiedAt:  d.clock.Now(),
	}

	created, err := d.records.Create(ctx, record)
	if err != nil {
		d.logger.Error("match record insert failed", map[string]interface{}{
			"userId":    user.ID,
			"productId": product.ID,
			"error":     err.Error(),
		})
		return Outcome{Failed: 1}
	}
	if !created {
		// Another run (or worker) already notified this pair.
		d.logger.Debug("pair already notified", map[string]interface{}{
			"userId":    user.ID,
			"productId": product.ID,
		})
		return Outcome{}
	}

	notification := Notification{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Email:       user.Email,
		ProductID:   product.ID,
		ProductName: product.DisplayName(),
		Result:      result,
		SentAt:      d.clock.Now(),
	}

	outcome := Outcome{RecordCreated: true}
	for _, channel := range d.channels {
		if err := channel.Send(ctx, notification); err != nil {
			outcome.Failed++
			metrics.NotificationsFailed.WithLabelValues(channel.Name()).Inc()
			d.logger.Error("channel send failed", map[string]interface{}{
				"channel":   channel.Name(),
				"userId":    user.ID,
				"productId": product.ID,
				"error":     err.Error(),
			})
			continue
		}
		outcome.Sent++
		metrics.NotificationsSent.WithLabelValues(channel.Name()).Inc()
	}

	return outcome
}
