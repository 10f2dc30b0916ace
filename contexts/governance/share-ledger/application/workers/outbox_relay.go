package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "agora/contexts/governance/share-ledger/application"
	"agora/contexts/governance/share-ledger/ports"
)

type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes pending share events oldest first, stopping at the first
// failure so a ledger's movements are never delivered out of order.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		return err
	}
	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			return fmt.Errorf("decode share outbox row %s: %w", row.OutboxID, err)
		}
		if err := r.Publisher.Publish(ctx, row.EventType, event); err != nil {
			logger.Error("share outbox publish failed",
				"event", "share_ledger_outbox_publish_failed",
				"module", "governance/share-ledger",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, r.now()); err != nil {
			return err
		}
		published++
	}
	if published > 0 {
		logger.Info("share outbox relay cycle completed",
			"event", "share_ledger_outbox_relay_completed",
			"module", "governance/share-ledger",
			"layer", "worker",
			"published_count", published,
		)
	}
	return nil
}

func (r OutboxRelay) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
