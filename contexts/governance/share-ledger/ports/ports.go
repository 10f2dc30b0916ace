package ports

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"agora/contexts/governance/share-ledger/domain/entities"
)

// Repository applies each movement and its event atomically.
type Repository interface {
	CreateLedger(ctx context.Context, ledger entities.Ledger) error
	GetLedger(ctx context.Context, ledgerID string) (entities.Ledger, error)
	ListLedgers(ctx context.Context) ([]entities.Ledger, error)
	BalanceOf(ctx context.Context, ledgerID string, holder string) (*big.Int, error)
	ListHoldings(ctx context.Context, ledgerID string) ([]entities.Holding, error)
	ApplyMovement(ctx context.Context, movement entities.Movement, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
