package ports

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"agora/contexts/governance/proposal-engine/domain/entities"
)

type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, organization entities.Organization) (entities.OrganizationEntry, error)
	GetOrganization(ctx context.Context, organizationID string) (entities.Organization, error)
	SaveOrganization(ctx context.Context, organization entities.Organization) error
	ListOrganizations(ctx context.Context) ([]entities.OrganizationEntry, error)
}

type ProposalRepository interface {
	SaveProposal(ctx context.Context, proposal entities.Proposal) error
	GetProposal(ctx context.Context, organizationID string, proposalID uint64) (entities.Proposal, error)
	ListProposals(ctx context.Context, organizationID string) ([]entities.Proposal, error)
	GetBallot(ctx context.Context, organizationID string, proposalID uint64, voter string) (entities.Ballot, bool, error)
	SaveBallot(ctx context.Context, ballot entities.Ballot) error
	ListBallots(ctx context.Context, organizationID string, proposalID uint64) ([]entities.Ballot, error)
}

// TreasuryRepository tracks funds held directly by each organization.
type TreasuryRepository interface {
	TreasuryBalance(ctx context.Context, organizationID string) (*big.Int, error)
	CreditTreasury(ctx context.Context, organizationID string, amount *big.Int) error
	DebitTreasury(ctx context.Context, organizationID string, amount *big.Int) error
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ResourceID  string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// GovernanceStore is the write model visible inside one unit of work.
type GovernanceStore interface {
	OrganizationRepository
	ProposalRepository
	TreasuryRepository
	IdempotencyStore
	OutboxWriter
}

// UnitOfWork runs fn with every call for the same organization strictly
// serialized and its writes applied together. Nested calls that already hold
// the organization (a reentrant payout callback) run inline.
type UnitOfWork interface {
	WithinOrganization(ctx context.Context, organizationID string, fn func(context.Context, GovernanceStore) error) error
	WithinRegistry(ctx context.Context, fn func(context.Context, GovernanceStore) error) error
}

// ShareLedger is the read side of the voting-weight ledger.
type ShareLedger interface {
	BalanceOf(ctx context.Context, ledgerID string, holder string) (*big.Int, error)
	TotalSupply(ctx context.Context, ledgerID string) (*big.Int, error)
}

// LedgerProvisioner is used only while bootstrapping an organization.
type LedgerProvisioner interface {
	CreateLedger(ctx context.Context, name string, symbol string) (string, error)
	LedgerExists(ctx context.Context, ledgerID string) (bool, error)
	Mint(ctx context.Context, ledgerID string, to string, amount *big.Int) error
	Transfer(ctx context.Context, ledgerID string, from string, to string, amount *big.Int) error
}

// PayoutGateway moves funds out of the treasury to an external recipient.
// It may call back into the engine before returning.
type PayoutGateway interface {
	Send(ctx context.Context, organizationID string, recipient string, amount *big.Int) error
}

// PositionSource reports the host's monotonic ordering axis.
type PositionSource interface {
	CurrentPosition(ctx context.Context) (uint64, error)
}

type MetricsRecorder interface {
	ProposalCreated(kind entities.ProposalKind)
	VoteCast(inFavor bool)
	ProposalExecuted(kind entities.ProposalKind, passed bool)
	TreasuryMovement(direction string, amount *big.Int)
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
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
