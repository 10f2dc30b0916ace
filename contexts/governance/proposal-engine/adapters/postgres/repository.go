package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	"agora/contexts/governance/proposal-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateOrganization(ctx context.Context, organization entities.Organization) (entities.OrganizationEntry, error) {
	row := organizationModelFromEntity(organization)
	if row.OrganizationID == "" {
		return entities.OrganizationEntry{}, domainerrors.ErrInvalidOrganization
	}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.OrganizationEntry{}, domainerrors.ErrConflict
		}
		return entities.OrganizationEntry{}, r.logError("governance_repo_create_organization_failed", err,
			"organization_id", row.OrganizationID,
		)
	}
	return row.toEntry(), nil
}

func (r *Repository) GetOrganization(ctx context.Context, organizationID string) (entities.Organization, error) {
	var row organizationModel
	err := r.conn(ctx).
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Organization{}, domainerrors.ErrOrganizationNotFound
		}
		return entities.Organization{}, r.logError("governance_repo_get_organization_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveOrganization(ctx context.Context, organization entities.Organization) error {
	row := organizationModelFromEntity(organization)
	result := r.conn(ctx).
		Model(&organizationModel{}).
		Where("organization_id = ?", row.OrganizationID).
		Updates(map[string]any{
			"name":                      row.Name,
			"symbol":                    row.Symbol,
			"owner":                     row.Owner,
			"quorum":                    row.Quorum,
			"accept_external_proposals": row.AcceptExternalProposals,
			"proposal_count":            row.ProposalCount,
			"policy_version":            row.PolicyVersion,
			"updated_at":                row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("governance_repo_save_organization_failed", result.Error,
			"organization_id", row.OrganizationID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOrganizationNotFound
	}
	return nil
}

func (r *Repository) ListOrganizations(ctx context.Context) ([]entities.OrganizationEntry, error) {
	var rows []organizationModel
	if err := r.conn(ctx).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_organizations_failed", err)
	}
	items := make([]entities.OrganizationEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntry())
	}
	return items, nil
}

func (r *Repository) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	row := proposalModelFromEntity(proposal)
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}, {Name: "proposal_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"votes_for":     row.VotesFor,
			"votes_against": row.VotesAgainst,
			"executed":      row.Executed,
			"passed":        row.Passed,
			"executed_at":   row.ExecutedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_proposal_failed", create.Error,
			"organization_id", row.OrganizationID,
			"proposal_id", row.ProposalID,
		)
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, organizationID string, proposalID uint64) (entities.Proposal, error) {
	var row proposalModel
	err := r.conn(ctx).
		Where("organization_id = ? AND proposal_id = ?", strings.TrimSpace(organizationID), proposalID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("governance_repo_get_proposal_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
			"proposal_id", proposalID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListProposals(ctx context.Context, organizationID string) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.conn(ctx).
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		Order("proposal_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_proposals_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
		)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetBallot(
	ctx context.Context,
	organizationID string,
	proposalID uint64,
	voter string,
) (entities.Ballot, bool, error) {
	var row ballotModel
	err := r.conn(ctx).
		Where("organization_id = ? AND proposal_id = ? AND voter = ?",
			strings.TrimSpace(organizationID), proposalID, entities.NormalizeIdentity(voter)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, false, nil
		}
		return entities.Ballot{}, false, r.logError("governance_repo_get_ballot_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
			"proposal_id", proposalID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveBallot(ctx context.Context, ballot entities.Ballot) error {
	row := ballotModel{
		OrganizationID: strings.TrimSpace(ballot.OrganizationID),
		ProposalID:     ballot.ProposalID,
		Voter:          entities.NormalizeIdentity(ballot.Voter),
		InFavor:        ballot.InFavor,
		Weight:         entities.ZeroIfNil(ballot.Weight).String(),
		Position:       ballot.Position,
		CastAt:         ballot.CastAt.UTC(),
	}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("governance_repo_save_ballot_failed", err,
			"organization_id", row.OrganizationID,
			"proposal_id", row.ProposalID,
			"voter", row.Voter,
		)
	}
	return nil
}

func (r *Repository) ListBallots(ctx context.Context, organizationID string, proposalID uint64) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.conn(ctx).
		Where("organization_id = ? AND proposal_id = ?", strings.TrimSpace(organizationID), proposalID).
		Order("position ASC").
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_ballots_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
			"proposal_id", proposalID,
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) TreasuryBalance(ctx context.Context, organizationID string) (*big.Int, error) {
	var row treasuryModel
	err := r.conn(ctx).
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(big.Int), nil
		}
		return nil, r.logError("governance_repo_treasury_balance_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
		)
	}
	return parseAmount(row.Balance), nil
}

// CreditTreasury and DebitTreasury read-modify-write the balance; callers hold
// the organization row lock from WithinOrganization.
func (r *Repository) CreditTreasury(ctx context.Context, organizationID string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domainerrors.ErrInvalidAmount
	}
	held, err := r.TreasuryBalance(ctx, organizationID)
	if err != nil {
		return err
	}
	return r.writeTreasury(ctx, organizationID, new(big.Int).Add(held, amount))
}

func (r *Repository) DebitTreasury(ctx context.Context, organizationID string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domainerrors.ErrInvalidAmount
	}
	held, err := r.TreasuryBalance(ctx, organizationID)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return domainerrors.ErrInsufficientTreasuryFunds
	}
	return r.writeTreasury(ctx, organizationID, new(big.Int).Sub(held, amount))
}

func (r *Repository) writeTreasury(ctx context.Context, organizationID string, balance *big.Int) error {
	row := treasuryModel{
		OrganizationID: strings.TrimSpace(organizationID),
		Balance:        balance.String(),
		UpdatedAt:      time.Now().UTC(),
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    row.Balance,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_write_treasury_failed", create.Error,
			"organization_id", row.OrganizationID,
		)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.conn(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("governance_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.conn(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("governance_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		ResourceID:  row.ResourceID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		ResourceID:  strings.TrimSpace(record.ResourceID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}
	var existing idempotencyModel
	if err := r.conn(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("governance_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.ResourceID != row.ResourceID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}
	var existing outboxModel
	if err := r.conn(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("governance_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

// ListPendingOutbox orders by insertion sequence; created_at can tie within
// one unit of work.
func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.conn(ctx).
		Where("status = ?", outboxStatusPending).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.conn(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/proposal-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
