package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"agora/contexts/governance/share-ledger/domain/entities"
	domainerrors "agora/contexts/governance/share-ledger/domain/errors"
	"agora/contexts/governance/share-ledger/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerModel struct {
	LedgerID    string    `gorm:"column:ledger_id;primaryKey"`
	Name        string    `gorm:"column:name"`
	Symbol      string    `gorm:"column:symbol"`
	TotalSupply string    `gorm:"column:total_supply;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (ledgerModel) TableName() string { return "share_ledgers" }

type holdingModel struct {
	LedgerID  string    `gorm:"column:ledger_id;primaryKey"`
	Holder    string    `gorm:"column:holder;primaryKey"`
	Balance   string    `gorm:"column:balance;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (holdingModel) TableName() string { return "share_holdings" }

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	Seq         uint64     `gorm:"column:seq;autoIncrement;uniqueIndex"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status;index"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "share_outbox" }

func Models() []any {
	return []any{&ledgerModel{}, &holdingModel{}, &outboxModel{}}
}

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) CreateLedger(ctx context.Context, ledger entities.Ledger) error {
	row := ledgerModel{
		LedgerID:    strings.TrimSpace(ledger.LedgerID),
		Name:        ledger.Name,
		Symbol:      ledger.Symbol,
		TotalSupply: entities.Amount(ledger.TotalSupply).String(),
		CreatedAt:   ledger.CreatedAt.UTC(),
	}
	if row.LedgerID == "" {
		return domainerrors.ErrInvalidLedger
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("share_ledger_repo_create_failed", err, "ledger_id", row.LedgerID)
	}
	return nil
}

func (r *Repository) GetLedger(ctx context.Context, ledgerID string) (entities.Ledger, error) {
	var row ledgerModel
	err := r.db.WithContext(ctx).
		Where("ledger_id = ?", strings.TrimSpace(ledgerID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ledger{}, domainerrors.ErrLedgerNotFound
		}
		return entities.Ledger{}, r.logError("share_ledger_repo_get_failed", err, "ledger_id", strings.TrimSpace(ledgerID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListLedgers(ctx context.Context) ([]entities.Ledger, error) {
	var rows []ledgerModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("ledger_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("share_ledger_repo_list_failed", err)
	}
	items := make([]entities.Ledger, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) BalanceOf(ctx context.Context, ledgerID string, holder string) (*big.Int, error) {
	var row holdingModel
	err := r.db.WithContext(ctx).
		Where("ledger_id = ? AND holder = ?", strings.TrimSpace(ledgerID), entities.NormalizeHolder(holder)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(big.Int), nil
		}
		return nil, r.logError("share_ledger_repo_balance_failed", err, "ledger_id", strings.TrimSpace(ledgerID))
	}
	return parseAmount(row.Balance), nil
}

func (r *Repository) ListHoldings(ctx context.Context, ledgerID string) ([]entities.Holding, error) {
	var rows []holdingModel
	if err := r.db.WithContext(ctx).
		Where("ledger_id = ?", strings.TrimSpace(ledgerID)).
		Order("holder ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("share_ledger_repo_list_holdings_failed", err, "ledger_id", strings.TrimSpace(ledgerID))
	}
	items := make([]entities.Holding, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Holding{
			LedgerID: row.LedgerID,
			Holder:   row.Holder,
			Balance:  parseAmount(row.Balance),
		})
	}
	return items, nil
}

// ApplyMovement locks the ledger row so concurrent movements on one ledger
// apply in commit order.
func (r *Repository) ApplyMovement(ctx context.Context, movement entities.Movement, event ports.EventEnvelope) error {
	if movement.Amount == nil || movement.Amount.Sign() < 0 {
		return domainerrors.ErrInvalidAmount
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ledgerID := strings.TrimSpace(movement.LedgerID)
	now := movement.At.UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ledger ledgerModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("ledger_id = ?", ledgerID).
			First(&ledger).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrLedgerNotFound
			}
			return r.logError("share_ledger_repo_lock_failed", err, "ledger_id", ledgerID)
		}

		if movement.IsMint() {
			supply := new(big.Int).Add(parseAmount(ledger.TotalSupply), movement.Amount)
			if err := tx.Model(&ledgerModel{}).
				Where("ledger_id = ?", ledgerID).
				Update("total_supply", supply.String()).Error; err != nil {
				return r.logError("share_ledger_repo_supply_update_failed", err, "ledger_id", ledgerID)
			}
		} else {
			held, err := holdingIn(tx, ledgerID, movement.From)
			if err != nil {
				return r.logError("share_ledger_repo_holding_load_failed", err, "ledger_id", ledgerID)
			}
			if held.Cmp(movement.Amount) < 0 {
				return domainerrors.ErrInsufficientBalance
			}
			if err := writeHolding(tx, ledgerID, movement.From, held.Sub(held, movement.Amount), now); err != nil {
				return r.logError("share_ledger_repo_holding_write_failed", err, "ledger_id", ledgerID)
			}
		}
		received, err := holdingIn(tx, ledgerID, movement.To)
		if err != nil {
			return r.logError("share_ledger_repo_holding_load_failed", err, "ledger_id", ledgerID)
		}
		if err := writeHolding(tx, ledgerID, movement.To, received.Add(received, movement.Amount), now); err != nil {
			return r.logError("share_ledger_repo_holding_write_failed", err, "ledger_id", ledgerID)
		}

		row := outboxModel{
			OutboxID:  strings.TrimSpace(event.EventID),
			EventType: event.EventType,
			Payload:   payload,
			Status:    "pending",
			CreatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("share_ledger_repo_outbox_insert_failed", err, "outbox_id", row.OutboxID)
		}
		return nil
	})
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("share_ledger_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{"status": "published", "published_at": publishedAt.UTC()})
	if result.Error != nil {
		return r.logError("share_ledger_repo_mark_outbox_failed", result.Error, "outbox_id", strings.TrimSpace(outboxID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func holdingIn(tx *gorm.DB, ledgerID string, holder string) (*big.Int, error) {
	var row holdingModel
	err := tx.Where("ledger_id = ? AND holder = ?", ledgerID, entities.NormalizeHolder(holder)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(row.Balance), nil
}

func writeHolding(tx *gorm.DB, ledgerID string, holder string, balance *big.Int, at time.Time) error {
	row := holdingModel{
		LedgerID:  ledgerID,
		Holder:    entities.NormalizeHolder(holder),
		Balance:   balance.String(),
		UpdatedAt: at,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ledger_id"}, {Name: "holder"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(&row).Error
}

func (m ledgerModel) toEntity() entities.Ledger {
	return entities.Ledger{
		LedgerID:    m.LedgerID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		TotalSupply: parseAmount(m.TotalSupply),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

func parseAmount(raw string) *big.Int {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return new(big.Int)
	}
	return value
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance/share-ledger",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("share ledger repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
