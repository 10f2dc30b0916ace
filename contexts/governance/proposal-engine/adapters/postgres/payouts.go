package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"agora/contexts/governance/proposal-engine/domain/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRecipientBlocked = errors.New("payout recipient is blocked")

// PayoutGateway records outgoing transfers in the same transaction as the
// treasury debit. Recipients listed in governance_blocked_recipients refuse
// the transfer.
type PayoutGateway struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewPayoutGateway(db *gorm.DB, logger *slog.Logger) *PayoutGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayoutGateway{db: db, logger: logger}
}

// Send runs in its own savepoint so a failed payout leaves the caller's
// transaction usable for the compensating treasury credit.
func (g *PayoutGateway) Send(ctx context.Context, organizationID string, recipient string, amount *big.Int) error {
	recipient = entities.NormalizeIdentity(recipient)
	return conn(ctx, g.db).Transaction(func(tx *gorm.DB) error {
		var blocked int64
		if err := tx.Model(&blockedRecipientModel{}).
			Where("recipient = ?", recipient).
			Count(&blocked).Error; err != nil {
			return g.logError("governance_payout_block_check_failed", err, "recipient", recipient)
		}
		if blocked > 0 {
			return ErrRecipientBlocked
		}
		row := payoutModel{
			PayoutID:       uuid.NewString(),
			OrganizationID: strings.TrimSpace(organizationID),
			Recipient:      recipient,
			Amount:         entities.ZeroIfNil(amount).String(),
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return g.logError("governance_payout_insert_failed", err,
				"organization_id", row.OrganizationID,
				"recipient", recipient,
			)
		}
		return nil
	})
}

// BlockRecipient makes future payouts to recipient fail.
func (g *PayoutGateway) BlockRecipient(ctx context.Context, recipient string, reason string) error {
	row := blockedRecipientModel{
		Recipient: entities.NormalizeIdentity(recipient),
		Reason:    strings.TrimSpace(reason),
		CreatedAt: time.Now().UTC(),
	}
	if err := conn(ctx, g.db).Save(&row).Error; err != nil {
		return g.logError("governance_payout_block_failed", err, "recipient", row.Recipient)
	}
	return nil
}

func (g *PayoutGateway) logError(event string, err error, attrs ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance/proposal-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	g.logger.Error("governance payout failed", fields...)
	return err
}
