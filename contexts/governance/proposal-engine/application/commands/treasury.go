package commands

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "agora/contexts/governance/proposal-engine/application"
	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	"agora/contexts/governance/proposal-engine/ports"
)

type DepositFundsCommand struct {
	OrganizationID string
	From           string
	Amount         *big.Int
}

// TreasuryUseCase accepts inflows into an organization's treasury. Outflows
// only happen through executed withdrawal proposals.
type TreasuryUseCase struct {
	UnitOfWork ports.UnitOfWork
	Metrics    ports.MetricsRecorder
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// DepositFunds credits the treasury and returns the new held balance.
func (uc TreasuryUseCase) DepositFunds(ctx context.Context, cmd DepositFundsCommand) (*big.Int, error) {
	logger := application.ResolveLogger(uc.Logger)
	organizationID := strings.TrimSpace(cmd.OrganizationID)
	from := entities.NormalizeIdentity(cmd.From)
	if organizationID == "" {
		return nil, domainerrors.ErrOrganizationNotFound
	}
	if !entities.IsPositive(cmd.Amount) {
		logger.Warn("treasury deposit validation failed",
			"event", "governance_treasury_deposit_validation_failed",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"from", from,
		)
		return nil, domainerrors.ErrInvalidAmount
	}

	var balance *big.Int
	err := uc.UnitOfWork.WithinOrganization(ctx, organizationID, func(ctx context.Context, store ports.GovernanceStore) error {
		if _, err := store.GetOrganization(ctx, organizationID); err != nil {
			return err
		}
		if err := store.CreditTreasury(ctx, organizationID, cmd.Amount); err != nil {
			return err
		}
		held, err := store.TreasuryBalance(ctx, organizationID)
		if err != nil {
			return err
		}
		balance = held
		return appendEvent(ctx, store, uc.IDGen, eventFundsReceived, organizationID, uc.now(), map[string]any{
			"from":    from,
			"amount":  cmd.Amount.String(),
			"balance": held.String(),
		})
	})
	if err != nil {
		logger.Warn("treasury deposit rejected",
			"event", "governance_treasury_deposit_rejected",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"from", from,
			"error", err.Error(),
		)
		return nil, err
	}
	if uc.Metrics != nil {
		uc.Metrics.TreasuryMovement("in", cmd.Amount)
	}
	logger.Info("treasury funds received",
		"event", "governance_treasury_funds_received",
		"module", moduleName,
		"layer", "application",
		"organization_id", organizationID,
		"from", from,
		"amount", cmd.Amount.String(),
		"balance", balance.String(),
	)
	return balance, nil
}

func (uc TreasuryUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
