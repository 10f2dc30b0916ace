package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "agora/contexts/governance/share-ledger/application"
	"agora/contexts/governance/share-ledger/domain/entities"
	domainerrors "agora/contexts/governance/share-ledger/domain/errors"
	"agora/contexts/governance/share-ledger/ports"
)

const (
	eventSharesMinted      = "shares.minted"
	eventSharesTransferred = "shares.transferred"

	moduleName = "governance/share-ledger"
)

type CreateLedgerCommand struct {
	Name   string
	Symbol string
}

type MintCommand struct {
	LedgerID string
	To       string
	Amount   *big.Int
}

type TransferCommand struct {
	LedgerID string
	From     string
	To       string
	Amount   *big.Int
}

type LedgerUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc LedgerUseCase) CreateLedger(ctx context.Context, cmd CreateLedgerCommand) (entities.Ledger, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return entities.Ledger{}, domainerrors.ErrInvalidLedger
	}
	ledgerID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Ledger{}, err
	}
	ledger := entities.Ledger{
		LedgerID:    ledgerID,
		Name:        name,
		Symbol:      strings.TrimSpace(cmd.Symbol),
		TotalSupply: new(big.Int),
		CreatedAt:   uc.now(),
	}
	if err := uc.Repository.CreateLedger(ctx, ledger); err != nil {
		return entities.Ledger{}, err
	}
	application.ResolveLogger(uc.Logger).Info("share ledger created",
		"event", "share_ledger_created",
		"module", moduleName,
		"layer", "application",
		"ledger_id", ledgerID,
		"symbol", ledger.Symbol,
	)
	return ledger, nil
}

// Mint creates shares for to and grows the total supply by the same amount.
func (uc LedgerUseCase) Mint(ctx context.Context, cmd MintCommand) error {
	movement := entities.Movement{
		LedgerID: strings.TrimSpace(cmd.LedgerID),
		To:       entities.NormalizeHolder(cmd.To),
		Amount:   cmd.Amount,
		At:       uc.now(),
	}
	if entities.IsZeroHolder(movement.To) {
		return domainerrors.ErrInvalidHolder
	}
	return uc.apply(ctx, movement, eventSharesMinted)
}

// Transfer moves shares between holders. Zero-amount transfers are accepted
// and still emit an event.
func (uc LedgerUseCase) Transfer(ctx context.Context, cmd TransferCommand) error {
	movement := entities.Movement{
		LedgerID: strings.TrimSpace(cmd.LedgerID),
		From:     entities.NormalizeHolder(cmd.From),
		To:       entities.NormalizeHolder(cmd.To),
		Amount:   cmd.Amount,
		At:       uc.now(),
	}
	if entities.IsZeroHolder(movement.From) || entities.IsZeroHolder(movement.To) {
		return domainerrors.ErrInvalidHolder
	}
	return uc.apply(ctx, movement, eventSharesTransferred)
}

func (uc LedgerUseCase) apply(ctx context.Context, movement entities.Movement, eventType string) error {
	logger := application.ResolveLogger(uc.Logger)
	if movement.LedgerID == "" {
		return domainerrors.ErrLedgerNotFound
	}
	if movement.Amount == nil || movement.Amount.Sign() < 0 {
		return domainerrors.ErrInvalidAmount
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"ledger_id":   movement.LedgerID,
		"to":          movement.To,
		"amount":      movement.Amount.String(),
		"occurred_at": movement.At.Format(time.RFC3339),
	}
	if !movement.IsMint() {
		data["from"] = movement.From
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	event := ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       movement.At,
		SourceService:    "share-ledger",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "ledger_id",
		PartitionKey:     movement.LedgerID,
		Data:             payload,
	}

	if err := uc.Repository.ApplyMovement(ctx, movement, event); err != nil {
		logger.Warn("share movement rejected",
			"event", "share_ledger_movement_rejected",
			"module", moduleName,
			"layer", "application",
			"ledger_id", movement.LedgerID,
			"from", movement.From,
			"to", movement.To,
			"amount", movement.Amount.String(),
			"error", err.Error(),
		)
		return err
	}
	logger.Debug("share movement applied",
		"event", "share_ledger_movement_applied",
		"module", moduleName,
		"layer", "application",
		"ledger_id", movement.LedgerID,
		"event_type", eventType,
		"to", movement.To,
	)
	return nil
}

func (uc LedgerUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
