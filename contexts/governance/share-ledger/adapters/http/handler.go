package httpadapter

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"agora/contexts/governance/share-ledger/application/commands"
	"agora/contexts/governance/share-ledger/application/queries"
	"agora/contexts/governance/share-ledger/domain/entities"
	domainerrors "agora/contexts/governance/share-ledger/domain/errors"
	httptransport "agora/contexts/governance/share-ledger/transport/http"
)

type Handler struct {
	Ledger  commands.LedgerUseCase
	Queries queries.LedgerQueries
	Logger  *slog.Logger
}

func (h Handler) GetLedgerHandler(ctx context.Context, ledgerID string) (httptransport.LedgerResponse, error) {
	ledger, err := h.Queries.Ledger(ctx, ledgerID)
	if err != nil {
		return httptransport.LedgerResponse{}, err
	}
	return httptransport.LedgerResponse{
		LedgerID:    ledger.LedgerID,
		Name:        ledger.Name,
		Symbol:      ledger.Symbol,
		TotalSupply: entities.Amount(ledger.TotalSupply).String(),
		CreatedAt:   ledger.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) BalanceHandler(ctx context.Context, ledgerID string, holder string) (httptransport.BalanceResponse, error) {
	balance, err := h.Queries.BalanceOf(ctx, ledgerID, holder)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{
		LedgerID: strings.TrimSpace(ledgerID),
		Holder:   entities.NormalizeHolder(holder),
		Balance:  balance.String(),
	}, nil
}

func (h Handler) HoldingsHandler(ctx context.Context, ledgerID string) (httptransport.HoldingsResponse, error) {
	items, err := h.Queries.Holdings(ctx, ledgerID)
	if err != nil {
		return httptransport.HoldingsResponse{}, err
	}
	resp := httptransport.HoldingsResponse{
		LedgerID: strings.TrimSpace(ledgerID),
		Holdings: make([]httptransport.BalanceResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Holdings = append(resp.Holdings, httptransport.BalanceResponse{
			LedgerID: item.LedgerID,
			Holder:   item.Holder,
			Balance:  item.Balance.String(),
		})
	}
	return resp, nil
}

func (h Handler) TransferHandler(
	ctx context.Context,
	ledgerID string,
	caller string,
	req httptransport.TransferRequest,
) (httptransport.TransferResponse, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok {
		return httptransport.TransferResponse{}, domainerrors.ErrInvalidAmount
	}
	if err := h.Ledger.Transfer(ctx, commands.TransferCommand{
		LedgerID: ledgerID,
		From:     caller,
		To:       req.To,
		Amount:   amount,
	}); err != nil {
		return httptransport.TransferResponse{}, err
	}
	remaining, err := h.Queries.BalanceOf(ctx, ledgerID, caller)
	if err != nil {
		return httptransport.TransferResponse{}, err
	}
	return httptransport.TransferResponse{
		LedgerID:    strings.TrimSpace(ledgerID),
		From:        entities.NormalizeHolder(caller),
		To:          entities.NormalizeHolder(req.To),
		Amount:      amount.String(),
		FromBalance: remaining.String(),
	}, nil
}
