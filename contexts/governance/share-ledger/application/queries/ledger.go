package queries

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"strings"

	"agora/contexts/governance/share-ledger/domain/entities"
	domainerrors "agora/contexts/governance/share-ledger/domain/errors"
	"agora/contexts/governance/share-ledger/ports"
)

type LedgerQueries struct {
	Repository ports.Repository
}

// BalanceOf is zero for holders the ledger has never seen.
func (q LedgerQueries) BalanceOf(ctx context.Context, ledgerID string, holder string) (*big.Int, error) {
	ledgerID = strings.TrimSpace(ledgerID)
	if _, err := q.Repository.GetLedger(ctx, ledgerID); err != nil {
		return nil, err
	}
	if entities.IsZeroHolder(holder) {
		return new(big.Int), nil
	}
	return q.Repository.BalanceOf(ctx, ledgerID, entities.NormalizeHolder(holder))
}

func (q LedgerQueries) TotalSupply(ctx context.Context, ledgerID string) (*big.Int, error) {
	ledger, err := q.Ledger(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	return ledger.TotalSupply, nil
}

func (q LedgerQueries) Ledger(ctx context.Context, ledgerID string) (entities.Ledger, error) {
	ledgerID = strings.TrimSpace(ledgerID)
	if ledgerID == "" {
		return entities.Ledger{}, domainerrors.ErrLedgerNotFound
	}
	return q.Repository.GetLedger(ctx, ledgerID)
}

func (q LedgerQueries) LedgerExists(ctx context.Context, ledgerID string) (bool, error) {
	_, err := q.Ledger(ctx, ledgerID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domainerrors.ErrLedgerNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Holdings lists non-zero balances, largest first.
func (q LedgerQueries) Holdings(ctx context.Context, ledgerID string) ([]entities.Holding, error) {
	ledgerID = strings.TrimSpace(ledgerID)
	if _, err := q.Repository.GetLedger(ctx, ledgerID); err != nil {
		return nil, err
	}
	items, err := q.Repository.ListHoldings(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	filtered := items[:0]
	for _, item := range items {
		if item.Balance != nil && item.Balance.Sign() > 0 {
			filtered = append(filtered, item)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if c := filtered[i].Balance.Cmp(filtered[j].Balance); c != 0 {
			return c > 0
		}
		return filtered[i].Holder < filtered[j].Holder
	})
	return filtered, nil
}
