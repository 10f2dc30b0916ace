package queries

import (
	"context"
	"math/big"
	"testing"
	"time"

	"agora/contexts/governance/share-ledger/adapters/memory"
	"agora/contexts/governance/share-ledger/domain/entities"
	domainerrors "agora/contexts/governance/share-ledger/domain/errors"
	"agora/contexts/governance/share-ledger/ports"

	"github.com/stretchr/testify/require"
)

func seededQueries(t *testing.T) LedgerQueries {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.CreateLedger(ctx, entities.Ledger{LedgerID: "ledger-1", Name: "Guild", CreatedAt: time.Now()}))
	for i, grant := range []struct {
		to     string
		amount int64
	}{{"0xb", 50}, {"0xa", 50}, {"0xc", 200}, {"0xd", 0}} {
		require.NoError(t, store.ApplyMovement(ctx, entities.Movement{
			LedgerID: "ledger-1",
			To:       grant.to,
			Amount:   big.NewInt(grant.amount),
		}, ports.EventEnvelope{EventID: string(rune('a' + i))}))
	}
	return LedgerQueries{Repository: store}
}

func TestBalanceOfUnknownHolderIsZero(t *testing.T) {
	q := seededQueries(t)
	balance, err := q.BalanceOf(context.Background(), "ledger-1", "0xfeed")
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	_, err = q.BalanceOf(context.Background(), "ledger-2", "0xa")
	require.ErrorIs(t, err, domainerrors.ErrLedgerNotFound)
}

func TestTotalSupplyAndExistence(t *testing.T) {
	q := seededQueries(t)
	supply, err := q.TotalSupply(context.Background(), "ledger-1")
	require.NoError(t, err)
	require.Equal(t, "300", supply.String())

	exists, err := q.LedgerExists(context.Background(), "ledger-1")
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = q.LedgerExists(context.Background(), "")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestHoldingsLargestFirstWithoutEmptyBalances(t *testing.T) {
	q := seededQueries(t)
	items, err := q.Holdings(context.Background(), "ledger-1")
	require.NoError(t, err)
	holders := make([]string, 0, len(items))
	for _, item := range items {
		holders = append(holders, item.Holder)
	}
	require.Equal(t, []string{"0xc", "0xa", "0xb"}, holders)
}
