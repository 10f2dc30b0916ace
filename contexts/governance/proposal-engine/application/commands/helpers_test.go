package commands

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"sync"
	"testing"
	"time"

	"agora/contexts/governance/proposal-engine/adapters/memory"
	"agora/contexts/governance/proposal-engine/domain/entities"
	"agora/contexts/governance/proposal-engine/ports"
)

var errLedgerMissing = errors.New("ledger missing")

// fakeLedger is a multi-ledger share book keyed by ledger id.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int
	supply   map[string]*big.Int
	next     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[string]map[string]*big.Int),
		supply:   make(map[string]*big.Int),
	}
}

func (l *fakeLedger) CreateLedger(_ context.Context, _ string, _ string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	ledgerID := "ledger-" + strconv.Itoa(l.next)
	l.balances[ledgerID] = make(map[string]*big.Int)
	l.supply[ledgerID] = new(big.Int)
	return ledgerID, nil
}

func (l *fakeLedger) LedgerExists(_ context.Context, ledgerID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.balances[ledgerID]
	return ok, nil
}

func (l *fakeLedger) Mint(_ context.Context, ledgerID string, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	book, ok := l.balances[ledgerID]
	if !ok {
		return errLedgerMissing
	}
	to = entities.NormalizeIdentity(to)
	book[to] = new(big.Int).Add(entities.ZeroIfNil(book[to]), amount)
	l.supply[ledgerID] = new(big.Int).Add(l.supply[ledgerID], amount)
	return nil
}

func (l *fakeLedger) Transfer(_ context.Context, ledgerID string, from string, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	book, ok := l.balances[ledgerID]
	if !ok {
		return errLedgerMissing
	}
	from = entities.NormalizeIdentity(from)
	to = entities.NormalizeIdentity(to)
	if entities.ZeroIfNil(book[from]).Cmp(amount) < 0 {
		return errors.New("insufficient balance")
	}
	book[from] = new(big.Int).Sub(book[from], amount)
	book[to] = new(big.Int).Add(entities.ZeroIfNil(book[to]), amount)
	return nil
}

func (l *fakeLedger) BalanceOf(_ context.Context, ledgerID string, holder string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return entities.CopyAmount(l.balances[ledgerID][entities.NormalizeIdentity(holder)]), nil
}

func (l *fakeLedger) TotalSupply(_ context.Context, ledgerID string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return entities.CopyAmount(l.supply[ledgerID]), nil
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

const (
	member1  = "0x1111111111111111111111111111111111111111"
	member2  = "0x2222222222222222222222222222222222222222"
	outsider = "0x3333333333333333333333333333333333333333"
	member3  = "0x4444444444444444444444444444444444444444"
	deployer = "0x9999999999999999999999999999999999999999"
)

type harness struct {
	store     *memory.Store
	payouts   *memory.PayoutGateway
	ledger    *fakeLedger
	proposals ProposalUseCase
	treasury  TreasuryUseCase
	registry  RegistryUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	payouts := memory.NewPayoutGateway()
	ledger := newFakeLedger()
	clock := fixedClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)}
	return &harness{
		store:   store,
		payouts: payouts,
		ledger:  ledger,
		proposals: ProposalUseCase{
			UnitOfWork: store,
			Ledger:     ledger,
			Payouts:    payouts,
			Positions:  store,
			Clock:      clock,
			IDGen:      store,
		},
		treasury: TreasuryUseCase{
			UnitOfWork: store,
			Clock:      clock,
			IDGen:      store,
		},
		registry: RegistryUseCase{
			UnitOfWork: store,
			Ledgers:    ledger,
			Clock:      clock,
			IDGen:      store,
		},
	}
}

// newOrganization creates an organization whose supply is split evenly
// across members with nothing left over.
func (h *harness) newOrganization(t *testing.T, quorum uint64, acceptExternal bool, members ...string) entities.Organization {
	t.Helper()
	supply := big.NewInt(int64(len(members)) * 100)
	result, err := h.registry.CreateOrganization(context.Background(), CreateOrganizationCommand{
		Deployer:                deployer,
		Name:                    "Test DAO",
		Symbol:                  "TDAO",
		Members:                 members,
		Quorum:                  quorum,
		InitialSupply:           supply,
		Authority:               deployer,
		AcceptExternalProposals: acceptExternal,
	})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return result.Organization
}

func (h *harness) propose(t *testing.T, cmd CreateProposalCommand) entities.Proposal {
	t.Helper()
	if cmd.Duration == 0 {
		cmd.Duration = 100
	}
	result, err := h.proposals.CreateProposal(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return result.Proposal
}

func (h *harness) vote(t *testing.T, organizationID string, proposalID uint64, voter string, inFavor bool) {
	t.Helper()
	if _, err := h.proposals.Vote(context.Background(), VoteCommand{
		OrganizationID: organizationID,
		ProposalID:     proposalID,
		Caller:         voter,
		InFavor:        inFavor,
	}); err != nil {
		t.Fatalf("vote by %s: %v", voter, err)
	}
}

// pendingEvents decodes every unpublished outbox row of eventType.
func pendingEvents(t *testing.T, store *memory.Store, eventType string) []map[string]any {
	t.Helper()
	rows, err := store.ListPendingOutbox(context.Background(), 1000)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	items := make([]map[string]any, 0)
	for _, row := range rows {
		if row.EventType != eventType {
			continue
		}
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		var data map[string]any
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			t.Fatalf("decode event data: %v", err)
		}
		items = append(items, data)
	}
	return items
}
