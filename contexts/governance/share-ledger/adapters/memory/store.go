package memory

import (
	"context"
	"encoding/json"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/governance/share-ledger/domain/entities"
	domainerrors "agora/contexts/governance/share-ledger/domain/errors"
	"agora/contexts/governance/share-ledger/ports"

	"github.com/google/uuid"
)

type outboxRow struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps every ledger behind one mutex so a movement and its outbox
// row are applied together.
type Store struct {
	mu       sync.RWMutex
	ledgers  map[string]entities.Ledger
	balances map[string]map[string]*big.Int
	outbox   []outboxRow
}

func NewStore() *Store {
	return &Store{
		ledgers:  make(map[string]entities.Ledger),
		balances: make(map[string]map[string]*big.Int),
	}
}

func (s *Store) CreateLedger(_ context.Context, ledger entities.Ledger) error {
	ledgerID := strings.TrimSpace(ledger.LedgerID)
	if ledgerID == "" {
		return domainerrors.ErrInvalidLedger
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ledgers[ledgerID]; exists {
		return domainerrors.ErrConflict
	}
	ledger.LedgerID = ledgerID
	ledger.TotalSupply = entities.Amount(ledger.TotalSupply)
	s.ledgers[ledgerID] = ledger
	s.balances[ledgerID] = make(map[string]*big.Int)
	return nil
}

func (s *Store) GetLedger(_ context.Context, ledgerID string) (entities.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger, ok := s.ledgers[strings.TrimSpace(ledgerID)]
	if !ok {
		return entities.Ledger{}, domainerrors.ErrLedgerNotFound
	}
	ledger.TotalSupply = entities.Amount(ledger.TotalSupply)
	return ledger, nil
}

func (s *Store) ListLedgers(_ context.Context) ([]entities.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Ledger, 0, len(s.ledgers))
	for _, ledger := range s.ledgers {
		ledger.TotalSupply = entities.Amount(ledger.TotalSupply)
		items = append(items, ledger)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].LedgerID < items[j].LedgerID
	})
	return items, nil
}

func (s *Store) BalanceOf(_ context.Context, ledgerID string, holder string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.balances[strings.TrimSpace(ledgerID)]
	if !ok {
		return nil, domainerrors.ErrLedgerNotFound
	}
	return entities.Amount(book[entities.NormalizeHolder(holder)]), nil
}

func (s *Store) ListHoldings(_ context.Context, ledgerID string) ([]entities.Holding, error) {
	ledgerID = strings.TrimSpace(ledgerID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.balances[ledgerID]
	if !ok {
		return nil, domainerrors.ErrLedgerNotFound
	}
	items := make([]entities.Holding, 0, len(book))
	for holder, balance := range book {
		items = append(items, entities.Holding{
			LedgerID: ledgerID,
			Holder:   holder,
			Balance:  entities.Amount(balance),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Holder < items[j].Holder })
	return items, nil
}

func (s *Store) ApplyMovement(_ context.Context, movement entities.Movement, event ports.EventEnvelope) error {
	if movement.Amount == nil || movement.Amount.Sign() < 0 {
		return domainerrors.ErrInvalidAmount
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ledgerID := strings.TrimSpace(movement.LedgerID)
	from := entities.NormalizeHolder(movement.From)
	to := entities.NormalizeHolder(movement.To)

	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[ledgerID]
	if !ok {
		return domainerrors.ErrLedgerNotFound
	}
	book := s.balances[ledgerID]
	if movement.IsMint() {
		ledger.TotalSupply = new(big.Int).Add(entities.Amount(ledger.TotalSupply), movement.Amount)
		s.ledgers[ledgerID] = ledger
	} else {
		held := entities.Amount(book[from])
		if held.Cmp(movement.Amount) < 0 {
			return domainerrors.ErrInsufficientBalance
		}
		book[from] = held.Sub(held, movement.Amount)
	}
	book[to] = new(big.Int).Add(entities.Amount(book[to]), movement.Amount)

	outboxID := strings.TrimSpace(event.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	s.outbox = append(s.outbox, outboxRow{message: ports.OutboxMessage{
		OutboxID:  outboxID,
		EventType: event.EventType,
		Payload:   payload,
		CreatedAt: event.OccurredAt.UTC(),
	}})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == strings.TrimSpace(outboxID) {
			s.outbox[i].published = true
			return nil
		}
	}
	return domainerrors.ErrConflict
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
