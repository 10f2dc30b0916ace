package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	"agora/contexts/governance/proposal-engine/ports"

	"github.com/google/uuid"
)

type proposalKey struct {
	organizationID string
	proposalID     uint64
}

type ballotKey struct {
	organizationID string
	proposalID     uint64
	voter          string
}

type outboxRecord struct {
	message   ports.OutboxMessage
	seq       uint64
	published bool
}

// Store keeps the governance write model in process. It also serves as the
// clock, id generator and position source for local runs and tests.
type Store struct {
	mu sync.RWMutex

	organizations map[string]entities.Organization
	registry      []entities.OrganizationEntry
	proposals     map[proposalKey]entities.Proposal
	ballots       map[ballotKey]entities.Ballot
	treasury      map[string]*big.Int
	idempotency   map[string]ports.IdempotencyRecord
	outbox        map[string]outboxRecord
	outboxSeq     uint64
	position      uint64

	locksMu      sync.Mutex
	orgLocks     map[string]*sync.Mutex
	registryLock sync.Mutex
}

func NewStore() *Store {
	return &Store{
		organizations: make(map[string]entities.Organization),
		proposals:     make(map[proposalKey]entities.Proposal),
		ballots:       make(map[ballotKey]entities.Ballot),
		treasury:      make(map[string]*big.Int),
		idempotency:   make(map[string]ports.IdempotencyRecord),
		outbox:        make(map[string]outboxRecord),
		orgLocks:      make(map[string]*sync.Mutex),
	}
}

// SetPosition moves the sequence axis to an absolute value.
func (s *Store) SetPosition(position uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
}

// Advance moves the sequence axis forward by n and returns the new position.
func (s *Store) Advance(n uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position += n
	return s.position
}

func (s *Store) CurrentPosition(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position, nil
}

func (s *Store) CreateOrganization(_ context.Context, organization entities.Organization) (entities.OrganizationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	organizationID := strings.TrimSpace(organization.OrganizationID)
	if organizationID == "" {
		return entities.OrganizationEntry{}, domainerrors.ErrInvalidOrganization
	}
	if _, exists := s.organizations[organizationID]; exists {
		return entities.OrganizationEntry{}, domainerrors.ErrConflict
	}
	organization.OrganizationID = organizationID
	s.organizations[organizationID] = organization
	entry := entities.OrganizationEntry{
		Sequence:       uint64(len(s.registry)) + 1,
		OrganizationID: organizationID,
		LedgerID:       organization.LedgerID,
		CreatedAt:      organization.CreatedAt,
	}
	s.registry = append(s.registry, entry)
	return entry, nil
}

func (s *Store) GetOrganization(_ context.Context, organizationID string) (entities.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	organization, ok := s.organizations[strings.TrimSpace(organizationID)]
	if !ok {
		return entities.Organization{}, domainerrors.ErrOrganizationNotFound
	}
	return organization, nil
}

func (s *Store) SaveOrganization(_ context.Context, organization entities.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	organizationID := strings.TrimSpace(organization.OrganizationID)
	if _, ok := s.organizations[organizationID]; !ok {
		return domainerrors.ErrOrganizationNotFound
	}
	s.organizations[organizationID] = organization
	return nil
}

func (s *Store) ListOrganizations(_ context.Context) ([]entities.OrganizationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.OrganizationEntry, len(s.registry))
	copy(items, s.registry)
	return items, nil
}

func (s *Store) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[proposalKey{strings.TrimSpace(proposal.OrganizationID), proposal.ProposalID}] = cloneProposal(proposal)
	return nil
}

func (s *Store) GetProposal(_ context.Context, organizationID string, proposalID uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[proposalKey{strings.TrimSpace(organizationID), proposalID}]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return cloneProposal(proposal), nil
}

func (s *Store) ListProposals(_ context.Context, organizationID string) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	organizationID = strings.TrimSpace(organizationID)
	items := make([]entities.Proposal, 0)
	for key, proposal := range s.proposals {
		if key.organizationID == organizationID {
			items = append(items, cloneProposal(proposal))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProposalID < items[j].ProposalID
	})
	return items, nil
}

func (s *Store) GetBallot(
	_ context.Context,
	organizationID string,
	proposalID uint64,
	voter string,
) (entities.Ballot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[ballotKey{strings.TrimSpace(organizationID), proposalID, entities.NormalizeIdentity(voter)}]
	return ballot, ok, nil
}

func (s *Store) SaveBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ballotKey{strings.TrimSpace(ballot.OrganizationID), ballot.ProposalID, entities.NormalizeIdentity(ballot.Voter)}
	if _, exists := s.ballots[key]; exists {
		return domainerrors.ErrAlreadyVoted
	}
	ballot.Weight = entities.CopyAmount(ballot.Weight)
	s.ballots[key] = ballot
	return nil
}

func (s *Store) ListBallots(_ context.Context, organizationID string, proposalID uint64) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	organizationID = strings.TrimSpace(organizationID)
	items := make([]entities.Ballot, 0)
	for key, ballot := range s.ballots {
		if key.organizationID == organizationID && key.proposalID == proposalID {
			ballot.Weight = entities.CopyAmount(ballot.Weight)
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position == items[j].Position {
			return items[i].CastAt.Before(items[j].CastAt)
		}
		return items[i].Position < items[j].Position
	})
	return items, nil
}

func (s *Store) TreasuryBalance(_ context.Context, organizationID string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entities.CopyAmount(s.treasury[strings.TrimSpace(organizationID)]), nil
}

func (s *Store) CreditTreasury(_ context.Context, organizationID string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domainerrors.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	organizationID = strings.TrimSpace(organizationID)
	s.treasury[organizationID] = new(big.Int).Add(entities.ZeroIfNil(s.treasury[organizationID]), amount)
	return nil
}

func (s *Store) DebitTreasury(_ context.Context, organizationID string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domainerrors.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	organizationID = strings.TrimSpace(organizationID)
	held := entities.ZeroIfNil(s.treasury[organizationID])
	if held.Cmp(amount) < 0 {
		return domainerrors.ErrInsufficientTreasuryFunds
	}
	s.treasury[organizationID] = new(big.Int).Sub(held, amount)
	return nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	if existing, exists := s.idempotency[key]; exists {
		if existing.RequestHash != record.RequestHash || existing.ResourceID != record.ResourceID {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(record.RequestHash),
		ResourceID:  strings.TrimSpace(record.ResourceID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
		seq: s.outboxSeq,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneProposal(proposal entities.Proposal) entities.Proposal {
	proposal.VotesFor = entities.CopyAmount(proposal.VotesFor)
	proposal.VotesAgainst = entities.CopyAmount(proposal.VotesAgainst)
	if proposal.ExecutedAt != nil {
		executedAt := *proposal.ExecutedAt
		proposal.ExecutedAt = &executedAt
	}
	return proposal
}
