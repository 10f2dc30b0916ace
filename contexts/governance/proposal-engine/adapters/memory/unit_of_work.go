package memory

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"agora/contexts/governance/proposal-engine/domain/entities"
	"agora/contexts/governance/proposal-engine/ports"
)

type heldUnitKey struct {
	scope string
}

const registryScope = "\x00registry"

// unit is the GovernanceStore handed to a unit-of-work callback. Writes go
// straight to the shared maps and record an undo step, so a failed callback
// leaves the store untouched once it returns. Readers outside the unit can
// observe writes that are later undone. Callbacks that enter a second
// organization hold both locks; two callers doing so in opposite order
// deadlock. The store is meant for local runs and tests; the postgres adapter
// gives real isolation.
type unit struct {
	*Store
	undo []func()
}

// WithinOrganization serializes fn per organization. A context that already
// holds the organization runs fn inline on the same unit, rolled back to a
// savepoint if fn fails.
func (s *Store) WithinOrganization(
	ctx context.Context,
	organizationID string,
	fn func(context.Context, ports.GovernanceStore) error,
) error {
	return s.within(ctx, strings.TrimSpace(organizationID), s.organizationLock(strings.TrimSpace(organizationID)), fn)
}

// WithinRegistry serializes registry appends.
func (s *Store) WithinRegistry(ctx context.Context, fn func(context.Context, ports.GovernanceStore) error) error {
	return s.within(ctx, registryScope, &s.registryLock, fn)
}

func (s *Store) within(
	ctx context.Context,
	scope string,
	lock *sync.Mutex,
	fn func(context.Context, ports.GovernanceStore) error,
) error {
	if held, ok := ctx.Value(heldUnitKey{scope: scope}).(*unit); ok {
		savepoint := len(held.undo)
		if err := fn(ctx, held); err != nil {
			held.rollbackTo(savepoint)
			return err
		}
		return nil
	}

	lock.Lock()
	defer lock.Unlock()

	tx := &unit{Store: s}
	if err := fn(context.WithValue(ctx, heldUnitKey{scope: scope}, tx), tx); err != nil {
		tx.rollbackTo(0)
		return err
	}
	return nil
}

func (s *Store) organizationLock(organizationID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.orgLocks[organizationID]
	if !ok {
		lock = &sync.Mutex{}
		s.orgLocks[organizationID] = lock
	}
	return lock
}

func (u *unit) rollbackTo(savepoint int) {
	for i := len(u.undo) - 1; i >= savepoint; i-- {
		u.undo[i]()
	}
	u.undo = u.undo[:savepoint]
}

func (u *unit) record(step func()) {
	u.undo = append(u.undo, func() {
		u.Store.mu.Lock()
		defer u.Store.mu.Unlock()
		step()
	})
}

func (u *unit) CreateOrganization(ctx context.Context, organization entities.Organization) (entities.OrganizationEntry, error) {
	entry, err := u.Store.CreateOrganization(ctx, organization)
	if err != nil {
		return entities.OrganizationEntry{}, err
	}
	u.record(func() {
		delete(u.Store.organizations, entry.OrganizationID)
		u.Store.registry = u.Store.registry[:len(u.Store.registry)-1]
	})
	return entry, nil
}

func (u *unit) SaveOrganization(ctx context.Context, organization entities.Organization) error {
	previous, err := u.Store.GetOrganization(ctx, organization.OrganizationID)
	if err != nil {
		return err
	}
	if err := u.Store.SaveOrganization(ctx, organization); err != nil {
		return err
	}
	u.record(func() {
		u.Store.organizations[previous.OrganizationID] = previous
	})
	return nil
}

func (u *unit) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	key := proposalKey{strings.TrimSpace(proposal.OrganizationID), proposal.ProposalID}
	u.Store.mu.RLock()
	previous, existed := u.Store.proposals[key]
	u.Store.mu.RUnlock()
	if err := u.Store.SaveProposal(ctx, proposal); err != nil {
		return err
	}
	u.record(func() {
		if existed {
			u.Store.proposals[key] = previous
			return
		}
		delete(u.Store.proposals, key)
	})
	return nil
}

func (u *unit) SaveBallot(ctx context.Context, ballot entities.Ballot) error {
	if err := u.Store.SaveBallot(ctx, ballot); err != nil {
		return err
	}
	key := ballotKey{strings.TrimSpace(ballot.OrganizationID), ballot.ProposalID, entities.NormalizeIdentity(ballot.Voter)}
	u.record(func() {
		delete(u.Store.ballots, key)
	})
	return nil
}

func (u *unit) CreditTreasury(ctx context.Context, organizationID string, amount *big.Int) error {
	return u.moveTreasury(ctx, organizationID, func() error {
		return u.Store.CreditTreasury(ctx, organizationID, amount)
	})
}

func (u *unit) DebitTreasury(ctx context.Context, organizationID string, amount *big.Int) error {
	return u.moveTreasury(ctx, organizationID, func() error {
		return u.Store.DebitTreasury(ctx, organizationID, amount)
	})
}

func (u *unit) moveTreasury(ctx context.Context, organizationID string, apply func() error) error {
	organizationID = strings.TrimSpace(organizationID)
	u.Store.mu.RLock()
	previous, existed := u.Store.treasury[organizationID]
	u.Store.mu.RUnlock()
	if err := apply(); err != nil {
		return err
	}
	u.record(func() {
		if existed {
			u.Store.treasury[organizationID] = previous
			return
		}
		delete(u.Store.treasury, organizationID)
	})
	return nil
}

func (u *unit) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	key := strings.TrimSpace(record.Key)
	u.Store.mu.RLock()
	_, existed := u.Store.idempotency[key]
	u.Store.mu.RUnlock()
	if err := u.Store.Put(ctx, record); err != nil {
		return err
	}
	if !existed {
		u.record(func() {
			delete(u.Store.idempotency, key)
		})
	}
	return nil
}

func (u *unit) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	outboxID := strings.TrimSpace(envelope.EventID)
	u.Store.mu.RLock()
	_, existed := u.Store.outbox[outboxID]
	u.Store.mu.RUnlock()
	if err := u.Store.AppendOutbox(ctx, envelope); err != nil {
		return err
	}
	if !existed && outboxID != "" {
		u.record(func() {
			delete(u.Store.outbox, outboxID)
		})
	}
	return nil
}
