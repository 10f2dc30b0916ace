package queries

import (
	"context"
	"math/big"
	"sort"
	"strings"

	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	"agora/contexts/governance/proposal-engine/ports"
)

type GovernanceQueries struct {
	Organizations ports.OrganizationRepository
	Proposals     ports.ProposalRepository
	Treasury      ports.TreasuryRepository
	Ledger        ports.ShareLedger
	Positions     ports.PositionSource
}

// OrganizationView is the policy as currently in force plus ledger context.
type OrganizationView struct {
	Organization    entities.Organization
	TotalSupply     *big.Int
	QuorumThreshold *big.Int
	TreasuryBalance *big.Int
}

type ProposalView struct {
	Proposal        entities.Proposal
	CurrentPosition uint64
	VotingOpen      bool
}

func (q GovernanceQueries) Organization(ctx context.Context, organizationID string) (OrganizationView, error) {
	organization, err := q.Organizations.GetOrganization(ctx, strings.TrimSpace(organizationID))
	if err != nil {
		return OrganizationView{}, err
	}
	supply, err := q.Ledger.TotalSupply(ctx, organization.LedgerID)
	if err != nil {
		return OrganizationView{}, err
	}
	balance, err := q.Treasury.TreasuryBalance(ctx, organization.OrganizationID)
	if err != nil {
		return OrganizationView{}, err
	}
	return OrganizationView{
		Organization:    organization,
		TotalSupply:     supply,
		QuorumThreshold: entities.QuorumThreshold(supply, organization.Quorum),
		TreasuryBalance: balance,
	}, nil
}

func (q GovernanceQueries) Organizations(ctx context.Context) ([]entities.OrganizationEntry, error) {
	items, err := q.Organizations.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Sequence < items[j].Sequence
	})
	return items, nil
}

func (q GovernanceQueries) Proposal(ctx context.Context, organizationID string, proposalID uint64) (ProposalView, error) {
	proposal, err := q.Proposals.GetProposal(ctx, strings.TrimSpace(organizationID), proposalID)
	if err != nil {
		return ProposalView{}, err
	}
	position, err := q.Positions.CurrentPosition(ctx)
	if err != nil {
		return ProposalView{}, err
	}
	return ProposalView{
		Proposal:        proposal,
		CurrentPosition: position,
		VotingOpen:      proposal.AcceptsVotes(position),
	}, nil
}

func (q GovernanceQueries) Proposals(ctx context.Context, organizationID string) ([]entities.Proposal, error) {
	organizationID = strings.TrimSpace(organizationID)
	if _, err := q.Organizations.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	items, err := q.Proposals.ListProposals(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProposalID < items[j].ProposalID
	})
	return items, nil
}

func (q GovernanceQueries) Ballots(ctx context.Context, organizationID string, proposalID uint64) ([]entities.Ballot, error) {
	organizationID = strings.TrimSpace(organizationID)
	if _, err := q.Proposals.GetProposal(ctx, organizationID, proposalID); err != nil {
		return nil, err
	}
	return q.Proposals.ListBallots(ctx, organizationID, proposalID)
}

func (q GovernanceQueries) TreasuryBalance(ctx context.Context, organizationID string) (*big.Int, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, domainerrors.ErrOrganizationNotFound
	}
	if _, err := q.Organizations.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	return q.Treasury.TreasuryBalance(ctx, organizationID)
}
