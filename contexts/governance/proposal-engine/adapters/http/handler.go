package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"agora/contexts/governance/proposal-engine/application/commands"
	"agora/contexts/governance/proposal-engine/application/queries"
	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	httptransport "agora/contexts/governance/proposal-engine/transport/http"
)

type Handler struct {
	Proposals commands.ProposalUseCase
	Treasury  commands.TreasuryUseCase
	Registry  commands.RegistryUseCase
	Queries   queries.GovernanceQueries
	Logger    *slog.Logger
}

func (h Handler) CreateOrganizationHandler(
	ctx context.Context,
	deployer string,
	req httptransport.CreateOrganizationRequest,
) (httptransport.CreateOrganizationResponse, error) {
	var supply *big.Int
	if strings.TrimSpace(req.InitialSupply) != "" {
		parsed, err := parseAmount(req.InitialSupply)
		if err != nil {
			return httptransport.CreateOrganizationResponse{}, err
		}
		supply = parsed
	}
	result, err := h.Registry.CreateOrganization(ctx, commands.CreateOrganizationCommand{
		Deployer:                deployer,
		Name:                    req.Name,
		Symbol:                  req.Symbol,
		Members:                 req.Members,
		Quorum:                  req.Quorum,
		InitialSupply:           supply,
		ExistingLedgerID:        req.ExistingLedgerID,
		Authority:               req.Authority,
		AcceptExternalProposals: req.AcceptExternalProposals,
	})
	if err != nil {
		return httptransport.CreateOrganizationResponse{}, err
	}
	return httptransport.CreateOrganizationResponse{
		Organization:   mapOrganization(result.Organization),
		Sequence:       result.Entry.Sequence,
		SharePerMember: result.SharePerMember.String(),
		Remainder:      result.Remainder.String(),
	}, nil
}

func (h Handler) ListOrganizationsHandler(ctx context.Context) (httptransport.ListOrganizationsResponse, error) {
	entries, err := h.Queries.Organizations(ctx)
	if err != nil {
		return httptransport.ListOrganizationsResponse{}, err
	}
	items := make([]httptransport.OrganizationEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, httptransport.OrganizationEntryResponse{
			Sequence:       entry.Sequence,
			OrganizationID: entry.OrganizationID,
			LedgerID:       entry.LedgerID,
			CreatedAt:      formatTime(entry.CreatedAt),
		})
	}
	return httptransport.ListOrganizationsResponse{Items: items}, nil
}

func (h Handler) GetOrganizationHandler(ctx context.Context, organizationID string) (httptransport.OrganizationResponse, error) {
	view, err := h.Queries.Organization(ctx, organizationID)
	if err != nil {
		return httptransport.OrganizationResponse{}, err
	}
	response := mapOrganization(view.Organization)
	response.TotalSupply = view.TotalSupply.String()
	response.QuorumThreshold = view.QuorumThreshold.String()
	response.TreasuryBalance = view.TreasuryBalance.String()
	return response, nil
}

func (h Handler) CreateProposalHandler(
	ctx context.Context,
	organizationID string,
	caller string,
	idempotencyKey string,
	req httptransport.CreateProposalRequest,
) (httptransport.ProposalResponse, error) {
	var amount *big.Int
	if strings.TrimSpace(req.Amount) != "" {
		parsed, err := parseAmount(req.Amount)
		if err != nil {
			return httptransport.ProposalResponse{}, err
		}
		amount = parsed
	}
	result, err := h.Proposals.CreateProposal(ctx, commands.CreateProposalCommand{
		OrganizationID:                organizationID,
		Caller:                        caller,
		IdempotencyKey:                idempotencyKey,
		Description:                   req.Description,
		Duration:                      req.Duration,
		Recipient:                     req.Recipient,
		Amount:                        amount,
		NewQuorum:                     req.NewQuorum,
		ChangeAcceptExternalProposals: req.ChangeAcceptExternalProposals,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	response := mapProposal(result.Proposal)
	response.Replayed = result.Replayed
	return response, nil
}

func (h Handler) GetProposalHandler(
	ctx context.Context,
	organizationID string,
	proposalID uint64,
) (httptransport.ProposalResponse, error) {
	view, err := h.Queries.Proposal(ctx, organizationID, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	response := mapProposal(view.Proposal)
	position := view.CurrentPosition
	open := view.VotingOpen
	response.CurrentPosition = &position
	response.VotingOpen = &open
	return response, nil
}

func (h Handler) ListProposalsHandler(ctx context.Context, organizationID string) (httptransport.ListProposalsResponse, error) {
	proposals, err := h.Queries.Proposals(ctx, organizationID)
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, mapProposal(proposal))
	}
	return httptransport.ListProposalsResponse{Items: items}, nil
}

func (h Handler) VoteHandler(
	ctx context.Context,
	organizationID string,
	proposalID uint64,
	caller string,
	req httptransport.VoteRequest,
) (httptransport.BallotResponse, error) {
	ballot, err := h.Proposals.Vote(ctx, commands.VoteCommand{
		OrganizationID: organizationID,
		ProposalID:     proposalID,
		Caller:         caller,
		InFavor:        req.InFavor,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) ListBallotsHandler(
	ctx context.Context,
	organizationID string,
	proposalID uint64,
) (httptransport.ListBallotsResponse, error) {
	ballots, err := h.Queries.Ballots(ctx, organizationID, proposalID)
	if err != nil {
		return httptransport.ListBallotsResponse{}, err
	}
	items := make([]httptransport.BallotResponse, 0, len(ballots))
	for _, ballot := range ballots {
		items = append(items, mapBallot(ballot))
	}
	return httptransport.ListBallotsResponse{Items: items}, nil
}

// ExecuteProposalHandler returns the terminal tally together with
// ErrTransferFailed when the proposal was recorded as executed but its payout
// was rejected.
func (h Handler) ExecuteProposalHandler(
	ctx context.Context,
	organizationID string,
	proposalID uint64,
	caller string,
) (httptransport.ExecuteProposalResponse, error) {
	result, err := h.Proposals.ExecuteProposal(ctx, commands.ExecuteProposalCommand{
		OrganizationID: organizationID,
		ProposalID:     proposalID,
		Caller:         caller,
	})
	if err != nil && !errors.Is(err, domainerrors.ErrTransferFailed) {
		return httptransport.ExecuteProposalResponse{}, err
	}
	return httptransport.ExecuteProposalResponse{
		ProposalID:   result.Proposal.ProposalID,
		Passed:       result.Passed,
		VotesFor:     entities.ZeroIfNil(result.VotesFor).String(),
		VotesAgainst: entities.ZeroIfNil(result.VotesAgainst).String(),
		Executed:     result.Proposal.Executed,
	}, err
}

func (h Handler) DepositHandler(
	ctx context.Context,
	organizationID string,
	from string,
	req httptransport.DepositRequest,
) (httptransport.TreasuryResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return httptransport.TreasuryResponse{}, err
	}
	balance, err := h.Treasury.DepositFunds(ctx, commands.DepositFundsCommand{
		OrganizationID: organizationID,
		From:           from,
		Amount:         amount,
	})
	if err != nil {
		return httptransport.TreasuryResponse{}, err
	}
	return httptransport.TreasuryResponse{
		OrganizationID: strings.TrimSpace(organizationID),
		Balance:        balance.String(),
	}, nil
}

func (h Handler) TreasuryHandler(ctx context.Context, organizationID string) (httptransport.TreasuryResponse, error) {
	balance, err := h.Queries.TreasuryBalance(ctx, organizationID)
	if err != nil {
		return httptransport.TreasuryResponse{}, err
	}
	return httptransport.TreasuryResponse{
		OrganizationID: strings.TrimSpace(organizationID),
		Balance:        balance.String(),
	}, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || amount.Sign() < 0 {
		return nil, domainerrors.ErrInvalidAmount
	}
	return amount, nil
}

func mapOrganization(organization entities.Organization) httptransport.OrganizationResponse {
	return httptransport.OrganizationResponse{
		OrganizationID:          organization.OrganizationID,
		Name:                    organization.Name,
		Symbol:                  organization.Symbol,
		Owner:                   organization.Owner,
		LedgerID:                organization.LedgerID,
		Quorum:                  organization.Quorum,
		AcceptExternalProposals: organization.AcceptExternalProposals,
		ProposalCount:           organization.ProposalCount,
		PolicyVersion:           organization.PolicyVersion,
		CreatedAt:               formatTime(organization.CreatedAt),
		UpdatedAt:               formatTime(organization.UpdatedAt),
	}
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	response := httptransport.ProposalResponse{
		OrganizationID: proposal.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Description:    proposal.Description,
		Proposer:       proposal.Proposer,
		Kind:           string(proposal.Kind),
		VotesFor:       entities.ZeroIfNil(proposal.VotesFor).String(),
		VotesAgainst:   entities.ZeroIfNil(proposal.VotesAgainst).String(),
		Executed:       proposal.Executed,
		Passed:         proposal.Passed,
		EndPosition:    proposal.EndPosition,
		CreatedAt:      formatTime(proposal.CreatedAt),
	}
	switch effect := proposal.Effect.(type) {
	case entities.WithdrawFundsEffect:
		response.Recipient = effect.Recipient
		response.Amount = entities.ZeroIfNil(effect.Amount).String()
	case entities.ChangeSettingsEffect:
		quorum := effect.NewQuorum
		accept := effect.AcceptExternalProposals
		response.NewQuorum = &quorum
		response.AcceptExternal = &accept
	}
	if proposal.ExecutedAt != nil {
		response.ExecutedAt = formatTime(*proposal.ExecutedAt)
	}
	return response
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	return httptransport.BallotResponse{
		OrganizationID: ballot.OrganizationID,
		ProposalID:     ballot.ProposalID,
		Voter:          ballot.Voter,
		InFavor:        ballot.InFavor,
		Weight:         entities.ZeroIfNil(ballot.Weight).String(),
		Position:       ballot.Position,
		CastAt:         formatTime(ballot.CastAt),
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
