package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	application "agora/contexts/governance/proposal-engine/application"
	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	"agora/contexts/governance/proposal-engine/ports"
)

// CreateProposalCommand is the write-model input for proposal creation.
// Recipient/Amount request a withdrawal; NewQuorum/ChangeAcceptExternalProposals
// request a settings change.
type CreateProposalCommand struct {
	OrganizationID                string
	Caller                        string
	IdempotencyKey                string
	Description                   string
	Duration                      uint64
	Recipient                     string
	Amount                        *big.Int
	NewQuorum                     uint64
	ChangeAcceptExternalProposals bool
}

type CreateProposalResult struct {
	Proposal entities.Proposal
	Replayed bool
}

type VoteCommand struct {
	OrganizationID string
	ProposalID     uint64
	Caller         string
	InFavor        bool
}

type ExecuteProposalCommand struct {
	OrganizationID string
	ProposalID     uint64
	Caller         string
}

// ProposalUseCase drives the create -> vote -> execute lifecycle. Every call
// runs inside the organization's unit of work, reads policy and ledger state
// live, and either applies fully or fails before mutating anything. The one
// exception is a rejected payout: the proposal stays executed.
type ProposalUseCase struct {
	UnitOfWork     ports.UnitOfWork
	Ledger         ports.ShareLedger
	Payouts        ports.PayoutGateway
	Positions      ports.PositionSource
	Metrics        ports.MetricsRecorder
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CreateProposal allocates the next proposal id for the organization.
func (uc ProposalUseCase) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (CreateProposalResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	organizationID := strings.TrimSpace(cmd.OrganizationID)
	caller := entities.NormalizeIdentity(cmd.Caller)
	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	logger.Info("proposal create processing started",
		"event", "governance_proposal_create_started",
		"module", moduleName,
		"layer", "application",
		"organization_id", organizationID,
		"caller", caller,
	)
	if organizationID == "" {
		return CreateProposalResult{}, domainerrors.ErrOrganizationNotFound
	}

	var result CreateProposalResult
	err := uc.UnitOfWork.WithinOrganization(ctx, organizationID, func(ctx context.Context, store ports.GovernanceStore) error {
		now := uc.now()
		requestHash := hashCreateProposalCommand(cmd)
		if idempotencyKey != "" {
			record, found, err := store.Get(ctx, idempotencyKey, now)
			if err != nil {
				return err
			}
			if found {
				if record.RequestHash != requestHash {
					return domainerrors.ErrIdempotencyConflict
				}
				proposalID, err := strconv.ParseUint(record.ResourceID, 10, 64)
				if err != nil {
					return domainerrors.ErrIdempotencyConflict
				}
				proposal, err := store.GetProposal(ctx, organizationID, proposalID)
				if err != nil {
					return err
				}
				result = CreateProposalResult{Proposal: proposal, Replayed: true}
				return nil
			}
		}

		organization, err := store.GetOrganization(ctx, organizationID)
		if err != nil {
			return err
		}
		policy := organization.Policy()
		if !policy.AcceptExternalProposals {
			balance, err := uc.Ledger.BalanceOf(ctx, organization.LedgerID, caller)
			if err != nil {
				return err
			}
			if !entities.IsPositive(balance) {
				return domainerrors.ErrNotAuthorized
			}
		}
		if cmd.Duration == 0 {
			return domainerrors.ErrInvalidDuration
		}
		// Narrowing saturates so an out-of-range quorum still classifies as a
		// settings change.
		effect := entities.ClassifyEffect(entities.ProposalRequest{
			Recipient:                     cmd.Recipient,
			Amount:                        cmd.Amount,
			NewQuorum:                     uint8(min(cmd.NewQuorum, math.MaxUint8)),
			ChangeAcceptExternalProposals: cmd.ChangeAcceptExternalProposals,
		})
		if _, ok := effect.(entities.ChangeSettingsEffect); ok && cmd.NewQuorum > uint64(entities.MaxQuorum) {
			return domainerrors.ErrInvalidQuorum
		}

		position, err := uc.Positions.CurrentPosition(ctx)
		if err != nil {
			return err
		}
		// End positions are stored as signed 64-bit integers.
		if position > math.MaxInt64 || cmd.Duration > math.MaxInt64-position {
			return domainerrors.ErrInvalidDuration
		}
		organization.ProposalCount++
		organization.UpdatedAt = now
		proposal := entities.Proposal{
			OrganizationID: organizationID,
			ProposalID:     organization.ProposalCount,
			Description:    cmd.Description,
			Proposer:       caller,
			VotesFor:       new(big.Int),
			VotesAgainst:   new(big.Int),
			EndPosition:    position + cmd.Duration,
			Kind:           effect.Kind(),
			Effect:         effect,
			CreatedAt:      now,
		}
		if err := store.SaveOrganization(ctx, organization); err != nil {
			return err
		}
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		if err := appendEvent(ctx, store, uc.IDGen, eventProposalCreated, organizationID, now, map[string]any{
			"proposal_id":  proposal.ProposalID,
			"description":  proposal.Description,
			"proposer":     proposal.Proposer,
			"kind":         string(proposal.Kind),
			"end_position": proposal.EndPosition,
		}); err != nil {
			return err
		}
		if idempotencyKey != "" {
			if err := store.Put(ctx, ports.IdempotencyRecord{
				Key:         idempotencyKey,
				RequestHash: requestHash,
				ResourceID:  strconv.FormatUint(proposal.ProposalID, 10),
				ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
			}); err != nil {
				return err
			}
		}
		result = CreateProposalResult{Proposal: proposal}
		return nil
	})
	if err != nil {
		logger.Warn("proposal create rejected",
			"event", "governance_proposal_create_rejected",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"caller", caller,
			"error", err.Error(),
		)
		return CreateProposalResult{}, err
	}
	if result.Replayed {
		logger.Info("proposal create replayed",
			"event", "governance_proposal_create_replayed",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"proposal_id", result.Proposal.ProposalID,
		)
		return result, nil
	}

	uc.metrics().ProposalCreated(result.Proposal.Kind)
	logger.Info("proposal created",
		"event", "governance_proposal_created",
		"module", moduleName,
		"layer", "application",
		"organization_id", organizationID,
		"proposal_id", result.Proposal.ProposalID,
		"kind", string(result.Proposal.Kind),
		"end_position", result.Proposal.EndPosition,
	)
	return result, nil
}

// Vote adds the caller's current share balance to one side of the tally.
// Checks run in a fixed order and the first failure wins.
func (uc ProposalUseCase) Vote(ctx context.Context, cmd VoteCommand) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	organizationID := strings.TrimSpace(cmd.OrganizationID)
	caller := entities.NormalizeIdentity(cmd.Caller)
	if organizationID == "" {
		return entities.Ballot{}, domainerrors.ErrOrganizationNotFound
	}

	var ballot entities.Ballot
	err := uc.UnitOfWork.WithinOrganization(ctx, organizationID, func(ctx context.Context, store ports.GovernanceStore) error {
		organization, err := store.GetOrganization(ctx, organizationID)
		if err != nil {
			return err
		}
		weight, err := uc.Ledger.BalanceOf(ctx, organization.LedgerID, caller)
		if err != nil {
			return err
		}
		if !entities.IsPositive(weight) {
			return domainerrors.ErrNotAMember
		}
		proposal, err := store.GetProposal(ctx, organizationID, cmd.ProposalID)
		if err != nil {
			return err
		}
		if _, voted, err := store.GetBallot(ctx, organizationID, cmd.ProposalID, caller); err != nil {
			return err
		} else if voted {
			return domainerrors.ErrAlreadyVoted
		}
		if proposal.Executed {
			return domainerrors.ErrAlreadyExecuted
		}
		position, err := uc.Positions.CurrentPosition(ctx)
		if err != nil {
			return err
		}
		if proposal.Expired(position) {
			return domainerrors.ErrExpired
		}

		now := uc.now()
		if cmd.InFavor {
			proposal.VotesFor = new(big.Int).Add(entities.ZeroIfNil(proposal.VotesFor), weight)
		} else {
			proposal.VotesAgainst = new(big.Int).Add(entities.ZeroIfNil(proposal.VotesAgainst), weight)
		}
		ballot = entities.Ballot{
			OrganizationID: organizationID,
			ProposalID:     proposal.ProposalID,
			Voter:          caller,
			InFavor:        cmd.InFavor,
			Weight:         entities.CopyAmount(weight),
			CastAt:         now,
			Position:       position,
		}
		if err := store.SaveBallot(ctx, ballot); err != nil {
			return err
		}
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		return appendEvent(ctx, store, uc.IDGen, eventProposalVoted, organizationID, now, map[string]any{
			"proposal_id": proposal.ProposalID,
			"voter":       caller,
			"in_favor":    cmd.InFavor,
			"weight":      weight.String(),
		})
	})
	if err != nil {
		logger.Warn("vote rejected",
			"event", "governance_vote_rejected",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"proposal_id", cmd.ProposalID,
			"voter", caller,
			"error", err.Error(),
		)
		return entities.Ballot{}, err
	}

	uc.metrics().VoteCast(cmd.InFavor)
	logger.Info("vote cast",
		"event", "governance_vote_cast",
		"module", moduleName,
		"layer", "application",
		"organization_id", organizationID,
		"proposal_id", cmd.ProposalID,
		"voter", caller,
		"in_favor", cmd.InFavor,
		"weight", ballot.Weight.String(),
	)
	return ballot, nil
}

// ExecuteProposal finalizes a proposal. Quorum is measured against the
// ledger's current total supply and the organization's current quorum.
// Execution is terminal whether or not the proposal passes.
//
// A passing withdrawal marks the proposal executed before the payout is sent.
// If the payout is rejected the proposal stays executed and the call returns
// ErrTransferFailed; the treasury debit is reverted.
func (uc ProposalUseCase) ExecuteProposal(ctx context.Context, cmd ExecuteProposalCommand) (entities.ExecutionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	organizationID := strings.TrimSpace(cmd.OrganizationID)
	caller := entities.NormalizeIdentity(cmd.Caller)
	if organizationID == "" {
		return entities.ExecutionResult{}, domainerrors.ErrOrganizationNotFound
	}

	var (
		result      entities.ExecutionResult
		transferErr error
	)
	err := uc.UnitOfWork.WithinOrganization(ctx, organizationID, func(ctx context.Context, store ports.GovernanceStore) error {
		organization, err := store.GetOrganization(ctx, organizationID)
		if err != nil {
			return err
		}
		balance, err := uc.Ledger.BalanceOf(ctx, organization.LedgerID, caller)
		if err != nil {
			return err
		}
		if !entities.IsPositive(balance) {
			return domainerrors.ErrNotAMember
		}
		proposal, err := store.GetProposal(ctx, organizationID, cmd.ProposalID)
		if err != nil {
			return err
		}
		if proposal.Executed {
			return domainerrors.ErrAlreadyExecuted
		}
		totalSupply, err := uc.Ledger.TotalSupply(ctx, organization.LedgerID)
		if err != nil {
			return err
		}
		if !entities.QuorumMet(proposal.TotalVotes(), totalSupply, organization.Quorum) {
			return domainerrors.ErrQuorumNotMet
		}

		passed := proposal.Outcome()
		if passed {
			if err := uc.checkEffectPreconditions(ctx, store, proposal); err != nil {
				return err
			}
		}

		now := uc.now()
		proposal.Executed = true
		proposal.Passed = passed
		proposal.ExecutedAt = &now
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}

		effectApplied := false
		if passed {
			applied, err := uc.applyEffect(ctx, store, proposal, now)
			if err != nil {
				if !errors.Is(err, domainerrors.ErrTransferFailed) {
					return err
				}
				transferErr = err
			}
			effectApplied = applied
		}

		data := map[string]any{
			"proposal_id":    proposal.ProposalID,
			"passed":         passed,
			"votes_for":      entities.ZeroIfNil(proposal.VotesFor).String(),
			"votes_against":  entities.ZeroIfNil(proposal.VotesAgainst).String(),
			"kind":           string(proposal.Kind),
			"recipient":      proposal.Recipient(),
			"amount":         proposal.Amount().String(),
			"effect_applied": effectApplied,
			"executed_by":    caller,
		}
		if transferErr != nil {
			data["failure"] = "transfer_failed"
		}
		if err := appendEvent(ctx, store, uc.IDGen, eventProposalExecuted, organizationID, now, data); err != nil {
			return err
		}
		result = entities.ExecutionResult{
			Proposal:     proposal,
			Passed:       passed,
			VotesFor:     entities.CopyAmount(proposal.VotesFor),
			VotesAgainst: entities.CopyAmount(proposal.VotesAgainst),
		}
		return nil
	})
	if err != nil {
		logger.Warn("proposal execution rejected",
			"event", "governance_proposal_execute_rejected",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"proposal_id", cmd.ProposalID,
			"caller", caller,
			"error", err.Error(),
		)
		return entities.ExecutionResult{}, err
	}

	uc.metrics().ProposalExecuted(result.Proposal.Kind, result.Passed)
	if transferErr != nil {
		logger.Error("proposal payout failed after execution was recorded",
			"event", "governance_proposal_payout_failed",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"proposal_id", cmd.ProposalID,
			"recipient", result.Proposal.Recipient(),
			"amount", result.Proposal.Amount().String(),
			"error", transferErr.Error(),
		)
		return result, transferErr
	}
	logger.Info("proposal executed",
		"event", "governance_proposal_executed",
		"module", moduleName,
		"layer", "application",
		"organization_id", organizationID,
		"proposal_id", cmd.ProposalID,
		"kind", string(result.Proposal.Kind),
		"passed", result.Passed,
		"votes_for", result.VotesFor.String(),
		"votes_against", result.VotesAgainst.String(),
	)
	return result, nil
}

func (uc ProposalUseCase) checkEffectPreconditions(
	ctx context.Context,
	store ports.GovernanceStore,
	proposal entities.Proposal,
) error {
	switch effect := proposal.Effect.(type) {
	case entities.WithdrawFundsEffect:
		if entities.IsZeroIdentity(effect.Recipient) || !entities.IsPositive(effect.Amount) {
			return domainerrors.ErrInvalidProposal
		}
		held, err := store.TreasuryBalance(ctx, proposal.OrganizationID)
		if err != nil {
			return err
		}
		if entities.ZeroIfNil(held).Cmp(effect.Amount) < 0 {
			return domainerrors.ErrInsufficientTreasuryFunds
		}
		return nil
	case entities.ChangeSettingsEffect:
		if effect.NewQuorum > entities.MaxQuorum {
			return domainerrors.ErrInvalidQuorum
		}
		return nil
	case entities.GenericEffect:
		return nil
	default:
		return domainerrors.ErrUnsupportedEffect
	}
}

// applyEffect runs after the proposal is already stored as executed.
func (uc ProposalUseCase) applyEffect(
	ctx context.Context,
	store ports.GovernanceStore,
	proposal entities.Proposal,
	now time.Time,
) (bool, error) {
	switch effect := proposal.Effect.(type) {
	case entities.WithdrawFundsEffect:
		if err := store.DebitTreasury(ctx, proposal.OrganizationID, effect.Amount); err != nil {
			return false, err
		}
		if err := uc.Payouts.Send(ctx, proposal.OrganizationID, effect.Recipient, effect.Amount); err != nil {
			if creditErr := store.CreditTreasury(ctx, proposal.OrganizationID, effect.Amount); creditErr != nil {
				return false, creditErr
			}
			return false, fmt.Errorf("%w: %v", domainerrors.ErrTransferFailed, err)
		}
		uc.metrics().TreasuryMovement("out", effect.Amount)
		return true, appendEvent(ctx, store, uc.IDGen, eventFundsWithdrawn, proposal.OrganizationID, now, map[string]any{
			"proposal_id": proposal.ProposalID,
			"recipient":   effect.Recipient,
			"amount":      effect.Amount.String(),
		})
	case entities.ChangeSettingsEffect:
		organization, err := store.GetOrganization(ctx, proposal.OrganizationID)
		if err != nil {
			return false, err
		}
		organization.ApplySettings(effect, now)
		if err := store.SaveOrganization(ctx, organization); err != nil {
			return false, err
		}
		return true, nil
	case entities.GenericEffect:
		return true, nil
	default:
		return false, domainerrors.ErrUnsupportedEffect
	}
}

func (uc ProposalUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc ProposalUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func (uc ProposalUseCase) metrics() ports.MetricsRecorder {
	if uc.Metrics == nil {
		return noopMetrics{}
	}
	return uc.Metrics
}

type noopMetrics struct{}

func (noopMetrics) ProposalCreated(entities.ProposalKind)        {}
func (noopMetrics) VoteCast(bool)                                {}
func (noopMetrics) ProposalExecuted(entities.ProposalKind, bool) {}
func (noopMetrics) TreasuryMovement(string, *big.Int)            {}

func hashCreateProposalCommand(cmd CreateProposalCommand) string {
	amount := ""
	if cmd.Amount != nil {
		amount = cmd.Amount.String()
	}
	payload := map[string]string{
		"organization_id": strings.TrimSpace(cmd.OrganizationID),
		"caller":          entities.NormalizeIdentity(cmd.Caller),
		"description":     cmd.Description,
		"duration":        strconv.FormatUint(cmd.Duration, 10),
		"recipient":       entities.NormalizeIdentity(cmd.Recipient),
		"amount":          amount,
		"new_quorum":      strconv.FormatUint(cmd.NewQuorum, 10),
		"accept_external": strconv.FormatBool(cmd.ChangeAcceptExternalProposals),
		"op":              "create_proposal",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
