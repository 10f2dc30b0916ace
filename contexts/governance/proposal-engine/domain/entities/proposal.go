package entities

import (
	"math/big"
	"time"
)

type ProposalKind string

const (
	ProposalKindGeneric        ProposalKind = "generic"
	ProposalKindWithdrawFunds  ProposalKind = "withdraw_funds"
	ProposalKindChangeSettings ProposalKind = "change_settings"
)

// Effect is the action a passed proposal applies. The set of implementations
// is closed to this package; execution dispatches with a type switch.
type Effect interface {
	Kind() ProposalKind
	isEffect()
}

type GenericEffect struct{}

func (GenericEffect) Kind() ProposalKind { return ProposalKindGeneric }
func (GenericEffect) isEffect()          {}

type WithdrawFundsEffect struct {
	Recipient string
	Amount    *big.Int
}

func (WithdrawFundsEffect) Kind() ProposalKind { return ProposalKindWithdrawFunds }
func (WithdrawFundsEffect) isEffect()          {}

// ChangeSettingsEffect overwrites both policy fields when applied. A
// NewQuorum of zero is a valid target, not a "keep current" marker.
type ChangeSettingsEffect struct {
	NewQuorum               uint8
	AcceptExternalProposals bool
}

func (ChangeSettingsEffect) Kind() ProposalKind { return ProposalKindChangeSettings }
func (ChangeSettingsEffect) isEffect()          {}

// ProposalRequest carries the raw creation arguments before classification.
type ProposalRequest struct {
	Recipient                     string
	Amount                        *big.Int
	NewQuorum                     uint8
	ChangeAcceptExternalProposals bool
}

// ClassifyEffect derives the proposal effect from creation arguments.
// A withdrawal request wins over a settings change when both are present.
func ClassifyEffect(req ProposalRequest) Effect {
	if !IsZeroIdentity(req.Recipient) && IsPositive(req.Amount) {
		return WithdrawFundsEffect{
			Recipient: NormalizeIdentity(req.Recipient),
			Amount:    new(big.Int).Set(req.Amount),
		}
	}
	if req.NewQuorum != 0 || req.ChangeAcceptExternalProposals {
		return ChangeSettingsEffect{
			NewQuorum:               req.NewQuorum,
			AcceptExternalProposals: req.ChangeAcceptExternalProposals,
		}
	}
	return GenericEffect{}
}

type Proposal struct {
	OrganizationID string
	ProposalID     uint64
	Description    string
	Proposer       string
	VotesFor       *big.Int
	VotesAgainst   *big.Int
	Executed       bool
	Passed         bool
	EndPosition    uint64
	Kind           ProposalKind
	Effect         Effect
	CreatedAt      time.Time
	ExecutedAt     *time.Time
}

// AcceptsVotes reports whether a ballot may still be cast at position.
func (p Proposal) AcceptsVotes(position uint64) bool {
	return !p.Executed && position <= p.EndPosition
}

func (p Proposal) Expired(position uint64) bool {
	return position > p.EndPosition
}

func (p Proposal) TotalVotes() *big.Int {
	return new(big.Int).Add(ZeroIfNil(p.VotesFor), ZeroIfNil(p.VotesAgainst))
}

// Outcome reports whether votes for strictly exceed votes against. Ties fail.
func (p Proposal) Outcome() bool {
	return ZeroIfNil(p.VotesFor).Cmp(ZeroIfNil(p.VotesAgainst)) > 0
}

// Recipient and Amount are the withdrawal fields; both are empty for other kinds.
func (p Proposal) Recipient() string {
	if effect, ok := p.Effect.(WithdrawFundsEffect); ok {
		return effect.Recipient
	}
	return ""
}

func (p Proposal) Amount() *big.Int {
	if effect, ok := p.Effect.(WithdrawFundsEffect); ok && effect.Amount != nil {
		return new(big.Int).Set(effect.Amount)
	}
	return new(big.Int)
}

type Ballot struct {
	OrganizationID string
	ProposalID     uint64
	Voter          string
	InFavor        bool
	Weight         *big.Int
	CastAt         time.Time
	Position       uint64
}

// ExecutionResult is the terminal tally returned to the executing caller.
type ExecutionResult struct {
	Proposal     Proposal
	Passed       bool
	VotesFor     *big.Int
	VotesAgainst *big.Int
}
