package postgresadapter

import (
	"math/big"
	"strings"
	"time"

	"agora/contexts/governance/proposal-engine/domain/entities"
)

// Amounts are stored as base-10 text so values beyond 64 bits round-trip
// without a numeric codec.

type organizationModel struct {
	OrganizationID          string    `gorm:"column:organization_id;primaryKey"`
	Sequence                uint64    `gorm:"column:sequence;autoIncrement;uniqueIndex"`
	Name                    string    `gorm:"column:name"`
	Symbol                  string    `gorm:"column:symbol"`
	Owner                   string    `gorm:"column:owner"`
	LedgerID                string    `gorm:"column:ledger_id;index"`
	Quorum                  uint8     `gorm:"column:quorum"`
	AcceptExternalProposals bool      `gorm:"column:accept_external_proposals"`
	ProposalCount           uint64    `gorm:"column:proposal_count"`
	PolicyVersion           uint64    `gorm:"column:policy_version"`
	CreatedAt               time.Time `gorm:"column:created_at"`
	UpdatedAt               time.Time `gorm:"column:updated_at"`
}

func (organizationModel) TableName() string {
	return "governance_organizations"
}

func organizationModelFromEntity(organization entities.Organization) organizationModel {
	row := organizationModel{
		OrganizationID:          strings.TrimSpace(organization.OrganizationID),
		Name:                    organization.Name,
		Symbol:                  organization.Symbol,
		Owner:                   organization.Owner,
		LedgerID:                strings.TrimSpace(organization.LedgerID),
		Quorum:                  organization.Quorum,
		AcceptExternalProposals: organization.AcceptExternalProposals,
		ProposalCount:           organization.ProposalCount,
		PolicyVersion:           organization.PolicyVersion,
		CreatedAt:               organization.CreatedAt.UTC(),
		UpdatedAt:               organization.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m organizationModel) toEntity() entities.Organization {
	return entities.Organization{
		OrganizationID:          m.OrganizationID,
		Name:                    m.Name,
		Symbol:                  m.Symbol,
		Owner:                   m.Owner,
		LedgerID:                m.LedgerID,
		Quorum:                  m.Quorum,
		AcceptExternalProposals: m.AcceptExternalProposals,
		ProposalCount:           m.ProposalCount,
		PolicyVersion:           m.PolicyVersion,
		CreatedAt:               m.CreatedAt.UTC(),
		UpdatedAt:               m.UpdatedAt.UTC(),
	}
}

func (m organizationModel) toEntry() entities.OrganizationEntry {
	return entities.OrganizationEntry{
		Sequence:       m.Sequence,
		OrganizationID: m.OrganizationID,
		LedgerID:       m.LedgerID,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

type proposalModel struct {
	OrganizationID          string     `gorm:"column:organization_id;primaryKey"`
	ProposalID              uint64     `gorm:"column:proposal_id;primaryKey;autoIncrement:false"`
	Description             string     `gorm:"column:description"`
	Proposer                string     `gorm:"column:proposer"`
	VotesFor                string     `gorm:"column:votes_for;type:text"`
	VotesAgainst            string     `gorm:"column:votes_against;type:text"`
	Executed                bool       `gorm:"column:executed"`
	Passed                  bool       `gorm:"column:passed"`
	EndPosition             uint64     `gorm:"column:end_position"`
	Kind                    string     `gorm:"column:kind"`
	Recipient               string     `gorm:"column:recipient"`
	Amount                  string     `gorm:"column:amount;type:text"`
	NewQuorum               uint8      `gorm:"column:new_quorum"`
	AcceptExternalProposals bool       `gorm:"column:accept_external_proposals"`
	CreatedAt               time.Time  `gorm:"column:created_at"`
	ExecutedAt              *time.Time `gorm:"column:executed_at"`
}

func (proposalModel) TableName() string {
	return "governance_proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	row := proposalModel{
		OrganizationID: strings.TrimSpace(proposal.OrganizationID),
		ProposalID:     proposal.ProposalID,
		Description:    proposal.Description,
		Proposer:       proposal.Proposer,
		VotesFor:       entities.ZeroIfNil(proposal.VotesFor).String(),
		VotesAgainst:   entities.ZeroIfNil(proposal.VotesAgainst).String(),
		Executed:       proposal.Executed,
		Passed:         proposal.Passed,
		EndPosition:    proposal.EndPosition,
		Kind:           string(proposal.Kind),
		Amount:         "0",
		CreatedAt:      proposal.CreatedAt.UTC(),
	}
	switch effect := proposal.Effect.(type) {
	case entities.WithdrawFundsEffect:
		row.Recipient = effect.Recipient
		row.Amount = entities.ZeroIfNil(effect.Amount).String()
	case entities.ChangeSettingsEffect:
		row.NewQuorum = effect.NewQuorum
		row.AcceptExternalProposals = effect.AcceptExternalProposals
	}
	if proposal.ExecutedAt != nil {
		executedAt := proposal.ExecutedAt.UTC()
		row.ExecutedAt = &executedAt
	}
	return row
}

func (m proposalModel) toEntity() entities.Proposal {
	var effect entities.Effect
	switch entities.ProposalKind(m.Kind) {
	case entities.ProposalKindWithdrawFunds:
		effect = entities.WithdrawFundsEffect{Recipient: m.Recipient, Amount: parseAmount(m.Amount)}
	case entities.ProposalKindChangeSettings:
		effect = entities.ChangeSettingsEffect{NewQuorum: m.NewQuorum, AcceptExternalProposals: m.AcceptExternalProposals}
	default:
		effect = entities.GenericEffect{}
	}
	proposal := entities.Proposal{
		OrganizationID: m.OrganizationID,
		ProposalID:     m.ProposalID,
		Description:    m.Description,
		Proposer:       m.Proposer,
		VotesFor:       parseAmount(m.VotesFor),
		VotesAgainst:   parseAmount(m.VotesAgainst),
		Executed:       m.Executed,
		Passed:         m.Passed,
		EndPosition:    m.EndPosition,
		Kind:           effect.Kind(),
		Effect:         effect,
		CreatedAt:      m.CreatedAt.UTC(),
	}
	if m.ExecutedAt != nil {
		executedAt := m.ExecutedAt.UTC()
		proposal.ExecutedAt = &executedAt
	}
	return proposal
}

type ballotModel struct {
	OrganizationID string    `gorm:"column:organization_id;primaryKey"`
	ProposalID     uint64    `gorm:"column:proposal_id;primaryKey;autoIncrement:false"`
	Voter          string    `gorm:"column:voter;primaryKey"`
	InFavor        bool      `gorm:"column:in_favor"`
	Weight         string    `gorm:"column:weight;type:text"`
	Position       uint64    `gorm:"column:position"`
	CastAt         time.Time `gorm:"column:cast_at"`
}

func (ballotModel) TableName() string {
	return "governance_ballots"
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		OrganizationID: m.OrganizationID,
		ProposalID:     m.ProposalID,
		Voter:          m.Voter,
		InFavor:        m.InFavor,
		Weight:         parseAmount(m.Weight),
		Position:       m.Position,
		CastAt:         m.CastAt.UTC(),
	}
}

type treasuryModel struct {
	OrganizationID string    `gorm:"column:organization_id;primaryKey"`
	Balance        string    `gorm:"column:balance;type:text"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (treasuryModel) TableName() string {
	return "governance_treasuries"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ResourceID  string    `gorm:"column:resource_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "governance_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	Seq          uint64     `gorm:"column:seq;autoIncrement;uniqueIndex"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

type payoutModel struct {
	PayoutID       string    `gorm:"column:payout_id;primaryKey"`
	OrganizationID string    `gorm:"column:organization_id;index"`
	Recipient      string    `gorm:"column:recipient;index"`
	Amount         string    `gorm:"column:amount;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (payoutModel) TableName() string {
	return "governance_payouts"
}

type blockedRecipientModel struct {
	Recipient string    `gorm:"column:recipient;primaryKey"`
	Reason    string    `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (blockedRecipientModel) TableName() string {
	return "governance_blocked_recipients"
}

// Models lists every table this adapter owns, in migration order.
func Models() []any {
	return []any{
		&organizationModel{},
		&proposalModel{},
		&ballotModel{},
		&treasuryModel{},
		&idempotencyModel{},
		&outboxModel{},
		&payoutModel{},
		&blockedRecipientModel{},
	}
}

func parseAmount(raw string) *big.Int {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}
