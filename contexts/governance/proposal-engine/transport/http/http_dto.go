package http

// Amounts and weights travel as base-10 strings so arbitrary-precision
// values survive JSON round trips.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateOrganizationRequest struct {
	Name                    string   `json:"name"`
	Symbol                  string   `json:"symbol"`
	Members                 []string `json:"members"`
	Quorum                  uint64   `json:"quorum"`
	InitialSupply           string   `json:"initial_supply"`
	ExistingLedgerID        string   `json:"existing_ledger_id,omitempty"`
	Authority               string   `json:"authority"`
	AcceptExternalProposals bool     `json:"accept_external_proposals"`
}

type CreateOrganizationResponse struct {
	Organization   OrganizationResponse `json:"organization"`
	Sequence       uint64               `json:"sequence"`
	SharePerMember string               `json:"share_per_member"`
	Remainder      string               `json:"remainder"`
}

type OrganizationResponse struct {
	OrganizationID          string `json:"organization_id"`
	Name                    string `json:"name"`
	Symbol                  string `json:"symbol"`
	Owner                   string `json:"owner"`
	LedgerID                string `json:"ledger_id"`
	Quorum                  uint8  `json:"quorum"`
	AcceptExternalProposals bool   `json:"accept_external_proposals"`
	ProposalCount           uint64 `json:"proposal_count"`
	PolicyVersion           uint64 `json:"policy_version"`
	TotalSupply             string `json:"total_supply,omitempty"`
	QuorumThreshold         string `json:"quorum_threshold,omitempty"`
	TreasuryBalance         string `json:"treasury_balance,omitempty"`
	CreatedAt               string `json:"created_at"`
	UpdatedAt               string `json:"updated_at"`
}

type OrganizationEntryResponse struct {
	Sequence       uint64 `json:"sequence"`
	OrganizationID string `json:"organization_id"`
	LedgerID       string `json:"ledger_id"`
	CreatedAt      string `json:"created_at"`
}

type ListOrganizationsResponse struct {
	Items []OrganizationEntryResponse `json:"items"`
}

type CreateProposalRequest struct {
	Description                   string `json:"description"`
	Duration                      uint64 `json:"duration"`
	Recipient                     string `json:"recipient,omitempty"`
	Amount                        string `json:"amount,omitempty"`
	NewQuorum                     uint64 `json:"new_quorum,omitempty"`
	ChangeAcceptExternalProposals bool   `json:"change_accept_external_proposals,omitempty"`
}

type ProposalResponse struct {
	OrganizationID  string  `json:"organization_id"`
	ProposalID      uint64  `json:"proposal_id"`
	Description     string  `json:"description"`
	Proposer        string  `json:"proposer"`
	Kind            string  `json:"kind"`
	Recipient       string  `json:"recipient,omitempty"`
	Amount          string  `json:"amount,omitempty"`
	NewQuorum       *uint8  `json:"new_quorum,omitempty"`
	AcceptExternal  *bool   `json:"accept_external_proposals,omitempty"`
	VotesFor        string  `json:"votes_for"`
	VotesAgainst    string  `json:"votes_against"`
	Executed        bool    `json:"executed"`
	Passed          bool    `json:"passed"`
	EndPosition     uint64  `json:"end_position"`
	CurrentPosition *uint64 `json:"current_position,omitempty"`
	VotingOpen      *bool   `json:"voting_open,omitempty"`
	CreatedAt       string  `json:"created_at"`
	ExecutedAt      string  `json:"executed_at,omitempty"`
	Replayed        bool    `json:"replayed,omitempty"`
}

type ListProposalsResponse struct {
	Items []ProposalResponse `json:"items"`
}

type VoteRequest struct {
	InFavor bool `json:"in_favor"`
}

type BallotResponse struct {
	OrganizationID string `json:"organization_id"`
	ProposalID     uint64 `json:"proposal_id"`
	Voter          string `json:"voter"`
	InFavor        bool   `json:"in_favor"`
	Weight         string `json:"weight"`
	Position       uint64 `json:"position"`
	CastAt         string `json:"cast_at"`
}

type ListBallotsResponse struct {
	Items []BallotResponse `json:"items"`
}

type ExecuteProposalResponse struct {
	ProposalID   uint64 `json:"proposal_id"`
	Passed       bool   `json:"passed"`
	VotesFor     string `json:"votes_for"`
	VotesAgainst string `json:"votes_against"`
	Executed     bool   `json:"executed"`
}

type DepositRequest struct {
	Amount string `json:"amount"`
}

type TreasuryResponse struct {
	OrganizationID string `json:"organization_id"`
	Balance        string `json:"balance"`
}
