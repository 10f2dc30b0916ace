package errors

import "errors"

var (
	// Authorization.
	ErrNotAuthorized = errors.New("caller is not authorized to create proposals")
	ErrNotAMember    = errors.New("caller is not a member")

	// State conflict.
	ErrAlreadyVoted    = errors.New("caller already voted on proposal")
	ErrAlreadyExecuted = errors.New("proposal is already executed")
	ErrExpired         = errors.New("proposal voting period has ended")

	// Validation.
	ErrInvalidDuration     = errors.New("proposal duration must be positive")
	ErrInvalidQuorum       = errors.New("quorum must be between 0 and 100")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidProposal     = errors.New("invalid proposal")
	ErrInvalidOrganization = errors.New("invalid organization input")

	// Resource.
	ErrQuorumNotMet              = errors.New("quorum not met")
	ErrInsufficientTreasuryFunds = errors.New("insufficient treasury funds")

	// External dependency.
	ErrTransferFailed = errors.New("treasury transfer failed")

	ErrOrganizationNotFound = errors.New("organization not found")
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrLedgerNotFound       = errors.New("share ledger not found")
	ErrConflict             = errors.New("governance state conflict")
	ErrIdempotencyConflict  = errors.New("idempotency key conflict")
	ErrUnsupportedEffect    = errors.New("unsupported proposal effect")
)
