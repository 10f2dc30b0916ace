package errors

import "errors"

var (
	ErrLedgerNotFound      = errors.New("share ledger not found")
	ErrInsufficientBalance = errors.New("insufficient share balance")
	ErrInvalidAmount       = errors.New("share amount must not be negative")
	ErrInvalidHolder       = errors.New("invalid share holder")
	ErrInvalidLedger       = errors.New("invalid ledger input")
	ErrConflict            = errors.New("share ledger state conflict")
)
