package entities

import (
	"math/big"
	"strings"
	"time"
)

// Ledger is a fungible share book. Balances are voting weight for every
// organization bound to it.
type Ledger struct {
	LedgerID    string
	Name        string
	Symbol      string
	TotalSupply *big.Int
	CreatedAt   time.Time
}

type Holding struct {
	LedgerID string
	Holder   string
	Balance  *big.Int
}

// Movement is one applied mint or transfer. From is empty for mints.
type Movement struct {
	LedgerID string
	From     string
	To       string
	Amount   *big.Int
	At       time.Time
}

func (m Movement) IsMint() bool {
	return m.From == ""
}

func NormalizeHolder(holder string) string {
	return strings.ToLower(strings.TrimSpace(holder))
}

func IsZeroHolder(holder string) bool {
	holder = strings.TrimPrefix(NormalizeHolder(holder), "0x")
	return strings.Trim(holder, "0") == ""
}

func Amount(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(value)
}
