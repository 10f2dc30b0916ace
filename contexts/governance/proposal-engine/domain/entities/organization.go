package entities

import (
	"math/big"
	"strings"
	"time"
)

const MaxQuorum uint8 = 100

type Organization struct {
	OrganizationID          string
	Name                    string
	Symbol                  string
	Owner                   string
	LedgerID                string
	Quorum                  uint8
	AcceptExternalProposals bool
	ProposalCount           uint64
	PolicyVersion           uint64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Policy is the mutable decision-rule snapshot read at the start of every call.
type Policy struct {
	Quorum                  uint8
	AcceptExternalProposals bool
	Version                 uint64
}

func (o Organization) Policy() Policy {
	return Policy{
		Quorum:                  o.Quorum,
		AcceptExternalProposals: o.AcceptExternalProposals,
		Version:                 o.PolicyVersion,
	}
}

// ApplySettings overwrites both policy fields and bumps the policy version.
func (o *Organization) ApplySettings(effect ChangeSettingsEffect, now time.Time) {
	o.Quorum = effect.NewQuorum
	o.AcceptExternalProposals = effect.AcceptExternalProposals
	o.PolicyVersion++
	o.UpdatedAt = now
}

// QuorumMet reports whether participation*100 reaches totalSupply*quorum.
// When totalSupply*quorum is not a multiple of 100 this is one unit stricter
// than comparing against floor(totalSupply*quorum/100).
func QuorumMet(participation *big.Int, totalSupply *big.Int, quorum uint8) bool {
	left := new(big.Int).Mul(ZeroIfNil(participation), big.NewInt(100))
	right := new(big.Int).Mul(ZeroIfNil(totalSupply), big.NewInt(int64(quorum)))
	return left.Cmp(right) >= 0
}

// QuorumThreshold is the minimum participating weight that satisfies QuorumMet.
func QuorumThreshold(totalSupply *big.Int, quorum uint8) *big.Int {
	product := new(big.Int).Mul(ZeroIfNil(totalSupply), big.NewInt(int64(quorum)))
	product.Add(product, big.NewInt(99))
	return product.Quo(product, big.NewInt(100))
}

// OrganizationEntry is one row of the append-only registry list.
type OrganizationEntry struct {
	Sequence       uint64
	OrganizationID string
	LedgerID       string
	CreatedAt      time.Time
}

const zeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeIdentity trims and lower-cases hex addresses so lookups are stable.
func NormalizeIdentity(identity string) string {
	value := strings.TrimSpace(identity)
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strings.ToLower(value)
	}
	return value
}

func IsZeroIdentity(identity string) bool {
	value := NormalizeIdentity(identity)
	return value == "" || value == zeroAddress
}

func IsPositive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}

func ZeroIfNil(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return amount
}

// CopyAmount returns a detached copy so callers never alias stored tallies.
func CopyAmount(amount *big.Int) *big.Int {
	return new(big.Int).Set(ZeroIfNil(amount))
}
