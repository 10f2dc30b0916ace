// Package shareledger owns the fungible share books whose balances are
// voting weight. Organizations read balances and total supply live; nothing
// here knows about proposals.
package shareledger
