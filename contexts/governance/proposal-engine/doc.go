// Package proposalengine implements membership-weighted governance inside the
// governance context.
//
// The module owns organizations, their treasuries, the registry of created
// organizations and the proposal lifecycle (create, vote, execute). Voting
// weight comes from a share ledger behind ports.ShareLedger. Every mutating
// call for one organization runs inside a serialized unit of work, and events
// leave through an outbox drained by workers.OutboxRelay.
package proposalengine
