package commands

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"

	"github.com/google/go-cmp/cmp"
)

func TestCreateProposalAllocatesSequentialIDs(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)

	for want := uint64(1); want <= 3; want++ {
		proposal := h.propose(t, CreateProposalCommand{
			OrganizationID: org.OrganizationID,
			Caller:         member1,
			Description:    "proposal",
		})
		if proposal.ProposalID != want {
			t.Fatalf("expected proposal id %d, got %d", want, proposal.ProposalID)
		}
	}
	stored, err := h.store.GetOrganization(context.Background(), org.OrganizationID)
	if err != nil {
		t.Fatalf("get organization: %v", err)
	}
	if stored.ProposalCount != 3 {
		t.Fatalf("expected proposal count 3, got %d", stored.ProposalCount)
	}
}

func TestCreateProposalRecordsEndPositionAndEvent(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	h.store.SetPosition(40)

	proposal := h.propose(t, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Description:    "  verbatim description  ",
		Duration:       25,
	})
	if proposal.EndPosition != 65 {
		t.Fatalf("expected end position 65, got %d", proposal.EndPosition)
	}
	if proposal.Description != "  verbatim description  " {
		t.Fatalf("expected description stored verbatim, got %q", proposal.Description)
	}
	if entities.ZeroIfNil(proposal.VotesFor).Sign() != 0 || entities.ZeroIfNil(proposal.VotesAgainst).Sign() != 0 {
		t.Fatalf("expected zero tallies on creation")
	}

	events := pendingEvents(t, h.store, eventProposalCreated)
	if len(events) != 1 {
		t.Fatalf("expected one proposal.created event, got %d", len(events))
	}
	if events[0]["description"] != "  verbatim description  " || events[0]["proposal_id"] != float64(1) {
		t.Fatalf("unexpected proposal.created payload: %#v", events[0])
	}
}

func TestCreateProposalAuthorization(t *testing.T) {
	h := newHarness(t)
	closed := h.newOrganization(t, 51, false, member1, member2)
	open := h.newOrganization(t, 51, true, member1, member2)

	_, err := h.proposals.CreateProposal(context.Background(), CreateProposalCommand{
		OrganizationID: closed.OrganizationID,
		Caller:         outsider,
		Description:    "external",
		Duration:       10,
	})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	proposal := h.propose(t, CreateProposalCommand{
		OrganizationID: open.OrganizationID,
		Caller:         outsider,
		Description:    "external",
	})
	if proposal.Proposer != outsider {
		t.Fatalf("expected outsider as proposer, got %s", proposal.Proposer)
	}
}

func TestCreateProposalValidation(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()

	_, err := h.proposals.CreateProposal(ctx, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Duration:       0,
	})
	if !errors.Is(err, domainerrors.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	// Authorization is evaluated before input validation.
	_, err = h.proposals.CreateProposal(ctx, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         outsider,
		Duration:       0,
	})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized before duration check, got %v", err)
	}

	_, err = h.proposals.CreateProposal(ctx, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Duration:       10,
		NewQuorum:      101,
	})
	if !errors.Is(err, domainerrors.ErrInvalidQuorum) {
		t.Fatalf("expected ErrInvalidQuorum, got %v", err)
	}

	_, err = h.proposals.CreateProposal(ctx, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Duration:       10,
		NewQuorum:      256,
	})
	if !errors.Is(err, domainerrors.ErrInvalidQuorum) {
		t.Fatalf("expected ErrInvalidQuorum for a quorum past uint8, got %v", err)
	}

	h.store.SetPosition(40)
	_, err = h.proposals.CreateProposal(ctx, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Duration:       math.MaxInt64 - 39,
	})
	if !errors.Is(err, domainerrors.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration past the signed end position range, got %v", err)
	}
	_, err = h.proposals.CreateProposal(ctx, CreateProposalCommand{
		OrganizationID: "missing",
		Caller:         member1,
		Duration:       10,
	})
	if !errors.Is(err, domainerrors.ErrOrganizationNotFound) {
		t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
	}

	stored, err := h.store.GetOrganization(ctx, org.OrganizationID)
	if err != nil {
		t.Fatalf("get organization: %v", err)
	}
	if stored.ProposalCount != 0 {
		t.Fatalf("expected failed creates to leave proposal count untouched, got %d", stored.ProposalCount)
	}
}

func TestCreateProposalKindPrecedence(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)

	cases := []struct {
		name string
		cmd  CreateProposalCommand
		want entities.ProposalKind
	}{
		{
			name: "withdrawal wins over settings change",
			cmd:  CreateProposalCommand{Recipient: outsider, Amount: big.NewInt(5), NewQuorum: 60, ChangeAcceptExternalProposals: true},
			want: entities.ProposalKindWithdrawFunds,
		},
		{
			name: "withdrawal ignores out-of-range quorum",
			cmd:  CreateProposalCommand{Recipient: outsider, Amount: big.NewInt(5), NewQuorum: 150},
			want: entities.ProposalKindWithdrawFunds,
		},
		{
			name: "new quorum only",
			cmd:  CreateProposalCommand{NewQuorum: 60},
			want: entities.ProposalKindChangeSettings,
		},
		{
			name: "flag change only",
			cmd:  CreateProposalCommand{ChangeAcceptExternalProposals: true},
			want: entities.ProposalKindChangeSettings,
		},
		{
			name: "zero amount falls through to settings",
			cmd:  CreateProposalCommand{Recipient: outsider, Amount: big.NewInt(0), NewQuorum: 10},
			want: entities.ProposalKindChangeSettings,
		},
		{
			name: "zero recipient with amount is generic",
			cmd:  CreateProposalCommand{Recipient: "0x0000000000000000000000000000000000000000", Amount: big.NewInt(5)},
			want: entities.ProposalKindGeneric,
		},
		{
			name: "nothing requested",
			cmd:  CreateProposalCommand{},
			want: entities.ProposalKindGeneric,
		},
	}
	for _, tc := range cases {
		tc.cmd.OrganizationID = org.OrganizationID
		tc.cmd.Caller = member1
		tc.cmd.Description = tc.name
		proposal := h.propose(t, tc.cmd)
		if proposal.Kind != tc.want {
			t.Fatalf("%s: expected kind %s, got %s", tc.name, tc.want, proposal.Kind)
		}
		if proposal.Effect.Kind() != tc.want {
			t.Fatalf("%s: effect kind %s disagrees with proposal kind", tc.name, proposal.Effect.Kind())
		}
	}
}

func TestCreateProposalIdempotencyReplay(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()
	cmd := CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		IdempotencyKey: "idem-1",
		Description:    "fund the grant",
		Duration:       10,
	}

	first, err := h.proposals.CreateProposal(ctx, cmd)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := h.proposals.CreateProposal(ctx, cmd)
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if !second.Replayed || first.Proposal.ProposalID != second.Proposal.ProposalID {
		t.Fatalf("expected replayed proposal id %d, got %d (replayed=%v)", first.Proposal.ProposalID, second.Proposal.ProposalID, second.Replayed)
	}

	cmd.Description = "something else"
	if _, err := h.proposals.CreateProposal(ctx, cmd); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
	if got := len(pendingEvents(t, h.store, eventProposalCreated)); got != 1 {
		t.Fatalf("expected one proposal.created event, got %d", got)
	}
}

func TestVoteRejectsDoubleVoting(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})

	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	for _, inFavor := range []bool{true, false} {
		_, err := h.proposals.Vote(context.Background(), VoteCommand{
			OrganizationID: org.OrganizationID,
			ProposalID:     proposal.ProposalID,
			Caller:         member1,
			InFavor:        inFavor,
		})
		if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
			t.Fatalf("expected ErrAlreadyVoted, got %v", err)
		}
	}

	stored, err := h.store.GetProposal(context.Background(), org.OrganizationID, proposal.ProposalID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if stored.VotesFor.Cmp(big.NewInt(100)) != 0 || stored.VotesAgainst.Sign() != 0 {
		t.Fatalf("expected tallies 100/0, got %s/%s", stored.VotesFor, stored.VotesAgainst)
	}
}

func TestVoteRecordsBallotAndEvent(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})
	h.store.SetPosition(7)

	ballot, err := h.proposals.Vote(context.Background(), VoteCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         "0x2222222222222222222222222222222222222222",
		InFavor:        false,
	})
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	want := entities.Ballot{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Voter:          member2,
		InFavor:        false,
		Weight:         big.NewInt(100),
		CastAt:         h.proposals.Clock.Now(),
		Position:       7,
	}
	if diff := cmp.Diff(want, ballot, cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })); diff != "" {
		t.Fatalf("ballot mismatch (-want +got):\n%s", diff)
	}

	events := pendingEvents(t, h.store, eventProposalVoted)
	if len(events) != 1 {
		t.Fatalf("expected one proposal.voted event, got %d", len(events))
	}
	if events[0]["voter"] != member2 || events[0]["in_favor"] != false || events[0]["weight"] != "100" {
		t.Fatalf("unexpected proposal.voted payload: %#v", events[0])
	}
}

func TestVoteCheckOrder(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 0, false, member1, member2, deployer)
	ctx := context.Background()
	vote := func(caller string, proposalID uint64) error {
		_, err := h.proposals.Vote(ctx, VoteCommand{
			OrganizationID: org.OrganizationID,
			ProposalID:     proposalID,
			Caller:         caller,
			InFavor:        true,
		})
		return err
	}

	executed := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1, Duration: 5})
	h.vote(t, org.OrganizationID, executed.ProposalID, member1, true)
	if _, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     executed.ProposalID,
		Caller:         member1,
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	expired := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1, Duration: 5})
	h.store.Advance(10)

	if err := vote(outsider, executed.ProposalID); !errors.Is(err, domainerrors.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember first, got %v", err)
	}
	if err := vote(member1, 99); !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
	if err := vote(member1, executed.ProposalID); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted before executed check, got %v", err)
	}
	if err := vote(member2, executed.ProposalID); !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted before expiry check, got %v", err)
	}
	if err := vote(member2, expired.ProposalID); !errors.Is(err, domainerrors.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVoteAcceptedThroughEndPosition(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1, Duration: 10})

	h.store.SetPosition(10)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)

	h.store.SetPosition(11)
	_, err := h.proposals.Vote(context.Background(), VoteCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member2,
		InFavor:        true,
	})
	if !errors.Is(err, domainerrors.ErrExpired) {
		t.Fatalf("expected ErrExpired one position past the end, got %v", err)
	}
}

func TestVoteWeightIsLiveBalance(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})

	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	if err := h.ledger.Transfer(ctx, org.LedgerID, member1, member2, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, true)

	stored, err := h.store.GetProposal(ctx, org.OrganizationID, proposal.ProposalID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if stored.VotesFor.Cmp(big.NewInt(240)) != 0 {
		t.Fatalf("expected votes for 240 from live balances, got %s", stored.VotesFor)
	}
}

func TestExecuteIsTerminal(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, true)

	first, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member2,
	})
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if !first.Passed || !first.Proposal.Executed {
		t.Fatalf("expected passed executed proposal, got %#v", first)
	}

	_, err = h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member1,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted, got %v", err)
	}

	stored, err := h.store.GetProposal(ctx, org.OrganizationID, proposal.ProposalID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if !stored.Passed || stored.VotesFor.Cmp(first.VotesFor) != 0 || stored.VotesAgainst.Cmp(first.VotesAgainst) != 0 {
		t.Fatalf("stored outcome changed after second execute: %#v", stored)
	}
	if got := len(pendingEvents(t, h.store, eventProposalExecuted)); got != 1 {
		t.Fatalf("expected exactly one proposal.executed event, got %d", got)
	}
}

func TestExecuteCheckOrder(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 100, false, member1, member2)
	ctx := context.Background()
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})
	execute := func(caller string, proposalID uint64) error {
		_, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
			OrganizationID: org.OrganizationID,
			ProposalID:     proposalID,
			Caller:         caller,
		})
		return err
	}

	if err := execute(outsider, proposal.ProposalID); !errors.Is(err, domainerrors.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
	if err := execute(member1, 42); !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
	if err := execute(member1, proposal.ProposalID); !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet, got %v", err)
	}
	stored, err := h.store.GetProposal(ctx, org.OrganizationID, proposal.ProposalID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if stored.Executed {
		t.Fatalf("expected quorum failure to leave the proposal open")
	}
}

func TestExecuteQuorumBoundary(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t)
	org := h.newOrganization(t, 50, false, member1, member2)
	exact := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})
	h.vote(t, org.OrganizationID, exact.ProposalID, member1, true)
	// 100 * 100 == 200 * 50
	if _, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     exact.ProposalID,
		Caller:         member1,
	}); err != nil {
		t.Fatalf("expected quorum met at exact equality, got %v", err)
	}

	below := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})
	if err := h.ledger.Transfer(ctx, org.LedgerID, member1, member2, big.NewInt(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	h.vote(t, org.OrganizationID, below.ProposalID, member1, true)
	_, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     below.ProposalID,
		Caller:         member1,
	})
	if !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet one unit below, got %v", err)
	}
}

func TestExecuteQuorumUsesLiveTotalSupply(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 50, false, member1, member2)
	ctx := context.Background()
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)

	if err := h.ledger.Mint(ctx, org.LedgerID, outsider, big.NewInt(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member1,
	})
	if !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected minted supply to raise the bar, got %v", err)
	}
}

func TestExecuteTieFails(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, false)

	result, err := h.proposals.ExecuteProposal(context.Background(), ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member1,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Passed {
		t.Fatalf("expected tie to fail")
	}
	if result.VotesFor.Cmp(result.VotesAgainst) != 0 || !result.Proposal.Executed {
		t.Fatalf("expected equal tallies and executed proposal, got %#v", result)
	}
	events := pendingEvents(t, h.store, eventProposalExecuted)
	if len(events) != 1 || events[0]["passed"] != false {
		t.Fatalf("expected one proposal.executed event with passed=false, got %#v", events)
	}
}

func TestExpiryBlocksVotingNotExecution(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 50, false, member1, member2)
	ctx := context.Background()
	proposal := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1, Duration: 3})
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.store.Advance(4)

	_, err := h.proposals.Vote(ctx, VoteCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member2,
		InFavor:        false,
	})
	if !errors.Is(err, domainerrors.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	result, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member2,
	})
	if err != nil {
		t.Fatalf("expected execution after expiry, got %v", err)
	}
	if !result.Passed || result.VotesFor.Cmp(big.NewInt(100)) != 0 || result.VotesAgainst.Sign() != 0 {
		t.Fatalf("expected frozen tallies 100/0 and pass, got %#v", result)
	}
}

// Two members with equal weight split their votes.
func TestScenarioTiedGenericProposal(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	proposal := h.propose(t, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Description:    "adopt the charter",
		Duration:       100,
	})
	if proposal.Kind != entities.ProposalKindGeneric {
		t.Fatalf("expected generic proposal, got %s", proposal.Kind)
	}
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, false)

	result, err := h.proposals.ExecuteProposal(context.Background(), ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member1,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Passed || result.VotesFor.Cmp(result.VotesAgainst) != 0 || !result.Proposal.Executed {
		t.Fatalf("unexpected tied outcome: %#v", result)
	}
}

// A treasury inflow is paid out by a unanimous withdrawal proposal.
func TestScenarioWithdrawFunds(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()
	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)
	halfEther, _ := new(big.Int).SetString("500000000000000000", 10)

	if _, err := h.treasury.DepositFunds(ctx, DepositFundsCommand{
		OrganizationID: org.OrganizationID,
		From:           outsider,
		Amount:         oneEther,
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	proposal := h.propose(t, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Description:    "pay contributor",
		Recipient:      outsider,
		Amount:         halfEther,
	})
	if proposal.Kind != entities.ProposalKindWithdrawFunds {
		t.Fatalf("expected withdraw proposal, got %s", proposal.Kind)
	}
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, true)

	_, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         outsider,
	})
	if !errors.Is(err, domainerrors.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember for non-member executor, got %v", err)
	}

	result, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member2,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected withdrawal to pass")
	}
	balance, err := h.store.TreasuryBalance(ctx, org.OrganizationID)
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	if balance.Cmp(halfEther) != 0 {
		t.Fatalf("expected treasury to hold exactly 0.5 ether, got %s", balance)
	}
	if h.payouts.Received(outsider).Cmp(halfEther) != 0 {
		t.Fatalf("expected recipient to receive 0.5 ether, got %s", h.payouts.Received(outsider))
	}
	withdrawn := pendingEvents(t, h.store, eventFundsWithdrawn)
	if len(withdrawn) != 1 || withdrawn[0]["amount"] != halfEther.String() || withdrawn[0]["recipient"] != outsider {
		t.Fatalf("unexpected treasury.funds_withdrawn events: %#v", withdrawn)
	}
}

// A passed settings change governs proposals executed afterwards.
func TestScenarioChangeSettings(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2, deployer)
	ctx := context.Background()

	change := h.propose(t, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		NewQuorum:      60,
	})
	// Opened before the change executes; still measured against the new quorum.
	pending := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: member1})

	for _, member := range []string{member1, member2, deployer} {
		h.vote(t, org.OrganizationID, change.ProposalID, member, true)
	}
	result, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     change.ProposalID,
		Caller:         member1,
	})
	if err != nil || !result.Passed {
		t.Fatalf("expected settings change to pass, got %#v err=%v", result, err)
	}
	stored, err := h.store.GetOrganization(ctx, org.OrganizationID)
	if err != nil {
		t.Fatalf("get organization: %v", err)
	}
	if stored.Quorum != 60 || stored.AcceptExternalProposals || stored.PolicyVersion != 1 {
		t.Fatalf("unexpected policy after change: %#v", stored.Policy())
	}

	// 170 of 300 satisfies 51% but not 60%.
	if err := h.ledger.Transfer(ctx, org.LedgerID, member2, member1, big.NewInt(70)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	h.vote(t, org.OrganizationID, pending.ProposalID, member1, true)
	_, err = h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     pending.ProposalID,
		Caller:         member1,
	})
	if !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected 60%% quorum to reject 170 of 300, got %v", err)
	}
}

func TestChangeSettingsZeroQuorumAndExternalFlag(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()

	change := h.propose(t, CreateProposalCommand{
		OrganizationID:                org.OrganizationID,
		Caller:                        member1,
		ChangeAcceptExternalProposals: true,
	})
	h.vote(t, org.OrganizationID, change.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, change.ProposalID, member2, true)
	if _, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     change.ProposalID,
		Caller:         member1,
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	stored, err := h.store.GetOrganization(ctx, org.OrganizationID)
	if err != nil {
		t.Fatalf("get organization: %v", err)
	}
	if stored.Quorum != 0 || !stored.AcceptExternalProposals {
		t.Fatalf("expected quorum overwritten to 0 and external proposals accepted, got %#v", stored.Policy())
	}

	external := h.propose(t, CreateProposalCommand{OrganizationID: org.OrganizationID, Caller: outsider})
	result, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     external.ProposalID,
		Caller:         member2,
	})
	if err != nil {
		t.Fatalf("expected zero quorum to accept zero participation, got %v", err)
	}
	if result.Passed {
		t.Fatalf("expected 0/0 tally to fail")
	}
}

func TestExecuteWithdrawInsufficientFundsLeavesProposalOpen(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()
	proposal := h.propose(t, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Recipient:      outsider,
		Amount:         big.NewInt(10),
	})
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, true)
	execute := ExecuteProposalCommand{OrganizationID: org.OrganizationID, ProposalID: proposal.ProposalID, Caller: member1}

	if _, err := h.proposals.ExecuteProposal(ctx, execute); !errors.Is(err, domainerrors.ErrInsufficientTreasuryFunds) {
		t.Fatalf("expected ErrInsufficientTreasuryFunds, got %v", err)
	}
	if got := len(pendingEvents(t, h.store, eventProposalExecuted)); got != 0 {
		t.Fatalf("expected no proposal.executed event after failure, got %d", got)
	}

	if _, err := h.treasury.DepositFunds(ctx, DepositFundsCommand{OrganizationID: org.OrganizationID, From: outsider, Amount: big.NewInt(10)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	result, err := h.proposals.ExecuteProposal(ctx, execute)
	if err != nil || !result.Passed {
		t.Fatalf("expected retry after funding to pass, got %#v err=%v", result, err)
	}
}

func TestExecuteWithdrawTransferFailedKeepsExecuted(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2)
	ctx := context.Background()
	h.payouts.RejectRecipient(outsider)
	if _, err := h.treasury.DepositFunds(ctx, DepositFundsCommand{OrganizationID: org.OrganizationID, From: member1, Amount: big.NewInt(50)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	proposal := h.propose(t, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Recipient:      outsider,
		Amount:         big.NewInt(20),
	})
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, true)
	execute := ExecuteProposalCommand{OrganizationID: org.OrganizationID, ProposalID: proposal.ProposalID, Caller: member1}

	result, err := h.proposals.ExecuteProposal(ctx, execute)
	if !errors.Is(err, domainerrors.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if !result.Proposal.Executed || !result.Passed {
		t.Fatalf("expected terminal flag to stick after rejected payout, got %#v", result)
	}

	balance, err := h.store.TreasuryBalance(ctx, org.OrganizationID)
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	if balance.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected treasury debit reverted to 50, got %s", balance)
	}
	if _, err := h.proposals.ExecuteProposal(ctx, execute); !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected no retry after transfer failure, got %v", err)
	}
	if got := len(pendingEvents(t, h.store, eventFundsWithdrawn)); got != 0 {
		t.Fatalf("expected no treasury.funds_withdrawn event, got %d", got)
	}
	executed := pendingEvents(t, h.store, eventProposalExecuted)
	if len(executed) != 1 || executed[0]["effect_applied"] != false || executed[0]["failure"] != "transfer_failed" {
		t.Fatalf("unexpected proposal.executed payload: %#v", executed)
	}
}

func TestPayoutReentryIsRejected(t *testing.T) {
	h := newHarness(t)
	org := h.newOrganization(t, 51, false, member1, member2, member3)
	ctx := context.Background()
	if _, err := h.treasury.DepositFunds(ctx, DepositFundsCommand{OrganizationID: org.OrganizationID, From: member1, Amount: big.NewInt(100)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	proposal := h.propose(t, CreateProposalCommand{
		OrganizationID: org.OrganizationID,
		Caller:         member1,
		Recipient:      member2,
		Amount:         big.NewInt(30),
	})
	h.vote(t, org.OrganizationID, proposal.ProposalID, member1, true)
	h.vote(t, org.OrganizationID, proposal.ProposalID, member2, true)

	var reentryErr, voteErr error
	h.payouts.Hook = func(ctx context.Context, organizationID string, _ string, _ *big.Int) error {
		_, reentryErr = h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
			OrganizationID: organizationID,
			ProposalID:     proposal.ProposalID,
			Caller:         member2,
		})
		_, voteErr = h.proposals.Vote(ctx, VoteCommand{
			OrganizationID: organizationID,
			ProposalID:     proposal.ProposalID,
			Caller:         member3,
			InFavor:        true,
		})
		return nil
	}

	if _, err := h.proposals.ExecuteProposal(ctx, ExecuteProposalCommand{
		OrganizationID: org.OrganizationID,
		ProposalID:     proposal.ProposalID,
		Caller:         member1,
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !errors.Is(reentryErr, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected re-entrant execute to see the terminal flag, got %v", reentryErr)
	}
	if !errors.Is(voteErr, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected re-entrant vote from an eligible member to see the terminal flag, got %v", voteErr)
	}
	if got := h.payouts.Received(member2); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected a single payout of 30, got %s", got)
	}
	balance, err := h.store.TreasuryBalance(ctx, org.OrganizationID)
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	if balance.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("expected treasury 70 after one payout, got %s", balance)
	}
}
