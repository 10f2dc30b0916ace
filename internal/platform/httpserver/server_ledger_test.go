package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	governancehttp "agora/contexts/governance/proposal-engine/transport/http"
	ledgerhttp "agora/contexts/governance/share-ledger/transport/http"

	proposalengine "agora/contexts/governance/proposal-engine"
	shareledger "agora/contexts/governance/share-ledger"
)

func ledgerPath(ledgerID string) string {
	return "/api/shares/v1/ledgers/" + ledgerID
}

func TestLedgerRoutesRequireAuthorization(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, ledgerPath("ledger-1"), nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestLedgerReportsSupplyAndHoldings(t *testing.T) {
	server := newTestServer()
	org := createOrganization(t, server, 51, testMember1, testMember2)
	ledgerID := org.Organization.LedgerID

	rr := call(t, server, http.MethodGet, ledgerPath(ledgerID), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var ledger ledgerhttp.LedgerResponse
	decodeBody(t, rr, &ledger)
	if ledger.TotalSupply != "200" || ledger.Symbol != "TDAO" {
		t.Fatalf("unexpected ledger: %#v", ledger)
	}

	rr = call(t, server, http.MethodGet, ledgerPath(ledgerID)+"/holdings", "", nil)
	var holdings ledgerhttp.HoldingsResponse
	decodeBody(t, rr, &holdings)
	if len(holdings.Holdings) != 2 {
		t.Fatalf("expected two holders, got %#v", holdings.Holdings)
	}

	rr = call(t, server, http.MethodGet, ledgerPath(ledgerID)+"/balances/"+testOutsider, "", nil)
	var balance ledgerhttp.BalanceResponse
	decodeBody(t, rr, &balance)
	if balance.Balance != "0" {
		t.Fatalf("expected unknown holder to read 0, got %s", balance.Balance)
	}

	rr = call(t, server, http.MethodGet, ledgerPath("ledger-missing"), "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

// Weight is read at vote time, so shares moved after a ballot count again
// for the receiving holder.
func TestLedgerTransferChangesLaterVotingWeight(t *testing.T) {
	server := newTestServer()
	org := createOrganization(t, server, 51, testMember1, testMember2)
	organizationID := org.Organization.OrganizationID
	ledgerID := org.Organization.LedgerID

	proposal := createProposal(t, server, organizationID, testMember1, governancehttp.CreateProposalRequest{
		Description: "Live weight",
		Duration:    100,
	})
	vote(t, server, organizationID, proposal.ProposalID, testMember1, true)

	rr := call(t, server, http.MethodPost, ledgerPath(ledgerID)+"/transfers", testMember1, ledgerhttp.TransferRequest{
		To:     testOutsider,
		Amount: "100",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var transfer ledgerhttp.TransferResponse
	decodeBody(t, rr, &transfer)
	if transfer.FromBalance != "0" {
		t.Fatalf("expected sender drained, got %s", transfer.FromBalance)
	}

	vote(t, server, organizationID, proposal.ProposalID, testOutsider, true)
	rr = call(t, server, http.MethodGet, proposalPath(organizationID, proposal.ProposalID), "", nil)
	var view governancehttp.ProposalResponse
	decodeBody(t, rr, &view)
	if view.VotesFor != "200" {
		t.Fatalf("expected 200 votes for after re-used weight, got %s", view.VotesFor)
	}
}

func TestLedgerTransferErrors(t *testing.T) {
	server := newTestServer()
	org := createOrganization(t, server, 51, testMember1)
	ledgerID := org.Organization.LedgerID

	rr := call(t, server, http.MethodPost, ledgerPath(ledgerID)+"/transfers", testMember1, ledgerhttp.TransferRequest{
		To:     testOutsider,
		Amount: "201",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = call(t, server, http.MethodPost, ledgerPath(ledgerID)+"/transfers", testMember1, ledgerhttp.TransferRequest{
		To:     testOutsider,
		Amount: "ten",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestLedgerTransfersDisabledByOption(t *testing.T) {
	shares := shareledger.NewInMemoryModule(nil, nil)
	governance := proposalengine.NewInMemoryModule(shares, shares, nil, nil)
	server := New(governance, shares, Options{}, nil, "")

	rr := call(t, server, http.MethodPost, ledgerPath("ledger-1")+"/transfers", testMember1, ledgerhttp.TransferRequest{To: testOutsider, Amount: "1"})
	if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected transfer route to be unregistered, got %d", rr.Code)
	}
}
