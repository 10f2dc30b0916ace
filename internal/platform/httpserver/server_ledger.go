package httpserver

import (
	"errors"
	"net/http"

	ledgererrors "agora/contexts/governance/share-ledger/domain/errors"
	ledgerhttp "agora/contexts/governance/share-ledger/transport/http"
)

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{Code: code, Message: message})
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrLedgerNotFound):
		writeLedgerError(w, http.StatusNotFound, "ledger_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrInsufficientBalance):
		writeLedgerError(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidAmount),
		errors.Is(err, ledgererrors.ErrInvalidHolder),
		errors.Is(err, ledgererrors.ErrInvalidLedger):
		writeLedgerError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ledgererrors.ErrConflict):
		writeLedgerError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r) {
		return
	}
	resp, err := s.shares.Handler.GetLedgerHandler(r.Context(), r.PathValue("ledger_id"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r) {
		return
	}
	resp, err := s.shares.Handler.HoldingsHandler(r.Context(), r.PathValue("ledger_id"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r) {
		return
	}
	resp, err := s.shares.Handler.BalanceHandler(r.Context(), r.PathValue("ledger_id"), r.PathValue("holder"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleShareTransfer moves shares out of the caller's own balance. Voting
// weight is read live, so a transfer changes the weight of later ballots.
func (s *Server) handleShareTransfer(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r) || !requireRequestID(w, r) {
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req ledgerhttp.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.shares.Handler.TransferHandler(r.Context(), r.PathValue("ledger_id"), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
