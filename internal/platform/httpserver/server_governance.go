package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	governanceerrors "agora/contexts/governance/proposal-engine/domain/errors"
	governancehttp "agora/contexts/governance/proposal-engine/transport/http"
)

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{Code: code, Message: message})
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governanceerrors.ErrNotAuthorized):
		writeGovernanceError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, governanceerrors.ErrNotAMember):
		writeGovernanceError(w, http.StatusForbidden, "not_a_member", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyVoted):
		writeGovernanceError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyExecuted):
		writeGovernanceError(w, http.StatusConflict, "already_executed", err.Error())
	case errors.Is(err, governanceerrors.ErrExpired):
		writeGovernanceError(w, http.StatusConflict, "expired", err.Error())
	case errors.Is(err, governanceerrors.ErrIdempotencyConflict):
		writeGovernanceError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, governanceerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidDuration):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidQuorum):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_quorum", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidAmount):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidProposal):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_proposal", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidOrganization):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_organization", err.Error())
	case errors.Is(err, governanceerrors.ErrQuorumNotMet):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "quorum_not_met", err.Error())
	case errors.Is(err, governanceerrors.ErrInsufficientTreasuryFunds):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "insufficient_treasury_funds", err.Error())
	case errors.Is(err, governanceerrors.ErrTransferFailed):
		writeGovernanceError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	case errors.Is(err, governanceerrors.ErrOrganizationNotFound):
		writeGovernanceError(w, http.StatusNotFound, "organization_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrProposalNotFound):
		writeGovernanceError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrLedgerNotFound):
		writeGovernanceError(w, http.StatusNotFound, "ledger_not_found", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireGovernanceHeaders(w http.ResponseWriter, r *http.Request) bool {
	return requireAuthorization(w, r) && requireRequestID(w, r)
}

func proposalIDFromPath(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	proposalID, err := strconv.ParseUint(strings.TrimSpace(r.PathValue("proposal_id")), 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be an unsigned integer")
		return 0, false
	}
	return proposalID, true
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	deployer, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.CreateOrganizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CreateOrganizationHandler(r.Context(), deployer, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	resp, err := s.governance.Handler.ListOrganizationsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	resp, err := s.governance.Handler.GetOrganizationHandler(r.Context(), r.PathValue("organization_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.CreateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CreateProposalHandler(
		r.Context(),
		r.PathValue("organization_id"),
		caller,
		strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		req,
	)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	resp, err := s.governance.Handler.ListProposalsHandler(r.Context(), r.PathValue("organization_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	proposalID, ok := proposalIDFromPath(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetProposalHandler(r.Context(), r.PathValue("organization_id"), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := proposalIDFromPath(w, r)
	if !ok {
		return
	}
	var req governancehttp.VoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.VoteHandler(r.Context(), r.PathValue("organization_id"), proposalID, caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBallots(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	proposalID, ok := proposalIDFromPath(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ListBallotsHandler(r.Context(), r.PathValue("organization_id"), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := proposalIDFromPath(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ExecuteProposalHandler(r.Context(), r.PathValue("organization_id"), proposalID, caller)
	if err != nil {
		if errors.Is(err, governanceerrors.ErrTransferFailed) {
			s.logger.Warn("proposal executed but payout failed",
				"event", "http_governance_transfer_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"organization_id", r.PathValue("organization_id"),
				"proposal_id", resp.ProposalID,
			)
		}
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	from, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.DepositHandler(r.Context(), r.PathValue("organization_id"), from, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	if !requireGovernanceHeaders(w, r) {
		return
	}
	resp, err := s.governance.Handler.TreasuryHandler(r.Context(), r.PathValue("organization_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
