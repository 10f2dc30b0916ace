package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	proposalengine "agora/contexts/governance/proposal-engine"
	shareledger "agora/contexts/governance/share-ledger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "agora/internal/platform/httpserver/docs"
)

type Options struct {
	EnableShareTransfers bool
	EnableSwagger        bool
	// Gatherer backs /metrics; nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
}

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	http       *http.Server
	options    Options
	governance proposalengine.Module
	shares     shareledger.Module
}

func New(
	governance proposalengine.Module,
	shares shareledger.Module,
	options Options,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		options:    options,
		governance: governance,
		shares:     shares,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	if s.options.EnableSwagger {
		s.mux.Handle("/swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}
	if s.options.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.options.Gatherer, promhttp.HandlerOpts{}))
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("POST /api/governance/v1/organizations", s.handleCreateOrganization)
	s.mux.HandleFunc("GET /api/governance/v1/organizations", s.handleListOrganizations)
	s.mux.HandleFunc("GET /api/governance/v1/organizations/{organization_id}", s.handleGetOrganization)
	s.mux.HandleFunc("POST /api/governance/v1/organizations/{organization_id}/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /api/governance/v1/organizations/{organization_id}/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /api/governance/v1/organizations/{organization_id}/proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("POST /api/governance/v1/organizations/{organization_id}/proposals/{proposal_id}/votes", s.handleVote)
	s.mux.HandleFunc("GET /api/governance/v1/organizations/{organization_id}/proposals/{proposal_id}/votes", s.handleListBallots)
	s.mux.HandleFunc("POST /api/governance/v1/organizations/{organization_id}/proposals/{proposal_id}/execute", s.handleExecuteProposal)
	s.mux.HandleFunc("POST /api/governance/v1/organizations/{organization_id}/treasury/deposits", s.handleDeposit)
	s.mux.HandleFunc("GET /api/governance/v1/organizations/{organization_id}/treasury", s.handleTreasury)

	s.mux.HandleFunc("GET /api/shares/v1/ledgers/{ledger_id}", s.handleGetLedger)
	s.mux.HandleFunc("GET /api/shares/v1/ledgers/{ledger_id}/holdings", s.handleHoldings)
	s.mux.HandleFunc("GET /api/shares/v1/ledgers/{ledger_id}/balances/{holder}", s.handleBalance)
	if s.options.EnableShareTransfers {
		s.mux.HandleFunc("POST /api/shares/v1/ledgers/{ledger_id}/transfers", s.handleShareTransfer)
	}
}

func requireAuthorization(w http.ResponseWriter, r *http.Request) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	return true
}

func requireRequestID(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-Request-Id")) == "" {
		writeError(w, http.StatusBadRequest, "missing_request_id", "X-Request-Id header is required")
		return false
	}
	return true
}

// requireCaller returns the X-User-Id identity that mutating routes act as.
func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
