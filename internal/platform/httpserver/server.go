package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	authorizationgateway "quill/contexts/transfer-agent/authorization-gateway"
	positionledger "quill/contexts/transfer-agent/position-ledger"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "quill/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	ledger  positionledger.Module
	gateway authorizationgateway.Module
}

func New(
	ledger positionledger.Module,
	gateway authorizationgateway.Module,
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
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		ledger:  ledger,
		gateway: gateway,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/ledger/v1/issue", s.handleIssue)
	s.mux.HandleFunc("POST /api/ledger/v1/issue-bulk", s.handleIssueBulk)
	s.mux.HandleFunc("POST /api/ledger/v1/burn", s.handleBurnAll)
	s.mux.HandleFunc("POST /api/ledger/v1/burn-by-class", s.handleBurnByClass)
	s.mux.HandleFunc("POST /api/ledger/v1/burn-exact", s.handleBurnExact)
	s.mux.HandleFunc("POST /api/ledger/v1/burn-bulk", s.handleBurnBulk)
	s.mux.HandleFunc("POST /api/ledger/v1/move-exact", s.handleMoveExact)
	s.mux.HandleFunc("POST /api/ledger/v1/move-bulk", s.handleMoveBulk)
	s.mux.HandleFunc("POST /api/ledger/v1/forced-move", s.handleForcedMove)
	s.mux.HandleFunc("POST /api/ledger/v1/compliance/frozen", s.handleSetFrozen)
	s.mux.HandleFunc("POST /api/ledger/v1/compliance/broker", s.handleSetBrokerApproved)
	s.mux.HandleFunc("POST /api/ledger/v1/fees/policy", s.handleSetFeePolicy)
	s.mux.HandleFunc("POST /api/ledger/v1/fees/asset", s.handleSetFeeAsset)
	s.mux.HandleFunc("POST /api/ledger/v1/fees/withdraw", s.handleWithdrawFees)
	s.mux.HandleFunc("POST /api/ledger/v1/fees/deposit", s.handleDepositFeeFunds)
	s.mux.HandleFunc("POST /api/ledger/v1/recover-asset", s.handleRecoverAsset)
	s.mux.HandleFunc("POST /api/ledger/v1/requests", s.handleCreateTransferRequest)
	s.mux.HandleFunc("POST /api/ledger/v1/requests/{request_id}/process", s.handleProcessRequest)
	s.mux.HandleFunc("POST /api/ledger/v1/requests/{request_id}/reject", s.handleRejectRequest)
	s.mux.HandleFunc("POST /api/ledger/v1/requests/{request_id}/status", s.handleSetRequestStatus)
	s.mux.HandleFunc("POST /api/ledger/v1/registrar", s.handleSetRegistrar)
	s.mux.HandleFunc("POST /api/ledger/v1/issuer", s.handleChangeIssuer)
	s.mux.HandleFunc("POST /api/ledger/v1/transfer", s.handleLegacyTransfer)

	s.mux.HandleFunc("GET /api/ledger/v1/holders/{holder}/balance", s.handleBalance)
	s.mux.HandleFunc("GET /api/ledger/v1/holders/{holder}/batches", s.handleBatches)
	s.mux.HandleFunc("GET /api/ledger/v1/supply", s.handleSupply)
	s.mux.HandleFunc("GET /api/ledger/v1/fees/quote", s.handleQuoteFee)
	s.mux.HandleFunc("GET /api/ledger/v1/compliance/{address}", s.handleCompliance)
	s.mux.HandleFunc("GET /api/ledger/v1/registrar", s.handleRegistrar)
	s.mux.HandleFunc("GET /api/ledger/v1/requests/{request_id}", s.handleGetRequest)
	s.mux.HandleFunc("GET /api/ledger/v1/escrow", s.handleEscrow)
	s.mux.HandleFunc("GET /api/ledger/v1/fees/{asset}/accounts/{address}", s.handleFeeBalance)

	s.mux.HandleFunc("POST /api/gateway/v1/operations", s.handlePropose)
	s.mux.HandleFunc("POST /api/gateway/v1/operations/{operation_id}/ratify", s.handleRatify)
	s.mux.HandleFunc("POST /api/gateway/v1/operations/{operation_id}/revoke", s.handleRevoke)
	s.mux.HandleFunc("POST /api/gateway/v1/operations/{operation_id}/execute", s.handleExecute)
	s.mux.HandleFunc("GET /api/gateway/v1/operations/{operation_id}", s.handleGetOperation)
	s.mux.HandleFunc("GET /api/gateway/v1/operations/{operation_id}/expired", s.handleExpiry)
	s.mux.HandleFunc("GET /api/gateway/v1/operations/{operation_id}/confirmations/{member}", s.handleConfirmation)
	s.mux.HandleFunc("GET /api/gateway/v1/roster", s.handleRoster)
	s.mux.HandleFunc("POST /api/gateway/v1/delay-check", s.handleDelayCheck)
	s.mux.HandleFunc("GET /api/gateway/v1/allowlist", s.handleAllowList)
	s.mux.HandleFunc("GET /api/gateway/v1/allowlist/{destination}", s.handleAllowed)
}

// resolveCaller reads the pre-authenticated identity. Authentication itself
// happens upstream; an empty header is rejected before any handler runs.
func resolveCaller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Caller-Id"))
}

func parseID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
