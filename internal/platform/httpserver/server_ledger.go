package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	ledgererrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	ledgerhttp "quill/contexts/transfer-agent/position-ledger/transport/http"
)

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.IssueHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIssueBulk(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.BulkIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.IssueBulkHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBurnAll(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.BurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.BurnAllHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBurnByClass(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.BurnByClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.BurnByClassHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBurnExact(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.BurnExactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.BurnExactHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBurnBulk(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.BulkIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.BurnBulkHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMoveExact(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.MoveExactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.MoveExactHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMoveBulk(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.BulkMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.MoveBulkHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForcedMove(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.ForcedMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.ForcedMoveHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetFrozen(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.SetFrozenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.SetFrozenHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetBrokerApproved(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.SetBrokerApprovedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.SetBrokerApprovedHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetFeePolicy(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.FeePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.SetFeePolicyHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetFeeAsset(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.FeeAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.SetFeeAssetHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.WithdrawFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.WithdrawFeesHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDepositFeeFunds(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.DepositFeeFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.DepositFeeFundsHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecoverAsset(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.RecoverAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.RecoverAssetHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTransferRequest(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.CreateTransferRequestHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessRequest(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	requestID, ok := parseID(r.PathValue("request_id"))
	if !ok {
		writeLedgerError(w, http.StatusBadRequest, "invalid_request_id", "request_id must be a positive integer")
		return
	}
	var req ledgerhttp.ProcessRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.ProcessRequestHandler(r.Context(), caller, requestID, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	requestID, ok := parseID(r.PathValue("request_id"))
	if !ok {
		writeLedgerError(w, http.StatusBadRequest, "invalid_request_id", "request_id must be a positive integer")
		return
	}
	var req ledgerhttp.RejectRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.RejectRequestHandler(r.Context(), caller, requestID, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetRequestStatus(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	requestID, ok := parseID(r.PathValue("request_id"))
	if !ok {
		writeLedgerError(w, http.StatusBadRequest, "invalid_request_id", "request_id must be a positive integer")
		return
	}
	var req ledgerhttp.SetRequestStatusBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.SetRequestStatusHandler(r.Context(), caller, requestID, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetRegistrar(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.SetRegistrarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.SetRegistrarHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangeIssuer(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.ChangeIssuerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.ChangeIssuerHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLegacyTransfer(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req ledgerhttp.LegacyTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.LegacyTransferHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.BalanceHandler(r.Context(), r.PathValue("holder"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.BatchesHandler(r.Context(), r.PathValue("holder"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.SupplyHandler(r.Context())
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuoteFee(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	amount, err := strconv.ParseUint(query.Get("amount"), 10, 64)
	if err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_amount", "amount must be an unsigned integer")
		return
	}
	resp, err := s.ledger.Handler.QuoteFeeHandler(r.Context(), query.Get("from"), query.Get("to"), amount)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompliance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.ComplianceHandler(r.Context(), r.PathValue("address"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistrar(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.RegistrarHandler(r.Context())
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseID(r.PathValue("request_id"))
	if !ok {
		writeLedgerError(w, http.StatusBadRequest, "invalid_request_id", "request_id must be a positive integer")
		return
	}
	resp, err := s.ledger.Handler.RequestHandler(r.Context(), requestID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEscrow(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.EscrowHandler(r.Context())
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.FeeBalanceHandler(r.Context(), r.PathValue("asset"), r.PathValue("address"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrNotRegistrar),
		errors.Is(err, ledgererrors.ErrNotHolderOrBroker):
		writeLedgerError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ledgererrors.ErrRegistrarLocked):
		writeLedgerError(w, http.StatusConflict, "registrar_locked", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidHolder),
		errors.Is(err, ledgererrors.ErrInvalidAddress),
		errors.Is(err, ledgererrors.ErrInvalidAmount),
		errors.Is(err, ledgererrors.ErrInvalidExemptionClass),
		errors.Is(err, ledgererrors.ErrInvalidIssuanceDate),
		errors.Is(err, ledgererrors.ErrArrayLengthMismatch),
		errors.Is(err, ledgererrors.ErrEmptyBatchInput),
		errors.Is(err, ledgererrors.ErrInvalidFeePolicy),
		errors.Is(err, ledgererrors.ErrInvalidRequestStatus):
		writeLedgerError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ledgererrors.ErrUnsupportedFeeAsset),
		errors.Is(err, ledgererrors.ErrFeeMismatch):
		writeLedgerError(w, http.StatusUnprocessableEntity, "fee_rejected", err.Error())
	case errors.Is(err, ledgererrors.ErrBatchNotFound),
		errors.Is(err, ledgererrors.ErrRequestNotFound):
		writeLedgerError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrInsufficientBalance),
		errors.Is(err, ledgererrors.ErrInsufficientClassBalance),
		errors.Is(err, ledgererrors.ErrInsufficientBatchBalance),
		errors.Is(err, ledgererrors.ErrInsufficientFeeFunds),
		errors.Is(err, ledgererrors.ErrInsufficientEscrow):
		writeLedgerError(w, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	case errors.Is(err, ledgererrors.ErrRequestAlreadyFinalized),
		errors.Is(err, ledgererrors.ErrCannotRecoverOwnAsset):
		writeLedgerError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ledgererrors.ErrComplianceCheckFailed):
		writeLedgerError(w, http.StatusForbidden, "compliance_check_failed", err.Error())
	case errors.Is(err, ledgererrors.ErrTransfersDisabled):
		writeLedgerError(w, http.StatusMethodNotAllowed, "transfers_disabled", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
