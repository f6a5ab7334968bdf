package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	gatewayerrors "quill/contexts/transfer-agent/authorization-gateway/domain/errors"
	gatewayhttp "quill/contexts/transfer-agent/authorization-gateway/transport/http"
)

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeGatewayError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	var req gatewayhttp.ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGatewayError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.gateway.Handler.ProposeHandler(r.Context(), caller, req)
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRatify(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeGatewayError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	operationID, ok := parseID(r.PathValue("operation_id"))
	if !ok {
		writeGatewayError(w, http.StatusBadRequest, "invalid_operation_id", "operation_id must be a positive integer")
		return
	}
	resp, err := s.gateway.Handler.RatifyHandler(r.Context(), caller, operationID)
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeGatewayError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	operationID, ok := parseID(r.PathValue("operation_id"))
	if !ok {
		writeGatewayError(w, http.StatusBadRequest, "invalid_operation_id", "operation_id must be a positive integer")
		return
	}
	resp, err := s.gateway.Handler.RevokeHandler(r.Context(), caller, operationID)
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	caller := resolveCaller(r)
	if caller == "" {
		writeGatewayError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return
	}
	operationID, ok := parseID(r.PathValue("operation_id"))
	if !ok {
		writeGatewayError(w, http.StatusBadRequest, "invalid_operation_id", "operation_id must be a positive integer")
		return
	}
	resp, err := s.gateway.Handler.ExecuteHandler(r.Context(), caller, operationID)
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	operationID, ok := parseID(r.PathValue("operation_id"))
	if !ok {
		writeGatewayError(w, http.StatusBadRequest, "invalid_operation_id", "operation_id must be a positive integer")
		return
	}
	resp, err := s.gateway.Handler.OperationHandler(r.Context(), operationID)
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExpiry(w http.ResponseWriter, r *http.Request) {
	operationID, ok := parseID(r.PathValue("operation_id"))
	if !ok {
		writeGatewayError(w, http.StatusBadRequest, "invalid_operation_id", "operation_id must be a positive integer")
		return
	}
	resp, err := s.gateway.Handler.ExpiryHandler(r.Context(), operationID)
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	operationID, ok := parseID(r.PathValue("operation_id"))
	if !ok {
		writeGatewayError(w, http.StatusBadRequest, "invalid_operation_id", "operation_id must be a positive integer")
		return
	}
	resp, err := s.gateway.Handler.ConfirmationHandler(r.Context(), operationID, r.PathValue("member"))
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	resp, err := s.gateway.Handler.RosterHandler(r.Context())
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelayCheck(w http.ResponseWriter, r *http.Request) {
	var req gatewayhttp.DelayCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGatewayError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.gateway.Handler.DelayCheckHandler(r.Context(), req)
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAllowList(w http.ResponseWriter, r *http.Request) {
	resp, err := s.gateway.Handler.AllowListHandler(r.Context())
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAllowed(w http.ResponseWriter, r *http.Request) {
	resp, err := s.gateway.Handler.AllowedHandler(r.Context(), r.PathValue("destination"))
	if err != nil {
		writeGatewayDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGatewayDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gatewayerrors.ErrNotMember),
		errors.Is(err, gatewayerrors.ErrSelfCallOnly):
		writeGatewayError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, gatewayerrors.ErrInvalidMember),
		errors.Is(err, gatewayerrors.ErrInvalidCommand),
		errors.Is(err, gatewayerrors.ErrInvalidThreshold):
		writeGatewayError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, gatewayerrors.ErrOperationNotFound):
		writeGatewayError(w, http.StatusNotFound, "operation_not_found", err.Error())
	case errors.Is(err, gatewayerrors.ErrAlreadyConfirmed),
		errors.Is(err, gatewayerrors.ErrAlreadyExecuted),
		errors.Is(err, gatewayerrors.ErrNotConfirmed),
		errors.Is(err, gatewayerrors.ErrAlreadyMember),
		errors.Is(err, gatewayerrors.ErrThresholdUnreachable):
		writeGatewayError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, gatewayerrors.ErrInsufficientConfirmations):
		writeGatewayError(w, http.StatusUnprocessableEntity, "insufficient_confirmations", err.Error())
	case errors.Is(err, gatewayerrors.ErrOperationExpired):
		writeGatewayError(w, http.StatusGone, "operation_expired", err.Error())
	case errors.Is(err, gatewayerrors.ErrTimeLockNotExpired):
		writeGatewayError(w, http.StatusUnprocessableEntity, "time_lock_not_expired", err.Error())
	default:
		writeGatewayError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGatewayError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, gatewayhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
