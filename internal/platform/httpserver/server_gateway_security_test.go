package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestGatewayMutationsRequireCallerHeader(t *testing.T) {
	server := newTestServer(t)

	paths := []string{
		"/api/gateway/v1/operations",
		"/api/gateway/v1/operations/1/ratify",
		"/api/gateway/v1/operations/1/revoke",
		"/api/gateway/v1/operations/1/execute",
	}
	for _, path := range paths {
		recorder := doJSON(t, server, http.MethodPost, path, "", map[string]any{})
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without caller header, got %d", path, recorder.Code)
		}
	}
}

func TestGatewayProposeByNonMemberForbidden(t *testing.T) {
	server := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/gateway/v1/operations", "mallory", map[string]any{
		"command": map[string]any{"kind": "set_frozen", "address": "alice", "flag": true},
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", recorder.Code)
	}
}

func TestGatewayUnknownKindRejected(t *testing.T) {
	server := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/gateway/v1/operations", "signer", map[string]any{
		"command": map[string]any{"kind": "bogus"},
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown command kind, got %d", recorder.Code)
	}
}

func TestGatewayProposeAndFetchOperation(t *testing.T) {
	server := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/gateway/v1/operations", "signer", map[string]any{
		"command": map[string]any{"kind": "set_frozen", "address": "alice", "flag": true},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 on propose, got %d body %s", recorder.Code, recorder.Body.String())
	}
	var proposed struct {
		Status      string `json:"status"`
		OperationID uint64 `json:"operation_id"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &proposed); err != nil {
		t.Fatalf("decode propose response: %v", err)
	}
	if proposed.OperationID == 0 {
		t.Fatalf("expected assigned operation id, got %+v", proposed)
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/gateway/v1/operations/1", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 on operation fetch, got %d", recorder.Code)
	}

	// Ratifying an already executed operation is a conflict.
	recorder = doJSON(t, server, http.MethodPost, "/api/gateway/v1/operations/1/ratify", "signer", nil)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 ratifying an executed operation, got %d", recorder.Code)
	}
}

func TestGatewayUnknownOperationNotFound(t *testing.T) {
	server := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/gateway/v1/operations/42/ratify", "signer", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown operation, got %d", recorder.Code)
	}
	recorder = doJSON(t, server, http.MethodPost, "/api/gateway/v1/operations/abc/ratify", "signer", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed operation id, got %d", recorder.Code)
	}
}

func TestGatewayRosterAndAllowListQueries(t *testing.T) {
	server := newTestServer(t)

	recorder := doJSON(t, server, http.MethodGet, "/api/gateway/v1/roster", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 on roster, got %d", recorder.Code)
	}
	var roster struct {
		Members   []string `json:"members"`
		Threshold int      `json:"threshold"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(roster.Members) != 1 || roster.Threshold != 1 {
		t.Fatalf("unexpected roster payload: %+v", roster)
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/gateway/v1/allowlist/stranger", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 on allow-list lookup, got %d", recorder.Code)
	}
}

func TestGatewayDelayCheck(t *testing.T) {
	server := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/gateway/v1/delay-check", "", map[string]any{
		"command": map[string]any{"kind": "move_exact", "from": "alice", "to": "bob", "amount": 100000},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 on delay check, got %d body %s", recorder.Code, recorder.Body.String())
	}
	var check struct {
		RequiresDelay bool `json:"requires_delay"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode delay check: %v", err)
	}
	if !check.RequiresDelay {
		t.Fatalf("expected a high-value movement to require the hold")
	}
}
