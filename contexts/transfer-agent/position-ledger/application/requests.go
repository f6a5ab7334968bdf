package application

import (
	"context"
	"strings"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	"quill/contexts/transfer-agent/position-ledger/ports"
)

// RequestTransfer records a holder-initiated transfer request and pulls the
// exact quoted fee from the caller's fee account into escrow. The caller must
// be the sending holder or a registrar-approved broker.
func (s *Service) RequestTransfer(ctx context.Context, caller, from, to string, amount uint64, feeAsset string, feeAmount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller = strings.TrimSpace(caller)
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if caller == "" || from == "" || to == "" {
		return 0, domainerrors.ErrInvalidAddress
	}
	if amount == 0 {
		return 0, domainerrors.ErrInvalidAmount
	}

	if caller != from {
		flags, err := s.Repo.GetCompliance(ctx, caller)
		if err != nil {
			return 0, err
		}
		if !flags.BrokerApproved {
			return 0, domainerrors.ErrNotHolderOrBroker
		}
	}

	admin, err := s.Repo.GetAdminState(ctx)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(feeAsset) != admin.FeeAsset {
		return 0, domainerrors.ErrUnsupportedFeeAsset
	}
	if feeAmount != admin.FeePolicy.Quote(amount) {
		return 0, domainerrors.ErrFeeMismatch
	}

	mutation := ports.Mutation{
		Request: &entities.TransferRequest{
			From:      from,
			To:        to,
			Amount:    amount,
			FeeAsset:  admin.FeeAsset,
			FeeAmount: feeAmount,
			Requester: caller,
			Status:    entities.RequestStatusPending,
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
	}
	if feeAmount > 0 {
		balance, err := s.Repo.GetFeeBalance(ctx, admin.FeeAsset, caller)
		if err != nil {
			return 0, err
		}
		if balance < feeAmount {
			return 0, domainerrors.ErrInsufficientFeeFunds
		}
		mutation.FeeTransfers = []ports.FeeTransfer{{
			Asset:  admin.FeeAsset,
			From:   caller,
			To:     ledgerVault,
			Amount: feeAmount,
		}}
		mutation.EscrowDeltas = map[string]int64{admin.FeeAsset: int64(feeAmount)}
	}

	event, err := s.newEnvelope(ctx, EventRequestCreated, "from", from, map[string]any{
		"from":       from,
		"to":         to,
		"amount":     amount,
		"fee_asset":  admin.FeeAsset,
		"fee_amount": feeAmount,
		"requester":  caller,
	})
	if err != nil {
		return 0, err
	}
	mutation.Events = []ports.EventEnvelope{event}

	requestID, err := s.Repo.Apply(ctx, mutation)
	if err != nil {
		return 0, err
	}

	ResolveLogger(s.Logger).Info("transfer request created",
		"event", "ledger_request_created",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"request_id", requestID,
		"from", from,
		"to", to,
		"amount", amount,
		"fee_amount", feeAmount,
	)
	return requestID, nil
}

// ProcessRequest is the registrar decision point. Approving promotes a
// pending or under-review request to approved and performs the transfer FIFO
// in the same commit, marking it executed. The non-approving path is a
// no-refund rejection.
func (s *Service) ProcessRequest(ctx context.Context, caller string, requestID uint64, approve bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	if !approve {
		return s.rejectLocked(ctx, requestID, "not_approved", false)
	}

	request, err := s.Repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status.Terminal() {
		return domainerrors.ErrRequestAlreadyFinalized
	}

	source, err := s.Repo.GetBook(ctx, request.From)
	if err != nil {
		return err
	}
	deltas, ok := source.ConsumeFIFO(request.Amount)
	if !ok {
		return domainerrors.ErrInsufficientBalance
	}
	dest, err := s.Repo.GetBook(ctx, request.To)
	if err != nil {
		return err
	}
	for _, d := range deltas {
		dest.Merge(d.ExemptionClass, d.IssuanceDate, d.Amount)
	}

	request.Status = entities.RequestStatusExecuted
	request.UpdatedAt = s.now()

	executed, err := s.newEnvelope(ctx, EventRequestExecuted, "from", request.From, map[string]any{
		"request_id": request.RequestID,
		"from":       request.From,
		"to":         request.To,
		"amount":     request.Amount,
	})
	if err != nil {
		return err
	}
	transferred, err := s.newEnvelope(ctx, EventUnitsTransferred, "from", request.From, map[string]any{
		"from":       request.From,
		"to":         request.To,
		"amount":     request.Amount,
		"kind":       "request",
		"request_id": request.RequestID,
	})
	if err != nil {
		return err
	}

	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Books:   []entities.HolderBook{source, dest},
		Request: &request,
		Events:  []ports.EventEnvelope{executed, transferred},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("transfer request executed",
		"event", "ledger_request_executed",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"request_id", request.RequestID,
		"from", request.From,
		"to", request.To,
		"amount", request.Amount,
	)
	return nil
}

// RejectRequest terminally rejects a request; with refund the escrowed fee
// goes back to the original requester and escrow shrinks by the same amount.
func (s *Service) RejectRequest(ctx context.Context, caller string, requestID uint64, reasonCode string, refund bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	return s.rejectLocked(ctx, requestID, reasonCode, refund)
}

func (s *Service) rejectLocked(ctx context.Context, requestID uint64, reasonCode string, refund bool) error {
	request, err := s.Repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status.Terminal() {
		return domainerrors.ErrRequestAlreadyFinalized
	}

	request.Status = entities.RequestStatusRejected
	request.ReasonCode = reasonCode
	request.UpdatedAt = s.now()

	mutation := ports.Mutation{Request: &request}
	if refund && request.FeeAmount > 0 && !request.Refunded {
		request.Refunded = true
		mutation.FeeTransfers = []ports.FeeTransfer{{
			Asset:  request.FeeAsset,
			From:   ledgerVault,
			To:     request.Requester,
			Amount: request.FeeAmount,
		}}
		mutation.EscrowDeltas = map[string]int64{request.FeeAsset: -int64(request.FeeAmount)}
	}

	event, err := s.newEnvelope(ctx, EventRequestRejected, "from", request.From, map[string]any{
		"request_id":  request.RequestID,
		"from":        request.From,
		"to":          request.To,
		"amount":      request.Amount,
		"reason_code": reasonCode,
		"refunded":    request.Refunded,
	})
	if err != nil {
		return err
	}
	mutation.Events = []ports.EventEnvelope{event}

	if _, err := s.Repo.Apply(ctx, mutation); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("transfer request rejected",
		"event", "ledger_request_rejected",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"request_id", request.RequestID,
		"reason_code", reasonCode,
		"refunded", request.Refunded,
	)
	return nil
}

// SetRequestStatus is the administrative status override, e.g. to park a
// request under review or mark it expired. Terminal requests still refuse.
func (s *Service) SetRequestStatus(ctx context.Context, caller string, requestID uint64, status entities.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	if !status.Valid() {
		return domainerrors.ErrInvalidRequestStatus
	}

	request, err := s.Repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status.Terminal() {
		return domainerrors.ErrRequestAlreadyFinalized
	}
	request.Status = status
	request.UpdatedAt = s.now()

	event, err := s.newEnvelope(ctx, EventRequestStatusSet, "from", request.From, map[string]any{
		"request_id": request.RequestID,
		"status":     string(status),
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		Request: &request,
		Events:  []ports.EventEnvelope{event},
	})
	return err
}

// QuoteFee returns the up-front fee a transfer request of this size must pay
// under the current policy.
func (s *Service) QuoteFee(ctx context.Context, from, to string, amount uint64) (uint64, string, error) {
	admin, err := s.Repo.GetAdminState(ctx)
	if err != nil {
		return 0, "", err
	}
	return admin.FeePolicy.Quote(amount), admin.FeeAsset, nil
}

// DepositFeeFunds credits an address's fee account. It is the boundary hook
// standing in for the external fee token: callers fund their account here
// before paying request fees.
func (s *Service) DepositFeeFunds(ctx context.Context, address, asset string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	address = strings.TrimSpace(address)
	if address == "" {
		return domainerrors.ErrInvalidAddress
	}
	if amount == 0 {
		return domainerrors.ErrInvalidAmount
	}
	if strings.TrimSpace(asset) == "" {
		return domainerrors.ErrUnsupportedFeeAsset
	}
	_, err := s.Repo.Apply(ctx, ports.Mutation{
		FeeTransfers: []ports.FeeTransfer{{
			Asset:  strings.TrimSpace(asset),
			From:   externalFunds,
			To:     address,
			Amount: amount,
		}},
	})
	return err
}

// Transfer is the legacy direct-transfer surface. It is intentionally
// disabled and always fails with a distinguishing error, never silently.
func (s *Service) Transfer(ctx context.Context, caller, to string, amount uint64) error {
	return domainerrors.ErrTransfersDisabled
}

// TransferFrom is disabled alongside Transfer.
func (s *Service) TransferFrom(ctx context.Context, caller, from, to string, amount uint64) error {
	return domainerrors.ErrTransfersDisabled
}

// Approve is disabled alongside Transfer.
func (s *Service) Approve(ctx context.Context, caller, spender string, amount uint64) error {
	return domainerrors.ErrTransfersDisabled
}

const (
	// ledgerVault is the ledger's own fee-asset account: escrowed fees and
	// stray credits live here until withdrawn, refunded, or recovered.
	ledgerVault = "system:ledger-vault"
	// externalFunds is the counterparty account for boundary deposits.
	externalFunds = "system:external"
)
