package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"quill/contexts/transfer-agent/position-ledger/application"
	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	httptransport "quill/contexts/transfer-agent/position-ledger/transport/http"
)

// Handler converts transport DTOs into application calls. The caller string
// is the pre-authenticated identity resolved at the HTTP boundary.
type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

const statusSuccess = "success"

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domainerrors.ErrInvalidIssuanceDate
	}
	return parsed.UTC(), nil
}

func parseDates(raw []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(raw))
	for _, item := range raw {
		parsed, err := parseDate(item)
		if err != nil {
			return nil, err
		}
		dates = append(dates, parsed)
	}
	return dates, nil
}

func (h Handler) IssueHandler(ctx context.Context, caller string, req httptransport.IssueRequest) (httptransport.StatusResponse, error) {
	date, err := parseDate(req.IssuanceDate)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	if err := h.Service.Issue(ctx, caller, req.Holder, req.Amount, req.ExemptionClass, date); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) IssueBulkHandler(ctx context.Context, caller string, req httptransport.BulkIssueRequest) (httptransport.StatusResponse, error) {
	dates, err := parseDates(req.IssuanceDates)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	if err := h.Service.IssueBulk(ctx, caller, req.Holders, req.Amounts, req.ExemptionClasses, dates); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) BurnAllHandler(ctx context.Context, caller string, req httptransport.BurnRequest) (httptransport.BurnResponse, error) {
	oldest, err := h.Service.BurnAll(ctx, caller, req.Holder, req.Amount)
	if err != nil {
		return httptransport.BurnResponse{}, err
	}
	return httptransport.BurnResponse{
		Status:        statusSuccess,
		OldestTouched: oldest.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) BurnByClassHandler(ctx context.Context, caller string, req httptransport.BurnByClassRequest) (httptransport.BurnResponse, error) {
	oldest, err := h.Service.BurnByClass(ctx, caller, req.Holder, req.Amount, req.ExemptionClass)
	if err != nil {
		return httptransport.BurnResponse{}, err
	}
	return httptransport.BurnResponse{
		Status:        statusSuccess,
		OldestTouched: oldest.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) BurnExactHandler(ctx context.Context, caller string, req httptransport.BurnExactRequest) (httptransport.StatusResponse, error) {
	date, err := parseDate(req.IssuanceDate)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	if err := h.Service.BurnExact(ctx, caller, req.Holder, req.Amount, req.ExemptionClass, date); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) BurnBulkHandler(ctx context.Context, caller string, req httptransport.BulkIssueRequest) (httptransport.StatusResponse, error) {
	dates, err := parseDates(req.IssuanceDates)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	if err := h.Service.BurnBulk(ctx, caller, req.Holders, req.Amounts, req.ExemptionClasses, dates); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) MoveExactHandler(ctx context.Context, caller string, req httptransport.MoveExactRequest) (httptransport.StatusResponse, error) {
	date, err := parseDate(req.IssuanceDate)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	if err := h.Service.MoveExact(ctx, caller, req.From, req.To, req.Amount, req.ExemptionClass, date); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) MoveBulkHandler(ctx context.Context, caller string, req httptransport.BulkMoveRequest) (httptransport.StatusResponse, error) {
	dates, err := parseDates(req.IssuanceDates)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	if err := h.Service.MoveBulk(ctx, caller, req.Froms, req.Tos, req.Amounts, req.ExemptionClasses, dates); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) ForcedMoveHandler(ctx context.Context, caller string, req httptransport.ForcedMoveRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.ForcedMove(ctx, caller, req.From, req.To, req.Amount, req.Evidence); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) SetFrozenHandler(ctx context.Context, caller string, req httptransport.SetFrozenRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.SetFrozen(ctx, caller, req.Address, req.Frozen); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) SetBrokerApprovedHandler(ctx context.Context, caller string, req httptransport.SetBrokerApprovedRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.SetBrokerApproved(ctx, caller, req.Address, req.Approved); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) SetFeePolicyHandler(ctx context.Context, caller string, req httptransport.FeePolicyRequest) (httptransport.StatusResponse, error) {
	policy := entities.FeePolicy{
		Mode:         entities.FeeMode(req.Mode),
		FlatAmount:   req.FlatAmount,
		RateBps:      req.RateBps,
		OpaqueAmount: req.OpaqueAmount,
	}
	if err := h.Service.SetFeePolicy(ctx, caller, policy); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) SetFeeAssetHandler(ctx context.Context, caller string, req httptransport.FeeAssetRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.SetFeeAsset(ctx, caller, req.Asset); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) WithdrawFeesHandler(ctx context.Context, caller string, req httptransport.WithdrawFeesRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.WithdrawFees(ctx, caller, req.To, req.Amount); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) RecoverAssetHandler(ctx context.Context, caller string, req httptransport.RecoverAssetRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.RecoverAsset(ctx, caller, req.Asset, req.To, req.Amount); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) DepositFeeFundsHandler(ctx context.Context, req httptransport.DepositFeeFundsRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.DepositFeeFunds(ctx, req.Address, req.Asset, req.Amount); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) CreateTransferRequestHandler(ctx context.Context, caller string, req httptransport.CreateTransferRequest) (httptransport.CreateTransferResponse, error) {
	requestID, err := h.Service.RequestTransfer(ctx, caller, req.From, req.To, req.Amount, req.FeeAsset, req.FeeAmount)
	if err != nil {
		return httptransport.CreateTransferResponse{}, err
	}
	return httptransport.CreateTransferResponse{Status: statusSuccess, RequestID: requestID}, nil
}

func (h Handler) ProcessRequestHandler(ctx context.Context, caller string, requestID uint64, req httptransport.ProcessRequestBody) (httptransport.StatusResponse, error) {
	if err := h.Service.ProcessRequest(ctx, caller, requestID, req.Approve); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) RejectRequestHandler(ctx context.Context, caller string, requestID uint64, req httptransport.RejectRequestBody) (httptransport.StatusResponse, error) {
	if err := h.Service.RejectRequest(ctx, caller, requestID, req.ReasonCode, req.Refund); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) SetRequestStatusHandler(ctx context.Context, caller string, requestID uint64, req httptransport.SetRequestStatusBody) (httptransport.StatusResponse, error) {
	if err := h.Service.SetRequestStatus(ctx, caller, requestID, entities.RequestStatus(req.Status)); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) SetRegistrarHandler(ctx context.Context, caller string, req httptransport.SetRegistrarRequest) (httptransport.StatusResponse, error) {
	principal := entities.RegistrarPrincipal{
		Kind:    entities.RegistrarKind(req.Kind),
		Address: req.Address,
	}
	if err := h.Service.SetRegistrar(ctx, caller, principal); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) ChangeIssuerHandler(ctx context.Context, caller string, req httptransport.ChangeIssuerRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.ChangeIssuer(ctx, caller, req.Issuer); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) LegacyTransferHandler(ctx context.Context, caller string, req httptransport.LegacyTransferRequest) (httptransport.StatusResponse, error) {
	if req.From != "" {
		return httptransport.StatusResponse{}, h.Service.TransferFrom(ctx, caller, req.From, req.To, req.Amount)
	}
	return httptransport.StatusResponse{}, h.Service.Transfer(ctx, caller, req.To, req.Amount)
}

func (h Handler) BalanceHandler(ctx context.Context, holder string) (httptransport.BalanceResponse, error) {
	balance, err := h.Service.BalanceOf(ctx, holder)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{Status: statusSuccess, Holder: holder, Balance: balance}, nil
}

func (h Handler) BatchesHandler(ctx context.Context, holder string) (httptransport.BatchesResponse, error) {
	batches, err := h.Service.BatchesOf(ctx, holder)
	if err != nil {
		return httptransport.BatchesResponse{}, err
	}
	resp := httptransport.BatchesResponse{
		Status:  statusSuccess,
		Holder:  holder,
		Batches: make([]httptransport.BatchDTO, 0, len(batches)),
	}
	for _, batch := range batches {
		resp.Batches = append(resp.Batches, httptransport.BatchDTO{
			ExemptionClass: batch.ExemptionClass,
			IssuanceDate:   batch.IssuanceDate.UTC().Format(time.RFC3339),
			Amount:         batch.Amount,
		})
	}
	return resp, nil
}

func (h Handler) SupplyHandler(ctx context.Context) (httptransport.SupplyResponse, error) {
	snapshot, err := h.Service.Supply(ctx)
	if err != nil {
		return httptransport.SupplyResponse{}, err
	}
	return httptransport.SupplyResponse{
		Status:  statusSuccess,
		Total:   snapshot.Total,
		ByClass: snapshot.ByClass,
	}, nil
}

func (h Handler) QuoteFeeHandler(ctx context.Context, from, to string, amount uint64) (httptransport.QuoteFeeResponse, error) {
	fee, asset, err := h.Service.QuoteFee(ctx, from, to, amount)
	if err != nil {
		return httptransport.QuoteFeeResponse{}, err
	}
	return httptransport.QuoteFeeResponse{Status: statusSuccess, FeeAsset: asset, FeeAmount: fee}, nil
}

func (h Handler) ComplianceHandler(ctx context.Context, address string) (httptransport.ComplianceResponse, error) {
	frozen, err := h.Service.IsFrozen(ctx, address)
	if err != nil {
		return httptransport.ComplianceResponse{}, err
	}
	broker, err := h.Service.IsBrokerApproved(ctx, address)
	if err != nil {
		return httptransport.ComplianceResponse{}, err
	}
	return httptransport.ComplianceResponse{
		Status:         statusSuccess,
		Address:        address,
		Frozen:         frozen,
		BrokerApproved: broker,
	}, nil
}

func (h Handler) RegistrarHandler(ctx context.Context) (httptransport.RegistrarResponse, error) {
	registrar, err := h.Service.Registrar(ctx)
	if err != nil {
		return httptransport.RegistrarResponse{}, err
	}
	issuer, err := h.Service.Issuer(ctx)
	if err != nil {
		return httptransport.RegistrarResponse{}, err
	}
	return httptransport.RegistrarResponse{
		Status:  statusSuccess,
		Kind:    string(registrar.Kind),
		Address: registrar.Address,
		Issuer:  issuer,
	}, nil
}

func (h Handler) RequestHandler(ctx context.Context, requestID uint64) (httptransport.TransferRequestResponse, error) {
	request, err := h.Service.RequestByID(ctx, requestID)
	if err != nil {
		return httptransport.TransferRequestResponse{}, err
	}
	return httptransport.TransferRequestResponse{
		Status: statusSuccess,
		Data: httptransport.TransferRequestDTO{
			RequestID:     request.RequestID,
			From:          request.From,
			To:            request.To,
			Amount:        request.Amount,
			FeeAsset:      request.FeeAsset,
			FeeAmount:     request.FeeAmount,
			Requester:     request.Requester,
			RequestStatus: string(request.Status),
			ReasonCode:    request.ReasonCode,
			Refunded:      request.Refunded,
			CreatedAt:     request.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:     request.UpdatedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

func (h Handler) EscrowHandler(ctx context.Context) (httptransport.EscrowResponse, error) {
	balance, asset, err := h.Service.EscrowBalance(ctx)
	if err != nil {
		return httptransport.EscrowResponse{}, err
	}
	return httptransport.EscrowResponse{Status: statusSuccess, FeeAsset: asset, Balance: balance}, nil
}

func (h Handler) FeeBalanceHandler(ctx context.Context, asset, address string) (httptransport.FeeBalanceResponse, error) {
	balance, err := h.Service.FeeBalanceOf(ctx, asset, address)
	if err != nil {
		return httptransport.FeeBalanceResponse{}, err
	}
	return httptransport.FeeBalanceResponse{
		Status:  statusSuccess,
		Asset:   asset,
		Address: address,
		Balance: balance,
	}, nil
}
