package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"quill/contexts/transfer-agent/authorization-gateway/application"
	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	domainerrors "quill/contexts/transfer-agent/authorization-gateway/domain/errors"
	httptransport "quill/contexts/transfer-agent/authorization-gateway/transport/http"
)

// Handler converts transport DTOs into application calls. The caller string
// is the pre-authenticated identity resolved at the HTTP boundary.
type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

const statusSuccess = "success"

func commandFromDTO(dto httptransport.CommandDTO) (entities.Command, error) {
	command := entities.Command{
		Kind:            entities.CommandKind(dto.Kind),
		Holder:          dto.Holder,
		From:            dto.From,
		To:              dto.To,
		Amount:          dto.Amount,
		ExemptionClass:  dto.ExemptionClass,
		Evidence:        dto.Evidence,
		Address:         dto.Address,
		Flag:            dto.Flag,
		FeeMode:         dto.FeeMode,
		FeeFlatAmount:   dto.FeeFlatAmount,
		FeeRateBps:      dto.FeeRateBps,
		FeeOpaqueAmount: dto.FeeOpaqueAmount,
		RequestID:       dto.RequestID,
		ReasonCode:      dto.ReasonCode,
		Asset:           dto.Asset,
		Issuer:          dto.Issuer,
		Threshold:       dto.Threshold,
	}
	if !command.Kind.Valid() {
		return entities.Command{}, domainerrors.ErrInvalidCommand
	}
	if dto.IssuanceDate != "" {
		parsed, err := time.Parse(time.RFC3339, dto.IssuanceDate)
		if err != nil {
			return entities.Command{}, domainerrors.ErrInvalidCommand
		}
		command.IssuanceDate = parsed.UTC()
	}
	return command, nil
}

func commandToDTO(command entities.Command) httptransport.CommandDTO {
	dto := httptransport.CommandDTO{
		Kind:            string(command.Kind),
		Holder:          command.Holder,
		From:            command.From,
		To:              command.To,
		Amount:          command.Amount,
		ExemptionClass:  command.ExemptionClass,
		Evidence:        command.Evidence,
		Address:         command.Address,
		Flag:            command.Flag,
		FeeMode:         command.FeeMode,
		FeeFlatAmount:   command.FeeFlatAmount,
		FeeRateBps:      command.FeeRateBps,
		FeeOpaqueAmount: command.FeeOpaqueAmount,
		RequestID:       command.RequestID,
		ReasonCode:      command.ReasonCode,
		Asset:           command.Asset,
		Issuer:          command.Issuer,
		Threshold:       command.Threshold,
	}
	if !command.IssuanceDate.IsZero() {
		dto.IssuanceDate = command.IssuanceDate.UTC().Format(time.RFC3339)
	}
	return dto
}

func (h Handler) ProposeHandler(ctx context.Context, caller string, req httptransport.ProposeRequest) (httptransport.ProposeResponse, error) {
	command, err := commandFromDTO(req.Command)
	if err != nil {
		return httptransport.ProposeResponse{}, err
	}
	operationID, err := h.Service.Propose(ctx, caller, command, req.Value)
	if err != nil {
		return httptransport.ProposeResponse{}, err
	}
	return httptransport.ProposeResponse{Status: statusSuccess, OperationID: operationID}, nil
}

func (h Handler) RatifyHandler(ctx context.Context, caller string, operationID uint64) (httptransport.StatusResponse, error) {
	if err := h.Service.Ratify(ctx, caller, operationID); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) RevokeHandler(ctx context.Context, caller string, operationID uint64) (httptransport.StatusResponse, error) {
	if err := h.Service.Revoke(ctx, caller, operationID); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) ExecuteHandler(ctx context.Context, caller string, operationID uint64) (httptransport.StatusResponse, error) {
	if err := h.Service.Execute(ctx, caller, operationID); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: statusSuccess}, nil
}

func (h Handler) OperationHandler(ctx context.Context, operationID uint64) (httptransport.OperationResponse, error) {
	operation, err := h.Service.OperationByID(ctx, operationID)
	if err != nil {
		return httptransport.OperationResponse{}, err
	}
	return httptransport.OperationResponse{
		Status: statusSuccess,
		Data: httptransport.OperationDTO{
			OperationID:   operation.OperationID,
			Command:       commandToDTO(operation.Command),
			Value:         operation.Value,
			Confirmations: operation.Confirmations,
			Executed:      operation.Executed,
			SubmittedAt:   operation.SubmittedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

func (h Handler) RosterHandler(ctx context.Context) (httptransport.RosterResponse, error) {
	members, err := h.Service.Members(ctx)
	if err != nil {
		return httptransport.RosterResponse{}, err
	}
	threshold, err := h.Service.Threshold(ctx)
	if err != nil {
		return httptransport.RosterResponse{}, err
	}
	return httptransport.RosterResponse{
		Status:    statusSuccess,
		Members:   members,
		Threshold: threshold,
	}, nil
}

func (h Handler) ConfirmationHandler(ctx context.Context, operationID uint64, member string) (httptransport.ConfirmationResponse, error) {
	confirmed, err := h.Service.IsConfirmedBy(ctx, operationID, member)
	if err != nil {
		return httptransport.ConfirmationResponse{}, err
	}
	return httptransport.ConfirmationResponse{
		Status:      statusSuccess,
		OperationID: operationID,
		Member:      member,
		Confirmed:   confirmed,
	}, nil
}

func (h Handler) ExpiryHandler(ctx context.Context, operationID uint64) (httptransport.ExpiryResponse, error) {
	expired, err := h.Service.IsExpired(ctx, operationID)
	if err != nil {
		return httptransport.ExpiryResponse{}, err
	}
	return httptransport.ExpiryResponse{
		Status:      statusSuccess,
		OperationID: operationID,
		Expired:     expired,
	}, nil
}

func (h Handler) DelayCheckHandler(ctx context.Context, req httptransport.DelayCheckRequest) (httptransport.DelayCheckResponse, error) {
	command, err := commandFromDTO(req.Command)
	if err != nil {
		return httptransport.DelayCheckResponse{}, err
	}
	delayed, err := h.Service.RequiresDelay(ctx, command)
	if err != nil {
		return httptransport.DelayCheckResponse{}, err
	}
	return httptransport.DelayCheckResponse{Status: statusSuccess, RequiresDelay: delayed}, nil
}

func (h Handler) AllowListHandler(ctx context.Context) (httptransport.AllowListResponse, error) {
	destinations, err := h.Service.AllowList(ctx)
	if err != nil {
		return httptransport.AllowListResponse{}, err
	}
	return httptransport.AllowListResponse{Status: statusSuccess, Destinations: destinations}, nil
}

func (h Handler) AllowedHandler(ctx context.Context, destination string) (httptransport.AllowedResponse, error) {
	allowed, err := h.Service.IsAllowedDestination(ctx, destination)
	if err != nil {
		return httptransport.AllowedResponse{}, err
	}
	return httptransport.AllowedResponse{
		Status:      statusSuccess,
		Destination: destination,
		Allowed:     allowed,
	}, nil
}
