package application

import (
	"context"
	"strings"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	"quill/contexts/transfer-agent/position-ledger/ports"
)

func (s *Service) BalanceOf(ctx context.Context, holder string) (uint64, error) {
	book, err := s.Repo.GetBook(ctx, strings.TrimSpace(holder))
	if err != nil {
		return 0, err
	}
	return book.Total(), nil
}

func (s *Service) BatchesOf(ctx context.Context, holder string) ([]entities.Batch, error) {
	book, err := s.Repo.GetBook(ctx, strings.TrimSpace(holder))
	if err != nil {
		return nil, err
	}
	return book.Batches, nil
}

func (s *Service) Supply(ctx context.Context) (ports.SupplySnapshot, error) {
	return s.Repo.GetSupply(ctx)
}

func (s *Service) IsFrozen(ctx context.Context, address string) (bool, error) {
	flags, err := s.Repo.GetCompliance(ctx, strings.TrimSpace(address))
	if err != nil {
		return false, err
	}
	return flags.Frozen, nil
}

func (s *Service) IsBrokerApproved(ctx context.Context, address string) (bool, error) {
	flags, err := s.Repo.GetCompliance(ctx, strings.TrimSpace(address))
	if err != nil {
		return false, err
	}
	return flags.BrokerApproved, nil
}

func (s *Service) Registrar(ctx context.Context) (entities.RegistrarPrincipal, error) {
	admin, err := s.Repo.GetAdminState(ctx)
	if err != nil {
		return entities.RegistrarPrincipal{}, err
	}
	return admin.Registrar, nil
}

func (s *Service) Issuer(ctx context.Context) (string, error) {
	admin, err := s.Repo.GetAdminState(ctx)
	if err != nil {
		return "", err
	}
	return admin.Issuer, nil
}

func (s *Service) RequestByID(ctx context.Context, requestID uint64) (entities.TransferRequest, error) {
	if requestID == 0 {
		return entities.TransferRequest{}, domainerrors.ErrRequestNotFound
	}
	return s.Repo.GetRequest(ctx, requestID)
}

func (s *Service) EscrowBalance(ctx context.Context) (uint64, string, error) {
	admin, err := s.Repo.GetAdminState(ctx)
	if err != nil {
		return 0, "", err
	}
	escrow, err := s.Repo.GetEscrow(ctx, admin.FeeAsset)
	if err != nil {
		return 0, "", err
	}
	return escrow, admin.FeeAsset, nil
}

func (s *Service) FeeBalanceOf(ctx context.Context, asset, address string) (uint64, error) {
	return s.Repo.GetFeeBalance(ctx, strings.TrimSpace(asset), strings.TrimSpace(address))
}
