package application

import (
	"context"
	"strings"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	"quill/contexts/transfer-agent/position-ledger/ports"
)

// SetFrozen sets the per-address frozen flag, last-write-wins.
func (s *Service) SetFrozen(ctx context.Context, caller, address string, frozen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return domainerrors.ErrInvalidAddress
	}
	flags, err := s.Repo.GetCompliance(ctx, address)
	if err != nil {
		return err
	}
	flags.Frozen = frozen

	event, err := s.newEnvelope(ctx, EventFreezeChanged, "address", address, map[string]any{
		"address": address,
		"frozen":  frozen,
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		Compliance: []ports.ComplianceChange{{Address: address, Flags: flags}},
		Events:     []ports.EventEnvelope{event},
	})
	return err
}

// SetBrokerApproved sets the per-address broker flag, last-write-wins.
func (s *Service) SetBrokerApproved(ctx context.Context, caller, address string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return domainerrors.ErrInvalidAddress
	}
	flags, err := s.Repo.GetCompliance(ctx, address)
	if err != nil {
		return err
	}
	flags.BrokerApproved = approved

	event, err := s.newEnvelope(ctx, EventBrokerChanged, "address", address, map[string]any{
		"address":         address,
		"broker_approved": approved,
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		Compliance: []ports.ComplianceChange{{Address: address, Flags: flags}},
		Events:     []ports.EventEnvelope{event},
	})
	return err
}

// SetFeePolicy replaces the fee quoting parameters.
func (s *Service) SetFeePolicy(ctx context.Context, caller string, policy entities.FeePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireRegistrar(ctx, caller)
	if err != nil {
		return err
	}
	if !policy.Mode.Valid() || policy.RateBps > 10000 {
		return domainerrors.ErrInvalidFeePolicy
	}
	admin.FeePolicy = policy

	event, err := s.newEnvelope(ctx, EventFeePolicyChanged, "mode", string(policy.Mode), map[string]any{
		"mode":          string(policy.Mode),
		"flat_amount":   policy.FlatAmount,
		"rate_bps":      policy.RateBps,
		"opaque_amount": policy.OpaqueAmount,
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		Admin:  &admin,
		Events: []ports.EventEnvelope{event},
	})
	return err
}

// SetFeeAsset changes which asset transfer-request fees are paid in.
func (s *Service) SetFeeAsset(ctx context.Context, caller, asset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireRegistrar(ctx, caller)
	if err != nil {
		return err
	}
	asset = strings.TrimSpace(asset)
	if asset == "" || asset == admin.UnitAsset {
		return domainerrors.ErrUnsupportedFeeAsset
	}
	admin.FeeAsset = asset

	event, err := s.newEnvelope(ctx, EventFeePolicyChanged, "fee_asset", asset, map[string]any{
		"fee_asset": asset,
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		Admin:  &admin,
		Events: []ports.EventEnvelope{event},
	})
	return err
}

// WithdrawFees sweeps collected request fees out of escrow.
func (s *Service) WithdrawFees(ctx context.Context, caller, to string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireRegistrar(ctx, caller)
	if err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return domainerrors.ErrInvalidAddress
	}
	if amount == 0 {
		return domainerrors.ErrInvalidAmount
	}
	escrow, err := s.Repo.GetEscrow(ctx, admin.FeeAsset)
	if err != nil {
		return err
	}
	if escrow < amount {
		return domainerrors.ErrInsufficientEscrow
	}

	event, err := s.newEnvelope(ctx, EventFeesWithdrawn, "to", to, map[string]any{
		"to":        to,
		"fee_asset": admin.FeeAsset,
		"amount":    amount,
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		FeeTransfers: []ports.FeeTransfer{{
			Asset:  admin.FeeAsset,
			From:   ledgerVault,
			To:     to,
			Amount: amount,
		}},
		EscrowDeltas: map[string]int64{admin.FeeAsset: -int64(amount)},
		Events:       []ports.EventEnvelope{event},
	})
	return err
}

// RecoverAsset sweeps stray credits out of the ledger vault. It refuses the
// ledger's own accounted asset so holder balances can never be drained, and
// it never touches the escrowed portion of the fee asset.
func (s *Service) RecoverAsset(ctx context.Context, caller, asset, to string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireRegistrar(ctx, caller)
	if err != nil {
		return err
	}
	asset = strings.TrimSpace(asset)
	to = strings.TrimSpace(to)
	if asset == "" || to == "" {
		return domainerrors.ErrInvalidAddress
	}
	if amount == 0 {
		return domainerrors.ErrInvalidAmount
	}
	if asset == admin.UnitAsset {
		return domainerrors.ErrCannotRecoverOwnAsset
	}

	vault, err := s.Repo.GetFeeBalance(ctx, asset, ledgerVault)
	if err != nil {
		return err
	}
	recoverable := vault
	if asset == admin.FeeAsset {
		escrow, err := s.Repo.GetEscrow(ctx, asset)
		if err != nil {
			return err
		}
		if escrow > recoverable {
			recoverable = 0
		} else {
			recoverable -= escrow
		}
	}
	if recoverable < amount {
		return domainerrors.ErrInsufficientFeeFunds
	}

	event, err := s.newEnvelope(ctx, EventAssetRecovered, "asset", asset, map[string]any{
		"asset":  asset,
		"to":     to,
		"amount": amount,
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		FeeTransfers: []ports.FeeTransfer{{
			Asset:  asset,
			From:   ledgerVault,
			To:     to,
			Amount: amount,
		}},
		Events: []ports.EventEnvelope{event},
	})
	return err
}

// SetRegistrar reassigns the registrar principal. Once the role is delegated
// to a gateway it is permanently locked and can never again be a single key.
func (s *Service) SetRegistrar(ctx context.Context, caller string, next entities.RegistrarPrincipal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireRegistrar(ctx, caller)
	if err != nil {
		return err
	}
	if admin.Registrar.Locked() {
		return domainerrors.ErrRegistrarLocked
	}
	next.Address = strings.TrimSpace(next.Address)
	if next.Address == "" {
		return domainerrors.ErrInvalidAddress
	}
	if next.Kind != entities.RegistrarKindDirect && next.Kind != entities.RegistrarKindGateway {
		return domainerrors.ErrInvalidAddress
	}
	admin.Registrar = next

	event, err := s.newEnvelope(ctx, EventRegistrarChanged, "registrar", next.Address, map[string]any{
		"registrar": next.Address,
		"kind":      string(next.Kind),
	})
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Admin:  &admin,
		Events: []ports.EventEnvelope{event},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("registrar changed",
		"event", "ledger_registrar_changed",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"registrar", next.Address,
		"kind", string(next.Kind),
	)
	return nil
}

// ChangeIssuer reassigns the issuer identity.
func (s *Service) ChangeIssuer(ctx context.Context, caller, issuer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireRegistrar(ctx, caller)
	if err != nil {
		return err
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return domainerrors.ErrInvalidAddress
	}
	admin.Issuer = issuer

	event, err := s.newEnvelope(ctx, EventIssuerChanged, "issuer", issuer, map[string]any{
		"issuer": issuer,
	})
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		Admin:  &admin,
		Events: []ports.EventEnvelope{event},
	})
	return err
}
