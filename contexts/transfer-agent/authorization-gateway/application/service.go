package application

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	domainerrors "quill/contexts/transfer-agent/authorization-gateway/domain/errors"
	"quill/contexts/transfer-agent/authorization-gateway/ports"
)

const (
	// DefaultFreshnessWindow bounds how long a proposal stays executable.
	DefaultFreshnessWindow = 7 * 24 * time.Hour
	// DefaultHoldDuration is the timed hold on delay-sensitive operations.
	DefaultHoldDuration = 24 * time.Hour
)

// Service is the gateway use-case layer. Every mutating operation runs under
// one mutex, computes its writes on copies of loaded state, and persists them
// through a single atomic Repository.Apply call. An operation's executed flag
// is committed before the target command is dispatched, so a re-entrant call
// back into the gateway can never execute the same operation twice.
type Service struct {
	Repo    ports.Repository
	Invoker ports.CommandInvoker
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger

	// SelfAddress is the identity the gateway presents to the ledger and the
	// only caller accepted by the self-governance entry points.
	SelfAddress        string
	HighValueThreshold uint64
	HoldDuration       time.Duration
	FreshnessWindow    time.Duration

	mu sync.Mutex
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) freshnessWindow() time.Duration {
	if s.FreshnessWindow <= 0 {
		return DefaultFreshnessWindow
	}
	return s.FreshnessWindow
}

func (s *Service) holdDuration() time.Duration {
	if s.HoldDuration <= 0 {
		return DefaultHoldDuration
	}
	return s.HoldDuration
}

func (s *Service) requireMember(ctx context.Context, caller string) (entities.Roster, error) {
	roster, err := s.Repo.GetRoster(ctx)
	if err != nil {
		return entities.Roster{}, err
	}
	if !roster.Contains(strings.TrimSpace(caller)) {
		return entities.Roster{}, domainerrors.ErrNotMember
	}
	return roster, nil
}

func (s *Service) requiresDelay(ctx context.Context, command entities.Command) (bool, error) {
	allowList, err := s.Repo.GetAllowList(ctx)
	if err != nil {
		return false, err
	}
	allowed := make(map[string]bool, len(allowList))
	for _, destination := range allowList {
		allowed[destination] = true
	}
	return command.RequiresDelay(s.HighValueThreshold, func(destination string) bool {
		return allowed[destination]
	}), nil
}

// Propose records a new operation with the proposer's implicit confirmation
// and the next sequential id. With a threshold of one this alone may trigger
// execution; a delay-sensitive command instead stays pending until the hold
// elapses and Execute is called.
func (s *Service) Propose(ctx context.Context, caller string, command entities.Command, value uint64) (uint64, error) {
	operationID, dispatch, err := s.proposeLocked(ctx, caller, command, value)
	if err != nil {
		return 0, err
	}
	if dispatch != nil {
		if err := s.dispatch(ctx, *dispatch); err != nil {
			return operationID, err
		}
	}
	return operationID, nil
}

func (s *Service) proposeLocked(ctx context.Context, caller string, command entities.Command, value uint64) (uint64, *entities.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller = strings.TrimSpace(caller)
	roster, err := s.requireMember(ctx, caller)
	if err != nil {
		return 0, nil, err
	}
	if !command.Kind.Valid() {
		return 0, nil, domainerrors.ErrInvalidCommand
	}

	operation := entities.Operation{
		Command:       command,
		Value:         value,
		Confirmations: []string{caller},
		SubmittedAt:   s.now(),
	}

	proposed, err := s.newEnvelope(ctx, EventOperationProposed, "proposer", caller, map[string]any{
		"proposer":      caller,
		"command_kind":  string(command.Kind),
		"value":         value,
		"confirmations": len(operation.Confirmations),
	})
	if err != nil {
		return 0, nil, err
	}
	mutation := ports.Mutation{
		Operation: &operation,
		Events:    []ports.EventEnvelope{proposed},
	}

	executeNow := false
	if operation.ConfirmationCount(roster) >= roster.Threshold {
		delayed, err := s.requiresDelay(ctx, command)
		if err != nil {
			return 0, nil, err
		}
		if delayed && !operation.HoldElapsedAt(s.now(), s.holdDuration()) {
			// The hold blocks immediate execution but never the proposal
			// itself; Execute picks the operation up once the hold elapses.
			ResolveLogger(s.Logger).Info("operation awaiting hold",
				"event", "gateway_operation_awaiting_hold",
				"module", "transfer-agent/authorization-gateway",
				"layer", "application",
				"command_kind", string(command.Kind),
			)
		} else {
			operation.Executed = true
			executeNow = true
			executed, err := s.newEnvelope(ctx, EventOperationExecuted, "proposer", caller, map[string]any{
				"command_kind":  string(command.Kind),
				"confirmations": len(operation.Confirmations),
			})
			if err != nil {
				return 0, nil, err
			}
			mutation.Events = append(mutation.Events, executed)
		}
	}

	operationID, err := s.Repo.Apply(ctx, mutation)
	if err != nil {
		return 0, nil, err
	}
	operation.OperationID = operationID

	ResolveLogger(s.Logger).Info("operation proposed",
		"event", "gateway_operation_proposed",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"operation_id", operationID,
		"proposer", caller,
		"command_kind", string(command.Kind),
	)
	if executeNow {
		return operationID, &operation, nil
	}
	return operationID, nil, nil
}

// Ratify records a member's confirmation. Reaching the threshold attempts
// immediate execution; if the hold has not elapsed on a delay-sensitive
// operation the whole call fails and the confirmation is not recorded, so
// the identical call must be resubmitted after the hold.
func (s *Service) Ratify(ctx context.Context, caller string, operationID uint64) error {
	dispatch, err := s.ratifyLocked(ctx, caller, operationID)
	if err != nil {
		return err
	}
	if dispatch != nil {
		return s.dispatch(ctx, *dispatch)
	}
	return nil
}

func (s *Service) ratifyLocked(ctx context.Context, caller string, operationID uint64) (*entities.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller = strings.TrimSpace(caller)
	roster, err := s.requireMember(ctx, caller)
	if err != nil {
		return nil, err
	}
	operation, err := s.Repo.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	// The executed check always takes precedence over the expiry check.
	if operation.Executed {
		return nil, domainerrors.ErrAlreadyExecuted
	}
	if operation.ExpiredAt(s.now(), s.freshnessWindow()) {
		return nil, domainerrors.ErrOperationExpired
	}
	if !operation.Confirm(caller) {
		return nil, domainerrors.ErrAlreadyConfirmed
	}

	confirmed, err := s.newEnvelope(ctx, EventOperationConfirmed, "operation_id", formatID(operationID), map[string]any{
		"operation_id":  operationID,
		"member":        caller,
		"confirmations": len(operation.Confirmations),
	})
	if err != nil {
		return nil, err
	}
	mutation := ports.Mutation{
		Operation: &operation,
		Events:    []ports.EventEnvelope{confirmed},
	}

	executeNow := false
	if operation.ConfirmationCount(roster) >= roster.Threshold {
		delayed, err := s.requiresDelay(ctx, operation.Command)
		if err != nil {
			return nil, err
		}
		if delayed && !operation.HoldElapsedAt(s.now(), s.holdDuration()) {
			return nil, domainerrors.ErrTimeLockNotExpired
		}
		operation.Executed = true
		executeNow = true
		executed, err := s.newEnvelope(ctx, EventOperationExecuted, "operation_id", formatID(operationID), map[string]any{
			"operation_id":  operationID,
			"command_kind":  string(operation.Command.Kind),
			"confirmations": len(operation.Confirmations),
		})
		if err != nil {
			return nil, err
		}
		mutation.Events = append(mutation.Events, executed)
	}

	if _, err := s.Repo.Apply(ctx, mutation); err != nil {
		return nil, err
	}

	ResolveLogger(s.Logger).Info("operation confirmed",
		"event", "gateway_operation_confirmed",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"operation_id", operationID,
		"member", caller,
		"confirmations", len(operation.Confirmations),
		"executed", operation.Executed,
	)
	if executeNow {
		return &operation, nil
	}
	return nil, nil
}

// Revoke withdraws a member's confirmation before execution. The operation
// itself survives with one fewer confirmation.
func (s *Service) Revoke(ctx context.Context, caller string, operationID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller = strings.TrimSpace(caller)
	if _, err := s.requireMember(ctx, caller); err != nil {
		return err
	}
	operation, err := s.Repo.GetOperation(ctx, operationID)
	if err != nil {
		return err
	}
	if operation.Executed {
		return domainerrors.ErrAlreadyExecuted
	}
	if !operation.RevokeConfirmation(caller) {
		return domainerrors.ErrNotConfirmed
	}

	revoked, err := s.newEnvelope(ctx, EventConfirmationRevoked, "operation_id", formatID(operationID), map[string]any{
		"operation_id":  operationID,
		"member":        caller,
		"confirmations": len(operation.Confirmations),
	})
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Operation: &operation,
		Events:    []ports.EventEnvelope{revoked},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("confirmation revoked",
		"event", "gateway_confirmation_revoked",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"operation_id", operationID,
		"member", caller,
	)
	return nil
}

// Execute is the manual path for an operation that reached its threshold but
// did not auto-execute, typically because the hold was still running.
func (s *Service) Execute(ctx context.Context, caller string, operationID uint64) error {
	dispatch, err := s.executeLocked(ctx, caller, operationID)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, *dispatch)
}

func (s *Service) executeLocked(ctx context.Context, caller string, operationID uint64) (*entities.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller = strings.TrimSpace(caller)
	roster, err := s.requireMember(ctx, caller)
	if err != nil {
		return nil, err
	}
	operation, err := s.Repo.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if operation.Executed {
		return nil, domainerrors.ErrAlreadyExecuted
	}
	if operation.ExpiredAt(s.now(), s.freshnessWindow()) {
		return nil, domainerrors.ErrOperationExpired
	}
	if operation.ConfirmationCount(roster) < roster.Threshold {
		return nil, domainerrors.ErrInsufficientConfirmations
	}
	delayed, err := s.requiresDelay(ctx, operation.Command)
	if err != nil {
		return nil, err
	}
	if delayed && !operation.HoldElapsedAt(s.now(), s.holdDuration()) {
		return nil, domainerrors.ErrTimeLockNotExpired
	}

	operation.Executed = true
	executed, err := s.newEnvelope(ctx, EventOperationExecuted, "operation_id", formatID(operationID), map[string]any{
		"operation_id":  operationID,
		"command_kind":  string(operation.Command.Kind),
		"confirmations": len(operation.Confirmations),
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Operation: &operation,
		Events:    []ports.EventEnvelope{executed},
	}); err != nil {
		return nil, err
	}
	return &operation, nil
}

// dispatch hands an executed operation's command to the invoker. It runs
// outside the service mutex: the executed flag is already committed, so a
// target calling back into the gateway sees the final state and cannot
// deadlock. The flag stays true even when the target fails; the failure is
// surfaced to the caller and a fresh proposal is required to retry.
func (s *Service) dispatch(ctx context.Context, operation entities.Operation) error {
	if s.Invoker == nil {
		return nil
	}
	if err := s.Invoker.Invoke(ctx, operation.Command); err != nil {
		ResolveLogger(s.Logger).Error("command dispatch failed",
			"event", "gateway_dispatch_failed",
			"module", "transfer-agent/authorization-gateway",
			"layer", "application",
			"operation_id", operation.OperationID,
			"command_kind", string(operation.Command.Kind),
			"error", err.Error(),
		)
		return err
	}
	ResolveLogger(s.Logger).Info("operation executed",
		"event", "gateway_operation_executed",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"operation_id", operation.OperationID,
		"command_kind", string(operation.Command.Kind),
	)
	return nil
}

func formatID(operationID uint64) string {
	return strconv.FormatUint(operationID, 10)
}
