package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/contexts/transfer-agent/authorization-gateway/adapters/memory"
	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	domainerrors "quill/contexts/transfer-agent/authorization-gateway/domain/errors"
)

var gatewayNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingInvoker struct {
	commands []entities.Command
	err      error
}

func (r *recordingInvoker) Invoke(_ context.Context, command entities.Command) error {
	r.commands = append(r.commands, command)
	return r.err
}

func newGatewayService(t *testing.T, threshold int, members ...string) (*Service, *memory.Store, *fakeClock, *recordingInvoker) {
	t.Helper()
	store := memory.NewStore(entities.Roster{Members: members, Threshold: threshold})
	clock := &fakeClock{now: gatewayNow}
	invoker := &recordingInvoker{}
	service := &Service{
		Repo:               store,
		Invoker:            invoker,
		Clock:              clock,
		IDGen:              store,
		SelfAddress:        "gateway",
		HighValueThreshold: 1000,
		HoldDuration:       24 * time.Hour,
		FreshnessWindow:    7 * 24 * time.Hour,
	}
	return service, store, clock, invoker
}

func lowValueMove() entities.Command {
	return entities.Command{Kind: entities.KindMoveExact, From: "alice", To: "bob", Amount: 10, ExemptionClass: "reg-d"}
}

func highValueMove() entities.Command {
	return entities.Command{Kind: entities.KindMoveExact, From: "alice", To: "bob", Amount: 1000, ExemptionClass: "reg-d"}
}

func TestProposeRequiresMembership(t *testing.T) {
	service, _, _, _ := newGatewayService(t, 1, "a")

	_, err := service.Propose(context.Background(), "mallory", lowValueMove(), 0)
	if !errors.Is(err, domainerrors.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestProposeRejectsUnknownKind(t *testing.T) {
	service, _, _, _ := newGatewayService(t, 1, "a")

	_, err := service.Propose(context.Background(), "a", entities.Command{Kind: "bogus"}, 0)
	if !errors.Is(err, domainerrors.ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
}

func TestProposeThresholdOneExecutesImmediately(t *testing.T) {
	service, _, _, invoker := newGatewayService(t, 1, "a")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", lowValueMove(), 10)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if operationID != 1 {
		t.Fatalf("expected first operation id 1, got %d", operationID)
	}
	operation, err := service.OperationByID(ctx, operationID)
	if err != nil {
		t.Fatalf("operation query failed: %v", err)
	}
	if !operation.Executed {
		t.Fatalf("expected immediate execution at threshold one")
	}
	if len(invoker.commands) != 1 || invoker.commands[0].Kind != entities.KindMoveExact {
		t.Fatalf("expected one dispatched command, got %+v", invoker.commands)
	}
}

func TestProposeCountsProposerConfirmation(t *testing.T) {
	service, _, _, invoker := newGatewayService(t, 2, "a", "b")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", lowValueMove(), 0)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	confirmed, err := service.IsConfirmedBy(ctx, operationID, "a")
	if err != nil || !confirmed {
		t.Fatalf("expected the proposer's implicit confirmation, got %v err %v", confirmed, err)
	}
	operation, _ := service.OperationByID(ctx, operationID)
	if operation.Executed {
		t.Fatalf("expected operation below threshold to stay pending")
	}
	if len(invoker.commands) != 0 {
		t.Fatalf("expected no dispatch below threshold")
	}
}

func TestRatifyAtThresholdExecutes(t *testing.T) {
	service, _, _, invoker := newGatewayService(t, 2, "a", "b", "c")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", lowValueMove(), 0)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if err := service.Ratify(ctx, "b", operationID); err != nil {
		t.Fatalf("ratify failed: %v", err)
	}
	operation, _ := service.OperationByID(ctx, operationID)
	if !operation.Executed || len(operation.Confirmations) != 2 {
		t.Fatalf("expected execution with two confirmations, got %+v", operation)
	}
	if len(invoker.commands) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(invoker.commands))
	}
}

func TestRatifyTwiceBySameMemberFails(t *testing.T) {
	service, _, _, _ := newGatewayService(t, 3, "a", "b", "c")
	ctx := context.Background()

	operationID, _ := service.Propose(ctx, "a", lowValueMove(), 0)
	if err := service.Ratify(ctx, "a", operationID); !errors.Is(err, domainerrors.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	if err := service.Ratify(ctx, "b", operationID); err != nil {
		t.Fatalf("ratify by another member failed: %v", err)
	}
	if err := service.Ratify(ctx, "b", operationID); !errors.Is(err, domainerrors.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed on repeat, got %v", err)
	}
}

func TestRatifyUnknownOperation(t *testing.T) {
	service, _, _, _ := newGatewayService(t, 1, "a")

	err := service.Ratify(context.Background(), "a", 42)
	if !errors.Is(err, domainerrors.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestHighValueMoveWaitsOutTheHold(t *testing.T) {
	service, _, clock, invoker := newGatewayService(t, 2, "a", "b", "c")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", highValueMove(), 1000)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	// The threshold-reaching ratification inside the hold fails whole: no
	// execution and no recorded confirmation.
	err = service.Ratify(ctx, "b", operationID)
	if !errors.Is(err, domainerrors.ErrTimeLockNotExpired) {
		t.Fatalf("expected ErrTimeLockNotExpired, got %v", err)
	}
	confirmed, _ := service.IsConfirmedBy(ctx, operationID, "b")
	if confirmed {
		t.Fatalf("failed ratification must not record a confirmation")
	}
	if len(invoker.commands) != 0 {
		t.Fatalf("expected no dispatch during the hold")
	}

	clock.advance(24 * time.Hour)
	if err := service.Ratify(ctx, "b", operationID); err != nil {
		t.Fatalf("ratify after the hold failed: %v", err)
	}
	operation, _ := service.OperationByID(ctx, operationID)
	if !operation.Executed {
		t.Fatalf("expected execution once the hold elapsed")
	}
	if len(invoker.commands) != 1 || invoker.commands[0].Amount != 1000 {
		t.Fatalf("expected the held command dispatched, got %+v", invoker.commands)
	}
}

func TestHighValueProposalAtThresholdStaysPending(t *testing.T) {
	service, _, clock, invoker := newGatewayService(t, 1, "a")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", highValueMove(), 1000)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	operation, _ := service.OperationByID(ctx, operationID)
	if operation.Executed {
		t.Fatalf("expected the hold to block immediate execution")
	}
	if len(invoker.commands) != 0 {
		t.Fatalf("expected no dispatch during the hold")
	}

	err = service.Execute(ctx, "a", operationID)
	if !errors.Is(err, domainerrors.ErrTimeLockNotExpired) {
		t.Fatalf("expected ErrTimeLockNotExpired, got %v", err)
	}

	clock.advance(24 * time.Hour)
	if err := service.Execute(ctx, "a", operationID); err != nil {
		t.Fatalf("execute after the hold failed: %v", err)
	}
	operation, _ = service.OperationByID(ctx, operationID)
	if !operation.Executed {
		t.Fatalf("expected executed after manual execute")
	}
	if len(invoker.commands) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(invoker.commands))
	}
}

func TestRatifyExpiredOperationFails(t *testing.T) {
	service, _, clock, _ := newGatewayService(t, 2, "a", "b")
	ctx := context.Background()

	operationID, _ := service.Propose(ctx, "a", lowValueMove(), 0)
	clock.advance(7*24*time.Hour + time.Second)

	err := service.Ratify(ctx, "b", operationID)
	if !errors.Is(err, domainerrors.ErrOperationExpired) {
		t.Fatalf("expected ErrOperationExpired, got %v", err)
	}
	confirmed, _ := service.IsConfirmedBy(ctx, operationID, "b")
	if confirmed {
		t.Fatalf("expired ratification must not record a confirmation")
	}
	expired, err := service.IsExpired(ctx, operationID)
	if err != nil || !expired {
		t.Fatalf("expected the query to report expired, got %v err %v", expired, err)
	}
}

func TestExecutedWinsOverExpired(t *testing.T) {
	service, _, clock, _ := newGatewayService(t, 1, "a", "b")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", lowValueMove(), 0)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	clock.advance(8 * 24 * time.Hour)

	err = service.Ratify(ctx, "b", operationID)
	if !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted to take precedence, got %v", err)
	}
	err = service.Execute(ctx, "b", operationID)
	if !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted on execute, got %v", err)
	}
}

func TestRevokeWithdrawsConfirmationOnly(t *testing.T) {
	service, _, _, _ := newGatewayService(t, 2, "a", "b")
	ctx := context.Background()

	operationID, _ := service.Propose(ctx, "a", lowValueMove(), 0)
	if err := service.Revoke(ctx, "a", operationID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	operation, err := service.OperationByID(ctx, operationID)
	if err != nil {
		t.Fatalf("operation must survive its last revocation: %v", err)
	}
	if len(operation.Confirmations) != 0 {
		t.Fatalf("expected zero confirmations, got %v", operation.Confirmations)
	}
	if err := service.Revoke(ctx, "a", operationID); !errors.Is(err, domainerrors.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	// The member may confirm again later.
	if err := service.Ratify(ctx, "a", operationID); err != nil {
		t.Fatalf("re-ratify after revoke failed: %v", err)
	}
}

func TestRevokeExecutedOperationFails(t *testing.T) {
	service, _, _, _ := newGatewayService(t, 1, "a")
	ctx := context.Background()

	operationID, _ := service.Propose(ctx, "a", lowValueMove(), 0)
	err := service.Revoke(ctx, "a", operationID)
	if !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted, got %v", err)
	}
}

func TestExecuteBelowThresholdFails(t *testing.T) {
	service, _, _, _ := newGatewayService(t, 2, "a", "b")
	ctx := context.Background()

	operationID, _ := service.Propose(ctx, "a", lowValueMove(), 0)
	err := service.Execute(ctx, "b", operationID)
	if !errors.Is(err, domainerrors.ErrInsufficientConfirmations) {
		t.Fatalf("expected ErrInsufficientConfirmations, got %v", err)
	}
}

func TestDispatchFailureKeepsExecutedFlag(t *testing.T) {
	service, _, _, invoker := newGatewayService(t, 1, "a")
	invoker.err = errors.New("ledger unavailable")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", lowValueMove(), 0)
	if err == nil {
		t.Fatalf("expected the dispatch failure surfaced")
	}
	if operationID == 0 {
		t.Fatalf("expected the operation id even on dispatch failure")
	}
	operation, queryErr := service.OperationByID(ctx, operationID)
	if queryErr != nil {
		t.Fatalf("operation query failed: %v", queryErr)
	}
	if !operation.Executed {
		t.Fatalf("executed is monotonic; a failed dispatch must not reset it")
	}
	err = service.Ratify(ctx, "a", operationID)
	if !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted after failed dispatch, got %v", err)
	}
}

func TestAllowListedDestinationSkipsHold(t *testing.T) {
	service, _, _, invoker := newGatewayService(t, 1, "a")
	ctx := context.Background()

	if err := service.AllowDestination(ctx, "gateway", "bob"); err != nil {
		t.Fatalf("allow destination failed: %v", err)
	}
	operationID, err := service.Propose(ctx, "a", highValueMove(), 1000)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	operation, _ := service.OperationByID(ctx, operationID)
	if !operation.Executed {
		t.Fatalf("expected immediate execution to a pre-vetted destination")
	}
	if len(invoker.commands) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(invoker.commands))
	}

	delayed, err := service.RequiresDelay(ctx, highValueMove())
	if err != nil || delayed {
		t.Fatalf("expected the delay query to report exempt, got %v err %v", delayed, err)
	}
}

func TestRatifyAfterProposerRemovedNeedsFreshQuorum(t *testing.T) {
	service, _, _, invoker := newGatewayService(t, 2, "a", "b", "c")
	ctx := context.Background()

	operationID, err := service.Propose(ctx, "a", lowValueMove(), 0)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if err := service.RemoveMember(ctx, "gateway", "a"); err != nil {
		t.Fatalf("remove member failed: %v", err)
	}

	// The removed proposer's confirmation stays on the record but no longer
	// counts, so b's ratification alone leaves the operation pending.
	if err := service.Ratify(ctx, "b", operationID); err != nil {
		t.Fatalf("ratify failed: %v", err)
	}
	operation, err := service.OperationByID(ctx, operationID)
	if err != nil {
		t.Fatalf("operation query failed: %v", err)
	}
	if operation.Executed {
		t.Fatalf("expected the operation pending with one current-member confirmation")
	}
	if len(invoker.commands) != 0 {
		t.Fatalf("expected no dispatch below quorum, got %+v", invoker.commands)
	}
	err = service.Execute(ctx, "b", operationID)
	if !errors.Is(err, domainerrors.ErrInsufficientConfirmations) {
		t.Fatalf("expected ErrInsufficientConfirmations, got %v", err)
	}

	if err := service.Ratify(ctx, "c", operationID); err != nil {
		t.Fatalf("ratify by c failed: %v", err)
	}
	operation, err = service.OperationByID(ctx, operationID)
	if err != nil || !operation.Executed {
		t.Fatalf("expected execution once two current members confirmed, got %+v err %v", operation, err)
	}
	if len(invoker.commands) != 1 {
		t.Fatalf("expected one dispatched command, got %d", len(invoker.commands))
	}
}
