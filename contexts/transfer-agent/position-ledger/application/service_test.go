package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/contexts/transfer-agent/position-ledger/adapters/memory"
	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	"quill/contexts/transfer-agent/position-ledger/ports"
)

const (
	testRegistrar = "registrar"
	testFeeAsset  = "fee-credit"
	testUnitAsset = "restricted-security"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(ports.AdminState{
		Registrar: entities.RegistrarPrincipal{
			Kind:    entities.RegistrarKindDirect,
			Address: testRegistrar,
		},
		Issuer:    "issuer",
		UnitAsset: testUnitAsset,
		FeeAsset:  testFeeAsset,
		FeePolicy: entities.FeePolicy{Mode: entities.FeeModeFlat, FlatAmount: 25},
	})
	service := &Service{
		Repo:  store,
		Clock: fixedClock{now: testNow},
		IDGen: store,
	}
	return service, store
}

func mustIssue(t *testing.T, s *Service, holder string, amount uint64, class string, date time.Time) {
	t.Helper()
	if err := s.Issue(context.Background(), testRegistrar, holder, amount, class, date); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
}

func TestIssueMergesIntoExistingBatch(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	issued := testNow.Add(-24 * time.Hour)

	mustIssue(t, service, "alice", 1000, "reg-d", issued)
	mustIssue(t, service, "alice", 500, "reg-d", issued)

	batches, err := service.BatchesOf(ctx, "alice")
	if err != nil {
		t.Fatalf("batches query failed: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected one merged batch, got %d", len(batches))
	}
	if batches[0].Amount != 1500 {
		t.Fatalf("expected merged amount 1500, got %d", batches[0].Amount)
	}
	balance, err := service.BalanceOf(ctx, "alice")
	if err != nil {
		t.Fatalf("balance query failed: %v", err)
	}
	if balance != 1500 {
		t.Fatalf("expected balance 1500, got %d", balance)
	}
}

func TestIssueRejectsFutureDateAcceptsNow(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if err := service.Issue(ctx, testRegistrar, "alice", 10, "reg-d", testNow); err != nil {
		t.Fatalf("expected issuance dated at the current instant to pass, got %v", err)
	}
	err := service.Issue(ctx, testRegistrar, "alice", 10, "reg-d", testNow.Add(time.Second))
	if !errors.Is(err, domainerrors.ErrInvalidIssuanceDate) {
		t.Fatalf("expected ErrInvalidIssuanceDate, got %v", err)
	}
	err = service.Issue(ctx, testRegistrar, "alice", 10, "reg-d", time.Time{})
	if !errors.Is(err, domainerrors.ErrInvalidIssuanceDate) {
		t.Fatalf("expected ErrInvalidIssuanceDate for zero date, got %v", err)
	}
}

func TestIssueRequiresRegistrar(t *testing.T) {
	service, _ := newTestService(t)

	err := service.Issue(context.Background(), "mallory", "alice", 10, "reg-d", testNow)
	if !errors.Is(err, domainerrors.ErrNotRegistrar) {
		t.Fatalf("expected ErrNotRegistrar, got %v", err)
	}
}

func TestIssueBulkValidatesArrays(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	err := service.IssueBulk(ctx, testRegistrar, nil, nil, nil, nil)
	if !errors.Is(err, domainerrors.ErrEmptyBatchInput) {
		t.Fatalf("expected ErrEmptyBatchInput, got %v", err)
	}
	err = service.IssueBulk(ctx, testRegistrar,
		[]string{"alice", "bob"},
		[]uint64{10},
		[]string{"reg-d", "reg-d"},
		[]time.Time{testNow, testNow},
	)
	if !errors.Is(err, domainerrors.ErrArrayLengthMismatch) {
		t.Fatalf("expected ErrArrayLengthMismatch, got %v", err)
	}
}

func TestIssueBulkFailsAtomically(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	err := service.IssueBulk(ctx, testRegistrar,
		[]string{"alice", "bob"},
		[]uint64{10, 0},
		[]string{"reg-d", "reg-d"},
		[]time.Time{testNow, testNow},
	)
	if !errors.Is(err, domainerrors.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	balance, err := service.BalanceOf(ctx, "alice")
	if err != nil {
		t.Fatalf("balance query failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected no partial issuance, got %d", balance)
	}
}

func TestBurnAllConsumesFIFOAcrossClasses(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	older := testNow.Add(-48 * time.Hour)
	newer := testNow.Add(-24 * time.Hour)

	mustIssue(t, service, "alice", 300, "reg-d", newer)
	mustIssue(t, service, "alice", 300, "reg-s", older)

	oldest, err := service.BurnAll(ctx, testRegistrar, "alice", 400)
	if err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	if !oldest.Equal(older) {
		t.Fatalf("expected oldest touched %v, got %v", older, oldest)
	}
	batches, err := service.BatchesOf(ctx, "alice")
	if err != nil {
		t.Fatalf("batches query failed: %v", err)
	}
	if len(batches) != 1 || batches[0].ExemptionClass != "reg-d" || batches[0].Amount != 200 {
		t.Fatalf("expected one reg-d batch of 200, got %+v", batches)
	}
}

func TestBurnAllInsufficientLeavesStateUntouched(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	mustIssue(t, service, "alice", 100, "reg-d", testNow.Add(-time.Hour))

	_, err := service.BurnAll(ctx, testRegistrar, "alice", 101)
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	balance, _ := service.BalanceOf(ctx, "alice")
	if balance != 100 {
		t.Fatalf("expected balance untouched, got %d", balance)
	}
}

func TestBurnByClassIgnoresOtherClasses(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	mustIssue(t, service, "alice", 300, "reg-s", testNow.Add(-48*time.Hour))
	mustIssue(t, service, "alice", 100, "reg-d", testNow.Add(-24*time.Hour))

	_, err := service.BurnByClass(ctx, testRegistrar, "alice", 200, "reg-d")
	if !errors.Is(err, domainerrors.ErrInsufficientClassBalance) {
		t.Fatalf("expected ErrInsufficientClassBalance, got %v", err)
	}
	if _, err := service.BurnByClass(ctx, testRegistrar, "alice", 100, "reg-d"); err != nil {
		t.Fatalf("class burn failed: %v", err)
	}
	supply, err := service.Supply(ctx)
	if err != nil {
		t.Fatalf("supply query failed: %v", err)
	}
	if supply.Total != 300 || supply.ByClass["reg-s"] != 300 {
		t.Fatalf("expected reg-s untouched, got %+v", supply)
	}
}

func TestBurnExactTargetsSingleBatch(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	older := testNow.Add(-48 * time.Hour)
	newer := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", older)
	mustIssue(t, service, "alice", 100, "reg-d", newer)

	err := service.BurnExact(ctx, testRegistrar, "alice", 50, "reg-d", testNow)
	if !errors.Is(err, domainerrors.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound for wrong date, got %v", err)
	}
	err = service.BurnExact(ctx, testRegistrar, "alice", 150, "reg-d", newer)
	if !errors.Is(err, domainerrors.ErrInsufficientBatchBalance) {
		t.Fatalf("expected ErrInsufficientBatchBalance, got %v", err)
	}
	if err := service.BurnExact(ctx, testRegistrar, "alice", 100, "reg-d", newer); err != nil {
		t.Fatalf("exact burn failed: %v", err)
	}
	batches, _ := service.BatchesOf(ctx, "alice")
	if len(batches) != 1 || !batches[0].IssuanceDate.Equal(older) {
		t.Fatalf("expected only the older batch to survive, got %+v", batches)
	}
}

func TestMoveExactPreservesBatchKey(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	issued := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", issued)

	if err := service.MoveExact(ctx, testRegistrar, "alice", "bob", 40, "reg-d", issued); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	batches, err := service.BatchesOf(ctx, "bob")
	if err != nil {
		t.Fatalf("batches query failed: %v", err)
	}
	if len(batches) != 1 || batches[0].ExemptionClass != "reg-d" || !batches[0].IssuanceDate.Equal(issued) {
		t.Fatalf("expected recipient batch under the same key, got %+v", batches)
	}
	if batches[0].Amount != 40 {
		t.Fatalf("expected 40 moved, got %d", batches[0].Amount)
	}
	balance, _ := service.BalanceOf(ctx, "alice")
	if balance != 60 {
		t.Fatalf("expected sender left with 60, got %d", balance)
	}
}

func TestMoveExactBlockedByFrozenEndpoint(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	issued := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", issued)

	if err := service.SetFrozen(ctx, testRegistrar, "bob", true); err != nil {
		t.Fatalf("set frozen failed: %v", err)
	}
	err := service.MoveExact(ctx, testRegistrar, "alice", "bob", 40, "reg-d", issued)
	if !errors.Is(err, domainerrors.ErrComplianceCheckFailed) {
		t.Fatalf("expected ErrComplianceCheckFailed, got %v", err)
	}
	if err := service.SetFrozen(ctx, testRegistrar, "bob", false); err != nil {
		t.Fatalf("unfreeze failed: %v", err)
	}
	if err := service.MoveExact(ctx, testRegistrar, "alice", "bob", 40, "reg-d", issued); err != nil {
		t.Fatalf("move after unfreeze failed: %v", err)
	}
}

func TestMoveExactSelfMoveIsValidatedNoOp(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	issued := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", issued)

	err := service.MoveExact(ctx, testRegistrar, "alice", "alice", 200, "reg-d", issued)
	if !errors.Is(err, domainerrors.ErrInsufficientBatchBalance) {
		t.Fatalf("expected self-move to validate the amount, got %v", err)
	}
	if err := service.MoveExact(ctx, testRegistrar, "alice", "alice", 100, "reg-d", issued); err != nil {
		t.Fatalf("self-move no-op failed: %v", err)
	}
	balance, _ := service.BalanceOf(ctx, "alice")
	if balance != 100 {
		t.Fatalf("expected balance unchanged after self-move, got %d", balance)
	}
}

func TestMoveBulkFailsAtomically(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	issued := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", issued)

	err := service.MoveBulk(ctx, testRegistrar,
		[]string{"alice", "alice"},
		[]string{"bob", "carol"},
		[]uint64{60, 60},
		[]string{"reg-d", "reg-d"},
		[]time.Time{issued, issued},
	)
	if !errors.Is(err, domainerrors.ErrInsufficientBatchBalance) {
		t.Fatalf("expected ErrInsufficientBatchBalance, got %v", err)
	}
	balance, _ := service.BalanceOf(ctx, "bob")
	if balance != 0 {
		t.Fatalf("expected no partial move, bob has %d", balance)
	}
}

func TestForcedMoveBypassesComplianceGate(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	older := testNow.Add(-48 * time.Hour)
	newer := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", newer)
	mustIssue(t, service, "alice", 100, "reg-s", older)

	if err := service.SetFrozen(ctx, testRegistrar, "alice", true); err != nil {
		t.Fatalf("set frozen failed: %v", err)
	}
	if err := service.ForcedMove(ctx, testRegistrar, "alice", "estate", 150, "court-order-17"); err != nil {
		t.Fatalf("forced move failed: %v", err)
	}
	batches, _ := service.BatchesOf(ctx, "estate")
	if len(batches) != 2 {
		t.Fatalf("expected two batch keys at destination, got %+v", batches)
	}
	if !batches[0].IssuanceDate.Equal(older) || batches[0].Amount != 100 {
		t.Fatalf("expected oldest batch moved whole, got %+v", batches[0])
	}
	balance, _ := service.BalanceOf(ctx, "alice")
	if balance != 50 {
		t.Fatalf("expected 50 left with alice, got %d", balance)
	}
}

func TestForcedMoveSelfMoveValidatesBalance(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	mustIssue(t, service, "alice", 100, "reg-d", testNow.Add(-time.Hour))

	err := service.ForcedMove(ctx, testRegistrar, "alice", "alice", 200, "")
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := service.ForcedMove(ctx, testRegistrar, "alice", "alice", 100, ""); err != nil {
		t.Fatalf("forced self-move no-op failed: %v", err)
	}
	balance, _ := service.BalanceOf(ctx, "alice")
	if balance != 100 {
		t.Fatalf("expected balance unchanged, got %d", balance)
	}
}

func TestSupplyAggregatesByClass(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	mustIssue(t, service, "alice", 100, "reg-d", testNow.Add(-time.Hour))
	mustIssue(t, service, "bob", 200, "reg-d", testNow.Add(-time.Hour))
	mustIssue(t, service, "bob", 50, "reg-s", testNow.Add(-time.Hour))

	supply, err := service.Supply(ctx)
	if err != nil {
		t.Fatalf("supply query failed: %v", err)
	}
	if supply.Total != 350 {
		t.Fatalf("expected total 350, got %d", supply.Total)
	}
	if supply.ByClass["reg-d"] != 300 || supply.ByClass["reg-s"] != 50 {
		t.Fatalf("unexpected per-class supply: %+v", supply.ByClass)
	}
}
