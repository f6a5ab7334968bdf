package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
)

func TestQuoteFeeFollowsPolicy(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	fee, asset, err := service.QuoteFee(ctx, "alice", "bob", 1000)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if fee != 25 || asset != testFeeAsset {
		t.Fatalf("expected flat 25 %s, got %d %s", testFeeAsset, fee, asset)
	}

	policy := entities.FeePolicy{Mode: entities.FeeModePercent, RateBps: 50}
	if err := service.SetFeePolicy(ctx, testRegistrar, policy); err != nil {
		t.Fatalf("set policy failed: %v", err)
	}
	fee, _, err = service.QuoteFee(ctx, "alice", "bob", 1000)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if fee != 5 {
		t.Fatalf("expected 50bps of 1000 to be 5, got %d", fee)
	}
}

func TestRequestTransferRejectsWrongFee(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.RequestTransfer(ctx, "alice", "alice", "bob", 100, "usdc", 25)
	if !errors.Is(err, domainerrors.ErrUnsupportedFeeAsset) {
		t.Fatalf("expected ErrUnsupportedFeeAsset, got %v", err)
	}
	_, err = service.RequestTransfer(ctx, "alice", "alice", "bob", 100, testFeeAsset, 24)
	if !errors.Is(err, domainerrors.ErrFeeMismatch) {
		t.Fatalf("expected ErrFeeMismatch, got %v", err)
	}
	_, err = service.RequestTransfer(ctx, "alice", "alice", "bob", 100, testFeeAsset, 25)
	if !errors.Is(err, domainerrors.ErrInsufficientFeeFunds) {
		t.Fatalf("expected ErrInsufficientFeeFunds with no deposit, got %v", err)
	}
}

func TestRequestTransferEscrowsQuotedFee(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if err := service.DepositFeeFunds(ctx, "alice", testFeeAsset, 100); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	requestID, err := service.RequestTransfer(ctx, "alice", "alice", "bob", 40, testFeeAsset, 25)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if requestID == 0 {
		t.Fatalf("expected assigned request id")
	}

	balance, err := service.FeeBalanceOf(ctx, testFeeAsset, "alice")
	if err != nil {
		t.Fatalf("fee balance query failed: %v", err)
	}
	if balance != 75 {
		t.Fatalf("expected 75 left after escrow, got %d", balance)
	}
	escrow, asset, err := service.EscrowBalance(ctx)
	if err != nil {
		t.Fatalf("escrow query failed: %v", err)
	}
	if escrow != 25 || asset != testFeeAsset {
		t.Fatalf("expected escrow 25 %s, got %d %s", testFeeAsset, escrow, asset)
	}

	request, err := service.RequestByID(ctx, requestID)
	if err != nil {
		t.Fatalf("request query failed: %v", err)
	}
	if request.Status != entities.RequestStatusPending || request.Requester != "alice" {
		t.Fatalf("unexpected request record: %+v", request)
	}
}

func TestRequestTransferByBrokerNeedsApproval(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if err := service.DepositFeeFunds(ctx, "carol", testFeeAsset, 100); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	_, err := service.RequestTransfer(ctx, "carol", "alice", "bob", 40, testFeeAsset, 25)
	if !errors.Is(err, domainerrors.ErrNotHolderOrBroker) {
		t.Fatalf("expected ErrNotHolderOrBroker, got %v", err)
	}
	if err := service.SetBrokerApproved(ctx, testRegistrar, "carol", true); err != nil {
		t.Fatalf("broker approval failed: %v", err)
	}
	if _, err := service.RequestTransfer(ctx, "carol", "alice", "bob", 40, testFeeAsset, 25); err != nil {
		t.Fatalf("broker request failed: %v", err)
	}
	balance, _ := service.FeeBalanceOf(ctx, testFeeAsset, "carol")
	if balance != 75 {
		t.Fatalf("expected the broker to pay the fee, balance %d", balance)
	}
}

func TestProcessRequestApproveMovesUnitsOnce(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	issued := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", issued)
	if err := service.DepositFeeFunds(ctx, "alice", testFeeAsset, 25); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	requestID, err := service.RequestTransfer(ctx, "alice", "alice", "bob", 60, testFeeAsset, 25)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if err := service.ProcessRequest(ctx, testRegistrar, requestID, true); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	balance, _ := service.BalanceOf(ctx, "bob")
	if balance != 60 {
		t.Fatalf("expected 60 delivered, got %d", balance)
	}
	request, _ := service.RequestByID(ctx, requestID)
	if request.Status != entities.RequestStatusExecuted {
		t.Fatalf("expected executed status, got %s", request.Status)
	}
	escrow, _, _ := service.EscrowBalance(ctx)
	if escrow != 25 {
		t.Fatalf("expected fee kept in escrow after execution, got %d", escrow)
	}

	err = service.ProcessRequest(ctx, testRegistrar, requestID, true)
	if !errors.Is(err, domainerrors.ErrRequestAlreadyFinalized) {
		t.Fatalf("expected ErrRequestAlreadyFinalized, got %v", err)
	}
}

func TestProcessRequestApproveFailsWhenBalanceGone(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	issued := testNow.Add(-24 * time.Hour)
	mustIssue(t, service, "alice", 100, "reg-d", issued)
	if err := service.DepositFeeFunds(ctx, "alice", testFeeAsset, 25); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	requestID, err := service.RequestTransfer(ctx, "alice", "alice", "bob", 60, testFeeAsset, 25)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if _, err := service.BurnAll(ctx, testRegistrar, "alice", 50); err != nil {
		t.Fatalf("burn failed: %v", err)
	}

	err = service.ProcessRequest(ctx, testRegistrar, requestID, true)
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	request, _ := service.RequestByID(ctx, requestID)
	if request.Status != entities.RequestStatusPending {
		t.Fatalf("expected request to stay pending, got %s", request.Status)
	}
}

func TestRejectRequestWithRefundRestoresFee(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	if err := service.DepositFeeFunds(ctx, "alice", testFeeAsset, 100); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	requestID, err := service.RequestTransfer(ctx, "alice", "alice", "bob", 40, testFeeAsset, 25)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if err := service.RejectRequest(ctx, testRegistrar, requestID, "kyc_failed", true); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	balance, _ := service.FeeBalanceOf(ctx, testFeeAsset, "alice")
	if balance != 100 {
		t.Fatalf("expected full refund to the requester, got %d", balance)
	}
	escrow, _, _ := service.EscrowBalance(ctx)
	if escrow != 0 {
		t.Fatalf("expected escrow drained by refund, got %d", escrow)
	}
	request, _ := service.RequestByID(ctx, requestID)
	if request.Status != entities.RequestStatusRejected || !request.Refunded || request.ReasonCode != "kyc_failed" {
		t.Fatalf("unexpected rejected record: %+v", request)
	}

	err = service.RejectRequest(ctx, testRegistrar, requestID, "again", true)
	if !errors.Is(err, domainerrors.ErrRequestAlreadyFinalized) {
		t.Fatalf("expected ErrRequestAlreadyFinalized, got %v", err)
	}
}

func TestProcessRequestDeclineKeepsFee(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	if err := service.DepositFeeFunds(ctx, "alice", testFeeAsset, 25); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	requestID, err := service.RequestTransfer(ctx, "alice", "alice", "bob", 40, testFeeAsset, 25)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if err := service.ProcessRequest(ctx, testRegistrar, requestID, false); err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	request, _ := service.RequestByID(ctx, requestID)
	if request.Status != entities.RequestStatusRejected || request.Refunded {
		t.Fatalf("expected no-refund rejection, got %+v", request)
	}
	escrow, _, _ := service.EscrowBalance(ctx)
	if escrow != 25 {
		t.Fatalf("expected fee kept in escrow, got %d", escrow)
	}
}

func TestSetRequestStatusRefusesTerminal(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	if err := service.DepositFeeFunds(ctx, "alice", testFeeAsset, 25); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	requestID, err := service.RequestTransfer(ctx, "alice", "alice", "bob", 40, testFeeAsset, 25)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	err = service.SetRequestStatus(ctx, testRegistrar, requestID, entities.RequestStatus("bogus"))
	if !errors.Is(err, domainerrors.ErrInvalidRequestStatus) {
		t.Fatalf("expected ErrInvalidRequestStatus, got %v", err)
	}
	if err := service.SetRequestStatus(ctx, testRegistrar, requestID, entities.RequestStatusUnderReview); err != nil {
		t.Fatalf("status override failed: %v", err)
	}
	if err := service.RejectRequest(ctx, testRegistrar, requestID, "stale", false); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	err = service.SetRequestStatus(ctx, testRegistrar, requestID, entities.RequestStatusPending)
	if !errors.Is(err, domainerrors.ErrRequestAlreadyFinalized) {
		t.Fatalf("expected ErrRequestAlreadyFinalized, got %v", err)
	}
}

func TestDirectTransfersAreDisabled(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if err := service.Transfer(ctx, "alice", "bob", 10); !errors.Is(err, domainerrors.ErrTransfersDisabled) {
		t.Fatalf("expected ErrTransfersDisabled, got %v", err)
	}
	if err := service.TransferFrom(ctx, "carol", "alice", "bob", 10); !errors.Is(err, domainerrors.ErrTransfersDisabled) {
		t.Fatalf("expected ErrTransfersDisabled, got %v", err)
	}
	if err := service.Approve(ctx, "alice", "carol", 10); !errors.Is(err, domainerrors.ErrTransfersDisabled) {
		t.Fatalf("expected ErrTransfersDisabled, got %v", err)
	}
}
