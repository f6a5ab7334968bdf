package errors

import "errors"

// Authorization.
var (
	ErrNotRegistrar      = errors.New("caller is not the registrar")
	ErrNotHolderOrBroker = errors.New("caller is neither the holder nor an approved broker")
	ErrRegistrarLocked   = errors.New("registrar is locked to the gateway and cannot be reassigned")
)

// Validation.
var (
	ErrInvalidHolder         = errors.New("holder address is required")
	ErrInvalidAddress        = errors.New("address is required")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidExemptionClass = errors.New("exemption class is required")
	ErrInvalidIssuanceDate   = errors.New("issuance date must be set and not in the future")
	ErrArrayLengthMismatch   = errors.New("bulk arrays must have equal lengths")
	ErrEmptyBatchInput       = errors.New("bulk input must not be empty")
	ErrInvalidFeePolicy      = errors.New("fee policy is invalid")
	ErrInvalidRequestStatus  = errors.New("request status is invalid")
	ErrUnsupportedFeeAsset   = errors.New("fee asset is not the configured fee asset")
	ErrFeeMismatch           = errors.New("paid fee does not match the quoted fee amount")
)

// State.
var (
	ErrBatchNotFound            = errors.New("no batch with that exemption class and issuance date")
	ErrInsufficientBalance      = errors.New("holder balance is insufficient")
	ErrInsufficientClassBalance = errors.New("holder balance in that exemption class is insufficient")
	ErrInsufficientBatchBalance = errors.New("batch balance is insufficient")
	ErrInsufficientFeeFunds     = errors.New("fee account balance is insufficient")
	ErrInsufficientEscrow       = errors.New("escrow balance is insufficient")
	ErrRequestNotFound          = errors.New("transfer request not found")
	ErrRequestAlreadyFinalized  = errors.New("transfer request is already executed or rejected")
	ErrCannotRecoverOwnAsset    = errors.New("cannot recover the ledger's own accounted asset")
	ErrComplianceCheckFailed    = errors.New("compliance check failed: address is frozen")
	ErrTransfersDisabled        = errors.New("direct transfers are disabled: use a transfer request")
)
