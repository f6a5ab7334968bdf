package errors

import "errors"

// Authorization failures.
var (
	ErrNotMember    = errors.New("caller is not a roster member")
	ErrSelfCallOnly = errors.New("entry point is reachable only through the gateway's own execute path")
)

// Validation failures.
var (
	ErrInvalidMember    = errors.New("member address is empty or invalid")
	ErrInvalidCommand   = errors.New("command kind is unknown")
	ErrInvalidThreshold = errors.New("threshold must lie between one and the membership size")
)

// State failures.
var (
	ErrOperationNotFound         = errors.New("operation does not exist")
	ErrAlreadyConfirmed          = errors.New("member has already confirmed this operation")
	ErrAlreadyExecuted           = errors.New("operation has already been executed")
	ErrNotConfirmed              = errors.New("member has not confirmed this operation")
	ErrInsufficientConfirmations = errors.New("operation has not reached the confirmation threshold")
	ErrAlreadyMember             = errors.New("address is already a roster member")
	ErrThresholdUnreachable      = errors.New("removal would drop membership below the threshold")
)

// Timing failures.
var (
	ErrOperationExpired   = errors.New("operation freshness window has elapsed")
	ErrTimeLockNotExpired = errors.New("timed hold has not yet elapsed")
)
