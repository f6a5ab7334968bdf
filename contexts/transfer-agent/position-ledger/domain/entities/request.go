package entities

import "time"

type RequestStatus string

const (
	RequestStatusPending     RequestStatus = "pending"
	RequestStatusUnderReview RequestStatus = "under_review"
	RequestStatusApproved    RequestStatus = "approved"
	RequestStatusRejected    RequestStatus = "rejected"
	RequestStatusExecuted    RequestStatus = "executed"
	RequestStatusExpired     RequestStatus = "expired"
)

// Terminal statuses refuse any further processing.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusRejected || s == RequestStatusExecuted
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusUnderReview, RequestStatusApproved,
		RequestStatusRejected, RequestStatusExecuted, RequestStatusExpired:
		return true
	}
	return false
}

// TransferRequest is a holder-initiated transfer awaiting registrar decision,
// with its fee held in escrow until executed or refunded.
type TransferRequest struct {
	RequestID  uint64
	From       string
	To         string
	Amount     uint64
	FeeAsset   string
	FeeAmount  uint64
	Requester  string
	Status     RequestStatus
	ReasonCode string
	Refunded   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
