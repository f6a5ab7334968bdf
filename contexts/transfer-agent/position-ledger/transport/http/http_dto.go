package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type IssueRequest struct {
	Holder         string `json:"holder"`
	Amount         uint64 `json:"amount"`
	ExemptionClass string `json:"exemption_class"`
	IssuanceDate   string `json:"issuance_date"`
}

type BulkIssueRequest struct {
	Holders          []string `json:"holders"`
	Amounts          []uint64 `json:"amounts"`
	ExemptionClasses []string `json:"exemption_classes"`
	IssuanceDates    []string `json:"issuance_dates"`
}

type BurnRequest struct {
	Holder string `json:"holder"`
	Amount uint64 `json:"amount"`
}

type BurnByClassRequest struct {
	Holder         string `json:"holder"`
	Amount         uint64 `json:"amount"`
	ExemptionClass string `json:"exemption_class"`
}

type BurnExactRequest struct {
	Holder         string `json:"holder"`
	Amount         uint64 `json:"amount"`
	ExemptionClass string `json:"exemption_class"`
	IssuanceDate   string `json:"issuance_date"`
}

type BurnResponse struct {
	Status        string `json:"status"`
	OldestTouched string `json:"oldest_touched,omitempty"`
}

type MoveExactRequest struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Amount         uint64 `json:"amount"`
	ExemptionClass string `json:"exemption_class"`
	IssuanceDate   string `json:"issuance_date"`
}

type BulkMoveRequest struct {
	Froms            []string `json:"froms"`
	Tos              []string `json:"tos"`
	Amounts          []uint64 `json:"amounts"`
	ExemptionClasses []string `json:"exemption_classes"`
	IssuanceDates    []string `json:"issuance_dates"`
}

type ForcedMoveRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
	Evidence string `json:"evidence"`
}

type SetFrozenRequest struct {
	Address string `json:"address"`
	Frozen  bool   `json:"frozen"`
}

type SetBrokerApprovedRequest struct {
	Address  string `json:"address"`
	Approved bool   `json:"approved"`
}

type FeePolicyRequest struct {
	Mode         string `json:"mode"`
	FlatAmount   uint64 `json:"flat_amount"`
	RateBps      uint64 `json:"rate_bps"`
	OpaqueAmount uint64 `json:"opaque_amount"`
}

type FeeAssetRequest struct {
	Asset string `json:"asset"`
}

type WithdrawFeesRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type RecoverAssetRequest struct {
	Asset  string `json:"asset"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type DepositFeeFundsRequest struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

type CreateTransferRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	FeeAsset  string `json:"fee_asset"`
	FeeAmount uint64 `json:"fee_amount"`
}

type CreateTransferResponse struct {
	Status    string `json:"status"`
	RequestID uint64 `json:"request_id"`
}

type ProcessRequestBody struct {
	Approve bool `json:"approve"`
}

type RejectRequestBody struct {
	ReasonCode string `json:"reason_code"`
	Refund     bool   `json:"refund"`
}

type SetRequestStatusBody struct {
	Status string `json:"status"`
}

type SetRegistrarRequest struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
}

type ChangeIssuerRequest struct {
	Issuer string `json:"issuer"`
}

type LegacyTransferRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BatchDTO struct {
	ExemptionClass string `json:"exemption_class"`
	IssuanceDate   string `json:"issuance_date"`
	Amount         uint64 `json:"amount"`
}

type BalanceResponse struct {
	Status  string `json:"status"`
	Holder  string `json:"holder"`
	Balance uint64 `json:"balance"`
}

type BatchesResponse struct {
	Status  string     `json:"status"`
	Holder  string     `json:"holder"`
	Batches []BatchDTO `json:"batches"`
}

type SupplyResponse struct {
	Status  string            `json:"status"`
	Total   uint64            `json:"total"`
	ByClass map[string]uint64 `json:"by_class"`
}

type QuoteFeeResponse struct {
	Status    string `json:"status"`
	FeeAsset  string `json:"fee_asset"`
	FeeAmount uint64 `json:"fee_amount"`
}

type ComplianceResponse struct {
	Status         string `json:"status"`
	Address        string `json:"address"`
	Frozen         bool   `json:"frozen"`
	BrokerApproved bool   `json:"broker_approved"`
}

type RegistrarResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Issuer  string `json:"issuer"`
}

type TransferRequestDTO struct {
	RequestID     uint64 `json:"request_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        uint64 `json:"amount"`
	FeeAsset      string `json:"fee_asset"`
	FeeAmount     uint64 `json:"fee_amount"`
	Requester     string `json:"requester"`
	RequestStatus string `json:"request_status"`
	ReasonCode    string `json:"reason_code,omitempty"`
	Refunded      bool   `json:"refunded"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type TransferRequestResponse struct {
	Status string             `json:"status"`
	Data   TransferRequestDTO `json:"data"`
}

type EscrowResponse struct {
	Status   string `json:"status"`
	FeeAsset string `json:"fee_asset"`
	Balance  uint64 `json:"balance"`
}

type FeeBalanceResponse struct {
	Status  string `json:"status"`
	Asset   string `json:"asset"`
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}
