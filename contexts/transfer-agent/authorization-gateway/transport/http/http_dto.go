package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// CommandDTO is the wire form of a typed gateway command. Dates travel as
// RFC3339 strings.
type CommandDTO struct {
	Kind string `json:"kind"`

	Holder         string `json:"holder,omitempty"`
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	Amount         uint64 `json:"amount,omitempty"`
	ExemptionClass string `json:"exemption_class,omitempty"`
	IssuanceDate   string `json:"issuance_date,omitempty"`
	Evidence       string `json:"evidence,omitempty"`

	Address string `json:"address,omitempty"`
	Flag    bool   `json:"flag,omitempty"`

	FeeMode         string `json:"fee_mode,omitempty"`
	FeeFlatAmount   uint64 `json:"fee_flat_amount,omitempty"`
	FeeRateBps      uint64 `json:"fee_rate_bps,omitempty"`
	FeeOpaqueAmount uint64 `json:"fee_opaque_amount,omitempty"`

	RequestID  uint64 `json:"request_id,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`

	Asset  string `json:"asset,omitempty"`
	Issuer string `json:"issuer,omitempty"`

	Threshold int `json:"threshold,omitempty"`
}

type ProposeRequest struct {
	Command CommandDTO `json:"command"`
	Value   uint64     `json:"value"`
}

type ProposeResponse struct {
	Status      string `json:"status"`
	OperationID uint64 `json:"operation_id"`
}

type OperationDTO struct {
	OperationID   uint64     `json:"operation_id"`
	Command       CommandDTO `json:"command"`
	Value         uint64     `json:"value"`
	Confirmations []string   `json:"confirmations"`
	Executed      bool       `json:"executed"`
	SubmittedAt   string     `json:"submitted_at"`
}

type OperationResponse struct {
	Status string       `json:"status"`
	Data   OperationDTO `json:"data"`
}

type RosterResponse struct {
	Status    string   `json:"status"`
	Members   []string `json:"members"`
	Threshold int      `json:"threshold"`
}

type ConfirmationResponse struct {
	Status      string `json:"status"`
	OperationID uint64 `json:"operation_id"`
	Member      string `json:"member"`
	Confirmed   bool   `json:"confirmed"`
}

type ExpiryResponse struct {
	Status      string `json:"status"`
	OperationID uint64 `json:"operation_id"`
	Expired     bool   `json:"expired"`
}

type DelayCheckRequest struct {
	Command CommandDTO `json:"command"`
}

type DelayCheckResponse struct {
	Status        string `json:"status"`
	RequiresDelay bool   `json:"requires_delay"`
}

type AllowListResponse struct {
	Status       string   `json:"status"`
	Destinations []string `json:"destinations"`
}

type AllowedResponse struct {
	Status      string `json:"status"`
	Destination string `json:"destination"`
	Allowed     bool   `json:"allowed"`
}
