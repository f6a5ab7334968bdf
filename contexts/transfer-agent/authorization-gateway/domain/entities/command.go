package entities

import "time"

// CommandKind identifies which privileged call an operation carries. The
// gateway dispatches on the kind instead of decoding raw call payloads, so
// the delay predicate attaches per kind rather than per byte offset.
type CommandKind string

const (
	KindIssue               CommandKind = "issue"
	KindMoveExact           CommandKind = "move_exact"
	KindForcedMove          CommandKind = "forced_move"
	KindSetFrozen           CommandKind = "set_frozen"
	KindSetBrokerApproved   CommandKind = "set_broker_approved"
	KindSetFeePolicy        CommandKind = "set_fee_policy"
	KindProcessRequest      CommandKind = "process_request"
	KindRejectRequest       CommandKind = "reject_request"
	KindWithdrawFees        CommandKind = "withdraw_fees"
	KindRecoverAsset        CommandKind = "recover_asset"
	KindChangeIssuer        CommandKind = "change_issuer"
	KindAddMember           CommandKind = "add_member"
	KindRemoveMember        CommandKind = "remove_member"
	KindSetThreshold        CommandKind = "set_threshold"
	KindAllowDestination    CommandKind = "allow_destination"
	KindDisallowDestination CommandKind = "disallow_destination"
)

func (k CommandKind) Valid() bool {
	switch k {
	case KindIssue, KindMoveExact, KindForcedMove, KindSetFrozen,
		KindSetBrokerApproved, KindSetFeePolicy, KindProcessRequest,
		KindRejectRequest, KindWithdrawFees, KindRecoverAsset,
		KindChangeIssuer, KindAddMember, KindRemoveMember, KindSetThreshold,
		KindAllowDestination, KindDisallowDestination:
		return true
	}
	return false
}

// SelfGoverning reports whether the kind targets the gateway's own roster or
// allow-list rather than the ledger.
func (k CommandKind) SelfGoverning() bool {
	switch k {
	case KindAddMember, KindRemoveMember, KindSetThreshold,
		KindAllowDestination, KindDisallowDestination:
		return true
	}
	return false
}

// Command is the typed payload of an operation. Fields are a union over all
// kinds; each kind reads only the fields it needs.
type Command struct {
	Kind CommandKind `json:"kind"`

	Holder         string    `json:"holder,omitempty"`
	From           string    `json:"from,omitempty"`
	To             string    `json:"to,omitempty"`
	Amount         uint64    `json:"amount,omitempty"`
	ExemptionClass string    `json:"exemption_class,omitempty"`
	IssuanceDate   time.Time `json:"issuance_date,omitempty"`
	Evidence       string    `json:"evidence,omitempty"`

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

// Destination returns the receiving address of a movement command, or the
// empty string for kinds that move nothing.
func (c Command) Destination() string {
	switch c.Kind {
	case KindMoveExact, KindForcedMove:
		return c.To
	}
	return ""
}

// RequiresDelay reports whether the command must sit out the timed hold
// before execution. Only holder-to-holder movements at or above the
// high-value threshold qualify, and a pre-vetted destination exempts the
// movement regardless of amount. Issuance, flag changes, and self-governance
// are never delay-sensitive.
func (c Command) RequiresDelay(highValueThreshold uint64, allowListed func(string) bool) bool {
	switch c.Kind {
	case KindMoveExact, KindForcedMove:
	default:
		return false
	}
	if c.Amount < highValueThreshold {
		return false
	}
	if allowListed != nil && allowListed(c.Destination()) {
		return false
	}
	return true
}
