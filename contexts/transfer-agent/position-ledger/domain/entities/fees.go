package entities

type FeeMode string

const (
	FeeModeFlat    FeeMode = "flat"
	FeeModePercent FeeMode = "percent"
	// FeeModeOpaque is the registrar-supplied constant extension point.
	FeeModeOpaque FeeMode = "opaque"
)

func (m FeeMode) Valid() bool {
	switch m {
	case FeeModeFlat, FeeModePercent, FeeModeOpaque:
		return true
	}
	return false
}

// FeePolicy decides the up-front fee for a holder-initiated transfer request.
type FeePolicy struct {
	Mode         FeeMode
	FlatAmount   uint64
	RateBps      uint64
	OpaqueAmount uint64
}

func (p FeePolicy) Quote(amount uint64) uint64 {
	switch p.Mode {
	case FeeModePercent:
		// Split the division first so amount*RateBps cannot wrap for
		// large positions. Exact: amount*rate/10000 ==
		// (amount/10000)*rate + (amount%10000)*rate/10000.
		return (amount/10000)*p.RateBps + (amount%10000)*p.RateBps/10000
	case FeeModeOpaque:
		return p.OpaqueAmount
	default:
		return p.FlatAmount
	}
}
