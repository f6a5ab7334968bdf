package entities

import "testing"

func TestQuoteByMode(t *testing.T) {
	flat := FeePolicy{Mode: FeeModeFlat, FlatAmount: 25}
	if got := flat.Quote(1000); got != 25 {
		t.Fatalf("expected flat fee 25, got %d", got)
	}
	percent := FeePolicy{Mode: FeeModePercent, RateBps: 50}
	if got := percent.Quote(1000); got != 5 {
		t.Fatalf("expected 50bps of 1000 = 5, got %d", got)
	}
	if got := percent.Quote(10001); got != 50 {
		t.Fatalf("expected truncating percent quote 50, got %d", got)
	}
	opaque := FeePolicy{Mode: FeeModeOpaque, OpaqueAmount: 7}
	if got := opaque.Quote(1000); got != 7 {
		t.Fatalf("expected opaque fee 7, got %d", got)
	}
}

func TestQuotePercentLargeAmounts(t *testing.T) {
	policy := FeePolicy{Mode: FeeModePercent, RateBps: 50}

	// 1e19 units at 50bps. The naive amount*rate product wraps uint64 here;
	// the quote must stay exact.
	const amount = uint64(10_000_000_000_000_000_000)
	if got := policy.Quote(amount); got != 50_000_000_000_000_000 {
		t.Fatalf("expected 50bps of 1e19 = 5e16, got %d", got)
	}

	full := FeePolicy{Mode: FeeModePercent, RateBps: 10000}
	if got := full.Quote(amount); got != amount {
		t.Fatalf("expected 100%% rate to quote the full amount, got %d", got)
	}
}
