package entities

import "time"

// Batch is the minimal accounting record: units acquired under one exemption
// class on one issuance date. A batch never persists with a zero amount.
type Batch struct {
	ExemptionClass string
	IssuanceDate   time.Time
	Amount         uint64
}

func (b Batch) SameKey(class string, date time.Time) bool {
	return b.ExemptionClass == class && b.IssuanceDate.Equal(date)
}

// HolderBook is one holder's batch sequence, kept ascending by issuance date
// with unique (class, date) keys.
type HolderBook struct {
	Holder  string
	Batches []Batch
}

func (h HolderBook) Clone() HolderBook {
	out := HolderBook{Holder: h.Holder}
	if len(h.Batches) > 0 {
		out.Batches = append([]Batch(nil), h.Batches...)
	}
	return out
}

func (h HolderBook) Total() uint64 {
	var total uint64
	for _, b := range h.Batches {
		total += b.Amount
	}
	return total
}

func (h HolderBook) TotalByClass(class string) uint64 {
	var total uint64
	for _, b := range h.Batches {
		if b.ExemptionClass == class {
			total += b.Amount
		}
	}
	return total
}

func (h HolderBook) Find(class string, date time.Time) (Batch, bool) {
	for _, b := range h.Batches {
		if b.SameKey(class, date) {
			return b, true
		}
	}
	return Batch{}, false
}

// Merge adds amount into the batch with the same (class, date) key, or
// inserts a new batch preserving ascending issuance-date order. A date older
// than everything existing lands at the head.
func (h *HolderBook) Merge(class string, date time.Time, amount uint64) {
	for i := range h.Batches {
		if h.Batches[i].SameKey(class, date) {
			h.Batches[i].Amount += amount
			return
		}
	}
	insert := len(h.Batches)
	for i, b := range h.Batches {
		if date.Before(b.IssuanceDate) {
			insert = i
			break
		}
	}
	h.Batches = append(h.Batches, Batch{})
	copy(h.Batches[insert+1:], h.Batches[insert:])
	h.Batches[insert] = Batch{ExemptionClass: class, IssuanceDate: date, Amount: amount}
}

// BatchDelta records units taken from one batch key during a consume pass,
// so a movement can credit the recipient under the same key.
type BatchDelta struct {
	ExemptionClass string
	IssuanceDate   time.Time
	Amount         uint64
}

// ConsumeFIFO removes amount oldest-date-first across the whole book.
// It reports the portions taken per batch key; the first entry is the oldest
// date touched. The book is left unchanged when the total is short.
func (h *HolderBook) ConsumeFIFO(amount uint64) ([]BatchDelta, bool) {
	return h.consume(amount, func(Batch) bool { return true })
}

// ConsumeFIFOByClass is the FIFO pass restricted to one exemption class.
func (h *HolderBook) ConsumeFIFOByClass(amount uint64, class string) ([]BatchDelta, bool) {
	return h.consume(amount, func(b Batch) bool { return b.ExemptionClass == class })
}

func (h *HolderBook) consume(amount uint64, match func(Batch) bool) ([]BatchDelta, bool) {
	var available uint64
	for _, b := range h.Batches {
		if match(b) {
			available += b.Amount
		}
	}
	if available < amount {
		return nil, false
	}

	remaining := amount
	deltas := make([]BatchDelta, 0, 2)
	kept := make([]Batch, 0, len(h.Batches))
	for _, b := range h.Batches {
		if remaining == 0 || !match(b) || b.Amount == 0 {
			if b.Amount > 0 {
				kept = append(kept, b)
			}
			continue
		}
		take := b.Amount
		if take > remaining {
			take = remaining
		}
		deltas = append(deltas, BatchDelta{
			ExemptionClass: b.ExemptionClass,
			IssuanceDate:   b.IssuanceDate,
			Amount:         take,
		})
		b.Amount -= take
		remaining -= take
		if b.Amount > 0 {
			kept = append(kept, b)
		}
	}
	h.Batches = kept
	return deltas, true
}

// ConsumeExact removes amount from the single batch with the exact key.
// The second result distinguishes a missing batch from a short one.
func (h *HolderBook) ConsumeExact(amount uint64, class string, date time.Time) (found bool, sufficient bool) {
	for i := range h.Batches {
		if !h.Batches[i].SameKey(class, date) {
			continue
		}
		if h.Batches[i].Amount < amount {
			return true, false
		}
		h.Batches[i].Amount -= amount
		if h.Batches[i].Amount == 0 {
			h.Batches = append(h.Batches[:i], h.Batches[i+1:]...)
		}
		return true, true
	}
	return false, false
}
