package entities

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMergeSameKeyAccumulates(t *testing.T) {
	book := HolderBook{Holder: "alice"}
	book.Merge("reg-d", date("2026-01-10T00:00:00Z"), 1000)
	book.Merge("reg-d", date("2026-01-10T00:00:00Z"), 500)

	if len(book.Batches) != 1 {
		t.Fatalf("expected one merged batch, got %d", len(book.Batches))
	}
	if book.Batches[0].Amount != 1500 {
		t.Fatalf("expected merged amount 1500, got %d", book.Batches[0].Amount)
	}
}

func TestMergeKeepsAscendingDateOrder(t *testing.T) {
	book := HolderBook{Holder: "alice"}
	book.Merge("reg-d", date("2026-01-10T00:00:00Z"), 100)
	book.Merge("reg-s", date("2026-01-05T00:00:00Z"), 200)
	book.Merge("reg-d", date("2026-01-20T00:00:00Z"), 300)

	if len(book.Batches) != 3 {
		t.Fatalf("expected three batches, got %d", len(book.Batches))
	}
	for i := 1; i < len(book.Batches); i++ {
		if book.Batches[i].IssuanceDate.Before(book.Batches[i-1].IssuanceDate) {
			t.Fatalf("batches out of date order at %d", i)
		}
	}
	if book.Batches[0].ExemptionClass != "reg-s" {
		t.Fatalf("expected oldest batch first, got %s", book.Batches[0].ExemptionClass)
	}
}

func TestMergeSameDateDifferentClassStaysSeparate(t *testing.T) {
	book := HolderBook{Holder: "alice"}
	d := date("2026-01-10T00:00:00Z")
	book.Merge("reg-d", d, 100)
	book.Merge("reg-s", d, 200)

	if len(book.Batches) != 2 {
		t.Fatalf("expected distinct batches per class, got %d", len(book.Batches))
	}
	if book.Total() != 300 {
		t.Fatalf("expected total 300, got %d", book.Total())
	}
}

func TestConsumeFIFOTakesOldestFirst(t *testing.T) {
	book := HolderBook{Holder: "alice"}
	book.Merge("reg-d", date("2026-01-10T00:00:00Z"), 300)
	book.Merge("reg-s", date("2026-01-05T00:00:00Z"), 300)

	deltas, ok := book.ConsumeFIFO(400)
	if !ok {
		t.Fatalf("expected consume to succeed")
	}
	if len(deltas) != 2 {
		t.Fatalf("expected two deltas, got %d", len(deltas))
	}
	if !deltas[0].IssuanceDate.Equal(date("2026-01-05T00:00:00Z")) || deltas[0].Amount != 300 {
		t.Fatalf("expected oldest batch drained first, got %+v", deltas[0])
	}
	if deltas[1].Amount != 100 {
		t.Fatalf("expected 100 from the newer batch, got %d", deltas[1].Amount)
	}
	if len(book.Batches) != 1 || book.Batches[0].Amount != 200 {
		t.Fatalf("expected one surviving batch of 200, got %+v", book.Batches)
	}
}

func TestConsumeFIFOShortLeavesBookUnchanged(t *testing.T) {
	book := HolderBook{Holder: "alice"}
	book.Merge("reg-d", date("2026-01-10T00:00:00Z"), 100)

	if _, ok := book.ConsumeFIFO(101); ok {
		t.Fatalf("expected consume to fail on short balance")
	}
	if book.Total() != 100 {
		t.Fatalf("expected book unchanged, got total %d", book.Total())
	}
}

func TestConsumeFIFOByClassSkipsOtherClasses(t *testing.T) {
	book := HolderBook{Holder: "alice"}
	book.Merge("reg-s", date("2026-01-05T00:00:00Z"), 300)
	book.Merge("reg-d", date("2026-01-10T00:00:00Z"), 300)

	deltas, ok := book.ConsumeFIFOByClass(200, "reg-d")
	if !ok {
		t.Fatalf("expected class consume to succeed")
	}
	if len(deltas) != 1 || deltas[0].ExemptionClass != "reg-d" {
		t.Fatalf("expected only reg-d touched, got %+v", deltas)
	}
	if book.TotalByClass("reg-s") != 300 {
		t.Fatalf("expected reg-s untouched, got %d", book.TotalByClass("reg-s"))
	}
	if _, ok := book.ConsumeFIFOByClass(200, "reg-d"); ok {
		t.Fatalf("expected second class consume to fail, only 100 left")
	}
}

func TestConsumeExactDistinguishesMissingFromShort(t *testing.T) {
	book := HolderBook{Holder: "alice"}
	book.Merge("reg-d", date("2026-01-10T00:00:00Z"), 100)

	found, _ := book.ConsumeExact(50, "reg-d", date("2026-01-11T00:00:00Z"))
	if found {
		t.Fatalf("expected missing batch for wrong date")
	}
	found, sufficient := book.ConsumeExact(200, "reg-d", date("2026-01-10T00:00:00Z"))
	if !found || sufficient {
		t.Fatalf("expected found but short, got found=%v sufficient=%v", found, sufficient)
	}
	found, sufficient = book.ConsumeExact(100, "reg-d", date("2026-01-10T00:00:00Z"))
	if !found || !sufficient {
		t.Fatalf("expected exact drain to succeed")
	}
	if len(book.Batches) != 0 {
		t.Fatalf("expected drained batch removed, got %+v", book.Batches)
	}
}
