package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/contexts/transfer-agent/position-ledger/adapters/memory"
	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	"quill/contexts/transfer-agent/position-ledger/ports"
	"quill/internal/shared/events"
)

type capturingPublisher struct {
	published []events.Envelope
	err       error
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event events.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store, ids ...string) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range ids {
		_, err := store.Apply(context.Background(), ports.Mutation{
			Events: []events.Envelope{{
				EventID:    id,
				EventType:  "ledger.units_issued",
				OccurredAt: now.Add(time.Duration(i) * time.Second),
				Data:       []byte(`{}`),
			}},
		})
		if err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}
}

func TestRunOncePublishesAndMarks(t *testing.T) {
	store := memory.NewStore(ports.AdminState{
		Registrar: entities.RegistrarPrincipal{Kind: entities.RegistrarKindDirect, Address: "registrar"},
	})
	seedOutbox(t, store, "evt-1", "evt-2")
	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if len(publisher.published) != 2 || publisher.published[0].EventID != "evt-1" {
		t.Fatalf("expected both events published oldest first, got %+v", publisher.published)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %v err %v", pending, err)
	}
}

func TestRunOnceStopsOnPublishFailure(t *testing.T) {
	store := memory.NewStore(ports.AdminState{
		Registrar: entities.RegistrarPrincipal{Kind: entities.RegistrarKindDirect, Address: "registrar"},
	})
	seedOutbox(t, store, "evt-1")
	publisher := &capturingPublisher{err: errors.New("broker down")}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure surfaced")
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected row kept pending for retry, got %v err %v", pending, err)
	}
}

func TestRunOnceEmptyOutboxIsNoOp(t *testing.T) {
	store := memory.NewStore(ports.AdminState{
		Registrar: entities.RegistrarPrincipal{Kind: entities.RegistrarKindDirect, Address: "registrar"},
	})
	relay := OutboxRelay{Outbox: store, Publisher: &capturingPublisher{}}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no-op on empty outbox, got %v", err)
	}
}
