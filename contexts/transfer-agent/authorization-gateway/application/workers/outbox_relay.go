package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "quill/contexts/transfer-agent/authorization-gateway/application"
	"quill/contexts/transfer-agent/authorization-gateway/ports"
)

// OutboxRelay publishes persisted gateway events to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after broker publish succeeds. It stops on the first failure
// so the retry loop can reprocess remaining rows safely.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("gateway outbox list failed",
			"event", "gateway_outbox_list_failed",
			"module", "transfer-agent/authorization-gateway",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("gateway outbox decode failed",
				"event", "gateway_outbox_decode_failed",
				"module", "transfer-agent/authorization-gateway",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("gateway outbox publish failed",
				"event", "gateway_outbox_publish_failed",
				"module", "transfer-agent/authorization-gateway",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("gateway outbox mark published failed",
				"event", "gateway_outbox_mark_published_failed",
				"module", "transfer-agent/authorization-gateway",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("gateway outbox relay cycle finished",
		"event", "gateway_outbox_relay_finished",
		"module", "transfer-agent/authorization-gateway",
		"layer", "worker",
		"published", len(pending),
	)
	return nil
}
