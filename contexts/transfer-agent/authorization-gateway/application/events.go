package application

import (
	"context"
	"encoding/json"
	"strings"

	"quill/contexts/transfer-agent/authorization-gateway/ports"
)

const sourceService = "authorization-gateway"

// Event types emitted by the gateway. Each payload carries enough fields to
// reconstruct the state transition without re-reading storage.
const (
	EventOperationProposed   = "gateway.operation_proposed"
	EventOperationConfirmed  = "gateway.operation_confirmed"
	EventConfirmationRevoked = "gateway.confirmation_revoked"
	EventOperationExecuted   = "gateway.operation_executed"
	EventMemberAdded         = "gateway.member_added"
	EventMemberRemoved       = "gateway.member_removed"
	EventThresholdChanged    = "gateway.threshold_changed"
	EventAllowListChanged    = "gateway.allowlist_changed"
)

func (s *Service) newEnvelope(
	ctx context.Context,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	payload map[string]any,
) (ports.EventEnvelope, error) {
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        eventType,
		OccurredAt:       s.now(),
		SourceService:    sourceService,
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             data,
	}, nil
}
