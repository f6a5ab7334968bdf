package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"quill/contexts/transfer-agent/position-ledger/ports"
)

const sourceService = "position-ledger"

// Event types emitted by the ledger. Each payload carries enough fields to
// reconstruct the state transition without re-reading storage.
const (
	EventUnitsIssued      = "ledger.units_issued"
	EventUnitsBurned      = "ledger.units_burned"
	EventUnitsTransferred = "ledger.units_transferred"
	EventFreezeChanged    = "ledger.freeze_changed"
	EventBrokerChanged    = "ledger.broker_changed"
	EventFeePolicyChanged = "ledger.fee_policy_changed"
	EventRequestCreated   = "ledger.request_created"
	EventRequestRejected  = "ledger.request_rejected"
	EventRequestExecuted  = "ledger.request_executed"
	EventRequestStatusSet = "ledger.request_status_set"
	EventFeesWithdrawn    = "ledger.fees_withdrawn"
	EventAssetRecovered   = "ledger.asset_recovered"
	EventRegistrarChanged = "ledger.registrar_changed"
	EventIssuerChanged    = "ledger.issuer_changed"
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

func formatDate(date time.Time) string {
	return date.UTC().Format(time.RFC3339)
}
