package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	domainerrors "quill/contexts/transfer-agent/authorization-gateway/domain/errors"
	"quill/contexts/transfer-agent/authorization-gateway/ports"

	"github.com/google/uuid"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

// Store keeps the whole gateway in memory. Every Apply runs under one mutex
// acquisition and stages its writes before committing, so a mutation either
// lands completely or not at all.
type Store struct {
	mu sync.RWMutex

	operations   map[uint64]entities.Operation
	operationSeq uint64
	roster       entities.Roster
	allowList    []string
	outbox       map[string]outboxRecord
	outboxOrder  []string
}

func NewStore(roster entities.Roster) *Store {
	return &Store{
		operations: make(map[uint64]entities.Operation),
		roster:     roster.Clone(),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *Store) GetOperation(_ context.Context, operationID uint64) (entities.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operation, ok := s.operations[operationID]
	if !ok {
		return entities.Operation{}, domainerrors.ErrOperationNotFound
	}
	return operation.Clone(), nil
}

func (s *Store) GetRoster(_ context.Context) (entities.Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.roster.Clone(), nil
}

func (s *Store) GetAllowList(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.allowList...), nil
}

func (s *Store) Apply(_ context.Context, mutation ports.Mutation) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage outbox marshaling first; nothing below this block may fail once
	// commits begin.
	stagedOutbox := make([]outboxRecord, 0, len(mutation.Events))
	for _, event := range mutation.Events {
		payload, err := json.Marshal(event)
		if err != nil {
			return 0, err
		}
		stagedOutbox = append(stagedOutbox, outboxRecord{
			Message: ports.OutboxMessage{
				OutboxID:     event.EventID,
				EventType:    event.EventType,
				PartitionKey: event.PartitionKey,
				Payload:      payload,
				CreatedAt:    event.OccurredAt.UTC(),
			},
			Status: outboxStatusPending,
		})
	}

	var assignedID uint64
	if mutation.Operation != nil {
		operation := mutation.Operation.Clone()
		if operation.OperationID == 0 {
			s.operationSeq++
			operation.OperationID = s.operationSeq
		}
		assignedID = operation.OperationID
		s.operations[operation.OperationID] = operation
	}
	if mutation.Roster != nil {
		s.roster = mutation.Roster.Clone()
	}
	if mutation.AllowList != nil {
		s.allowList = append([]string(nil), (*mutation.AllowList)...)
	}
	for _, row := range stagedOutbox {
		s.outbox[row.Message.OutboxID] = row
		s.outboxOrder = append(s.outboxOrder, row.Message.OutboxID)
	}
	return assignedID, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, id := range s.outboxOrder {
		row := s.outbox[id]
		if row.Status == outboxStatusPending {
			items = append(items, row.Message)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrOperationNotFound
	}
	ts := publishedAt.UTC()
	row.Status = outboxStatusPublished
	row.PublishedAt = &ts
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
