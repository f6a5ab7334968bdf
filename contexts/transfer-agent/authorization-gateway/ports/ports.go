package ports

import (
	"context"
	"time"

	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	"quill/internal/shared/events"
)

// Mutation is the full set of writes for one gateway use case. The
// repository applies it atomically: every field commits or none does. An
// Operation with OperationID zero is assigned the next monotonic id by the
// repository. Nil pointer fields leave the corresponding state untouched.
type Mutation struct {
	Operation *entities.Operation
	Roster    *entities.Roster
	AllowList *[]string
	Events    []events.Envelope
}

type Repository interface {
	GetOperation(ctx context.Context, operationID uint64) (entities.Operation, error)
	GetRoster(ctx context.Context) (entities.Roster, error)
	GetAllowList(ctx context.Context) ([]string, error)
	Apply(ctx context.Context, mutation Mutation) (assignedOperationID uint64, err error)
}

// CommandInvoker dispatches a ratified command to its target. The wiring
// layer routes ledger kinds to the position ledger with the gateway's own
// identity as caller and self-governing kinds back into the gateway.
type CommandInvoker interface {
	Invoke(ctx context.Context, command entities.Command) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
