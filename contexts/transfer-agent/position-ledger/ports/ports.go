package ports

import (
	"context"
	"time"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	"quill/internal/shared/events"
)

// AdminState is the small administrative block of the ledger: who the
// registrar and issuer are and how transfer-request fees are charged.
type AdminState struct {
	Registrar entities.RegistrarPrincipal
	Issuer    string
	UnitAsset string
	FeeAsset  string
	FeePolicy entities.FeePolicy
}

// FeeTransfer moves fee-asset funds between accounts inside a mutation.
type FeeTransfer struct {
	Asset  string
	From   string
	To     string
	Amount uint64
}

// ComplianceChange is a last-write-wins flag update for one address.
type ComplianceChange struct {
	Address string
	Flags   entities.ComplianceFlags
}

// Mutation is the full set of writes for one ledger use case. The repository
// applies it atomically: every field commits or none does. A Request with
// RequestID zero is assigned the next monotonic id by the repository.
type Mutation struct {
	Books        []entities.HolderBook
	Request      *entities.TransferRequest
	Compliance   []ComplianceChange
	Admin        *AdminState
	FeeTransfers []FeeTransfer
	EscrowDeltas map[string]int64
	Events       []events.Envelope
}

type SupplySnapshot struct {
	Total   uint64
	ByClass map[string]uint64
}

type Repository interface {
	GetBook(ctx context.Context, holder string) (entities.HolderBook, error)
	GetSupply(ctx context.Context) (SupplySnapshot, error)
	GetRequest(ctx context.Context, requestID uint64) (entities.TransferRequest, error)
	GetCompliance(ctx context.Context, address string) (entities.ComplianceFlags, error)
	GetAdminState(ctx context.Context) (AdminState, error)
	GetFeeBalance(ctx context.Context, asset string, address string) (uint64, error)
	GetEscrow(ctx context.Context, asset string) (uint64, error)
	Apply(ctx context.Context, mutation Mutation) (assignedRequestID uint64, err error)
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
