package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	"quill/contexts/transfer-agent/position-ledger/ports"

	"github.com/google/uuid"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	externalFundsAccount = "system:external"
)

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

// Store keeps the whole ledger in memory. Every Apply runs under one mutex
// acquisition and stages its writes before committing, so a mutation either
// lands completely or not at all.
type Store struct {
	mu sync.RWMutex

	books       map[string]entities.HolderBook
	requests    map[uint64]entities.TransferRequest
	requestSeq  uint64
	compliance  map[string]entities.ComplianceFlags
	admin       ports.AdminState
	feeAccounts map[string]map[string]uint64
	escrow      map[string]uint64
	outbox      map[string]outboxRecord
	outboxOrder []string
}

func NewStore(admin ports.AdminState) *Store {
	return &Store{
		books:       make(map[string]entities.HolderBook),
		requests:    make(map[uint64]entities.TransferRequest),
		compliance:  make(map[string]entities.ComplianceFlags),
		admin:       admin,
		feeAccounts: make(map[string]map[string]uint64),
		escrow:      make(map[string]uint64),
		outbox:      make(map[string]outboxRecord),
	}
}

func (s *Store) GetBook(_ context.Context, holder string) (entities.HolderBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holder = strings.TrimSpace(holder)
	if holder == "" {
		return entities.HolderBook{}, domainerrors.ErrInvalidHolder
	}
	if book, ok := s.books[holder]; ok {
		return book.Clone(), nil
	}
	return entities.HolderBook{Holder: holder}, nil
}

func (s *Store) GetSupply(_ context.Context) (ports.SupplySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := ports.SupplySnapshot{ByClass: make(map[string]uint64)}
	for _, book := range s.books {
		for _, batch := range book.Batches {
			snapshot.Total += batch.Amount
			snapshot.ByClass[batch.ExemptionClass] += batch.Amount
		}
	}
	return snapshot, nil
}

func (s *Store) GetRequest(_ context.Context, requestID uint64) (entities.TransferRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[requestID]
	if !ok {
		return entities.TransferRequest{}, domainerrors.ErrRequestNotFound
	}
	return request, nil
}

func (s *Store) GetCompliance(_ context.Context, address string) (entities.ComplianceFlags, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.compliance[strings.TrimSpace(address)], nil
}

func (s *Store) GetAdminState(_ context.Context) (ports.AdminState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.admin, nil
}

func (s *Store) GetFeeBalance(_ context.Context, asset string, address string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.feeAccounts[asset][strings.TrimSpace(address)], nil
}

func (s *Store) GetEscrow(_ context.Context, asset string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.escrow[asset], nil
}

func (s *Store) Apply(_ context.Context, mutation ports.Mutation) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage fee account and escrow arithmetic first; nothing below this
	// block may fail once commits begin.
	stagedAccounts := make(map[string]map[string]uint64)
	balance := func(asset, address string) uint64 {
		if staged, ok := stagedAccounts[asset]; ok {
			if v, ok := staged[address]; ok {
				return v
			}
		}
		return s.feeAccounts[asset][address]
	}
	setBalance := func(asset, address string, v uint64) {
		if _, ok := stagedAccounts[asset]; !ok {
			stagedAccounts[asset] = make(map[string]uint64)
		}
		stagedAccounts[asset][address] = v
	}
	for _, transfer := range mutation.FeeTransfers {
		if transfer.From != externalFundsAccount {
			from := balance(transfer.Asset, transfer.From)
			if from < transfer.Amount {
				return 0, domainerrors.ErrInsufficientFeeFunds
			}
			setBalance(transfer.Asset, transfer.From, from-transfer.Amount)
		}
		setBalance(transfer.Asset, transfer.To, balance(transfer.Asset, transfer.To)+transfer.Amount)
	}
	stagedEscrow := make(map[string]uint64)
	for asset, delta := range mutation.EscrowDeltas {
		current := s.escrow[asset]
		if delta < 0 && current < uint64(-delta) {
			return 0, domainerrors.ErrInsufficientEscrow
		}
		stagedEscrow[asset] = uint64(int64(current) + delta)
	}
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
	if mutation.Request != nil {
		request := *mutation.Request
		if request.RequestID == 0 {
			s.requestSeq++
			request.RequestID = s.requestSeq
		}
		assignedID = request.RequestID
		s.requests[request.RequestID] = request
	}

	for _, book := range mutation.Books {
		if len(book.Batches) == 0 {
			delete(s.books, book.Holder)
			continue
		}
		s.books[book.Holder] = book.Clone()
	}
	for _, change := range mutation.Compliance {
		s.compliance[change.Address] = change.Flags
	}
	if mutation.Admin != nil {
		s.admin = *mutation.Admin
	}
	for asset, staged := range stagedAccounts {
		if _, ok := s.feeAccounts[asset]; !ok {
			s.feeAccounts[asset] = make(map[string]uint64)
		}
		for address, v := range staged {
			s.feeAccounts[asset][address] = v
		}
	}
	for asset, v := range stagedEscrow {
		s.escrow[asset] = v
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
		return domainerrors.ErrRequestNotFound
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
