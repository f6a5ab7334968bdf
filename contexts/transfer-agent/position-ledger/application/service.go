package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	"quill/contexts/transfer-agent/position-ledger/ports"
)

// Service is the position ledger use-case layer. Every mutating operation
// runs under one mutex, computes its writes on copies of loaded state, and
// persists them through a single atomic Repository.Apply call, so an error
// anywhere leaves no partial effect.
type Service struct {
	Repo   ports.Repository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger

	mu sync.Mutex
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

// requireRegistrar loads the admin block and checks the caller against the
// registrar principal. When the principal is a gateway only the gateway
// address passes; member keys must go through the gateway's execute path.
func (s *Service) requireRegistrar(ctx context.Context, caller string) (ports.AdminState, error) {
	admin, err := s.Repo.GetAdminState(ctx)
	if err != nil {
		return ports.AdminState{}, err
	}
	if !admin.Registrar.Authorizes(strings.TrimSpace(caller)) {
		return ports.AdminState{}, domainerrors.ErrNotRegistrar
	}
	return admin, nil
}

func (s *Service) validateIssuance(holder string, amount uint64, class string, date time.Time) error {
	if strings.TrimSpace(holder) == "" {
		return domainerrors.ErrInvalidHolder
	}
	if amount == 0 {
		return domainerrors.ErrInvalidAmount
	}
	if strings.TrimSpace(class) == "" {
		return domainerrors.ErrInvalidExemptionClass
	}
	// Past-dating is allowed, future-dating is not. A date equal to the
	// current instant is accepted.
	if date.IsZero() || date.After(s.now()) {
		return domainerrors.ErrInvalidIssuanceDate
	}
	return nil
}

// Issue mints amount units to holder under one (class, date) key, merging
// into the existing batch with that key when present.
func (s *Service) Issue(ctx context.Context, caller, holder string, amount uint64, class string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	if err := s.validateIssuance(holder, amount, class, date); err != nil {
		return err
	}

	book, err := s.Repo.GetBook(ctx, strings.TrimSpace(holder))
	if err != nil {
		return err
	}
	book.Merge(strings.TrimSpace(class), date.UTC(), amount)

	event, err := s.newEnvelope(ctx, EventUnitsIssued, "holder", book.Holder, map[string]any{
		"holder":          book.Holder,
		"amount":          amount,
		"exemption_class": strings.TrimSpace(class),
		"issuance_date":   formatDate(date),
	})
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Books:  []entities.HolderBook{book},
		Events: []ports.EventEnvelope{event},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("units issued",
		"event", "ledger_units_issued",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"holder", book.Holder,
		"amount", amount,
		"exemption_class", strings.TrimSpace(class),
	)
	return nil
}

// IssueBulk applies Issue semantics over equal-length parallel arrays as one
// atomic call; any per-element violation aborts the whole call.
func (s *Service) IssueBulk(ctx context.Context, caller string, holders []string, amounts []uint64, classes []string, dates []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	if len(holders) == 0 {
		return domainerrors.ErrEmptyBatchInput
	}
	if len(amounts) != len(holders) || len(classes) != len(holders) || len(dates) != len(holders) {
		return domainerrors.ErrArrayLengthMismatch
	}

	books := newBookSet(s.Repo)
	events := make([]ports.EventEnvelope, 0, len(holders))
	for i := range holders {
		if err := s.validateIssuance(holders[i], amounts[i], classes[i], dates[i]); err != nil {
			return err
		}
		book, err := books.get(ctx, strings.TrimSpace(holders[i]))
		if err != nil {
			return err
		}
		book.Merge(strings.TrimSpace(classes[i]), dates[i].UTC(), amounts[i])

		event, err := s.newEnvelope(ctx, EventUnitsIssued, "holder", book.Holder, map[string]any{
			"holder":          book.Holder,
			"amount":          amounts[i],
			"exemption_class": strings.TrimSpace(classes[i]),
			"issuance_date":   formatDate(dates[i]),
		})
		if err != nil {
			return err
		}
		events = append(events, event)
	}

	if _, err := s.Repo.Apply(ctx, ports.Mutation{Books: books.list(), Events: events}); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("bulk issuance applied",
		"event", "ledger_bulk_issued",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"count", len(holders),
	)
	return nil
}

// BurnAll destroys amount units FIFO across the holder's whole book and
// reports the oldest issuance date touched.
func (s *Service) BurnAll(ctx context.Context, caller, holder string, amount uint64) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(holder) == "" {
		return time.Time{}, domainerrors.ErrInvalidHolder
	}
	if amount == 0 {
		return time.Time{}, domainerrors.ErrInvalidAmount
	}

	book, err := s.Repo.GetBook(ctx, strings.TrimSpace(holder))
	if err != nil {
		return time.Time{}, err
	}
	deltas, ok := book.ConsumeFIFO(amount)
	if !ok {
		return time.Time{}, domainerrors.ErrInsufficientBalance
	}
	oldest := deltas[0].IssuanceDate

	event, err := s.newEnvelope(ctx, EventUnitsBurned, "holder", book.Holder, map[string]any{
		"holder":         book.Holder,
		"amount":         amount,
		"scope":          "all",
		"oldest_touched": formatDate(oldest),
	})
	if err != nil {
		return time.Time{}, err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Books:  []entities.HolderBook{book},
		Events: []ports.EventEnvelope{event},
	}); err != nil {
		return time.Time{}, err
	}

	ResolveLogger(s.Logger).Info("units burned",
		"event", "ledger_units_burned",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"holder", book.Holder,
		"amount", amount,
		"scope", "all",
	)
	return oldest, nil
}

// BurnByClass is the FIFO burn restricted to one exemption class.
func (s *Service) BurnByClass(ctx context.Context, caller, holder string, amount uint64, class string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(holder) == "" {
		return time.Time{}, domainerrors.ErrInvalidHolder
	}
	if amount == 0 {
		return time.Time{}, domainerrors.ErrInvalidAmount
	}
	if strings.TrimSpace(class) == "" {
		return time.Time{}, domainerrors.ErrInvalidExemptionClass
	}

	book, err := s.Repo.GetBook(ctx, strings.TrimSpace(holder))
	if err != nil {
		return time.Time{}, err
	}
	deltas, ok := book.ConsumeFIFOByClass(amount, strings.TrimSpace(class))
	if !ok {
		return time.Time{}, domainerrors.ErrInsufficientClassBalance
	}
	oldest := deltas[0].IssuanceDate

	event, err := s.newEnvelope(ctx, EventUnitsBurned, "holder", book.Holder, map[string]any{
		"holder":          book.Holder,
		"amount":          amount,
		"scope":           "class",
		"exemption_class": strings.TrimSpace(class),
		"oldest_touched":  formatDate(oldest),
	})
	if err != nil {
		return time.Time{}, err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Books:  []entities.HolderBook{book},
		Events: []ports.EventEnvelope{event},
	}); err != nil {
		return time.Time{}, err
	}
	return oldest, nil
}

// BurnExact destroys amount units from the single batch with the exact key.
func (s *Service) BurnExact(ctx context.Context, caller, holder string, amount uint64, class string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	book, events, err := s.burnExactLocked(ctx, holder, amount, class, date)
	if err != nil {
		return err
	}
	_, err = s.Repo.Apply(ctx, ports.Mutation{
		Books:  []entities.HolderBook{book},
		Events: events,
	})
	return err
}

// BurnBulk applies BurnExact semantics over parallel arrays atomically.
func (s *Service) BurnBulk(ctx context.Context, caller string, holders []string, amounts []uint64, classes []string, dates []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	if len(holders) == 0 {
		return domainerrors.ErrEmptyBatchInput
	}
	if len(amounts) != len(holders) || len(classes) != len(holders) || len(dates) != len(holders) {
		return domainerrors.ErrArrayLengthMismatch
	}

	books := newBookSet(s.Repo)
	events := make([]ports.EventEnvelope, 0, len(holders))
	for i := range holders {
		if strings.TrimSpace(holders[i]) == "" {
			return domainerrors.ErrInvalidHolder
		}
		if amounts[i] == 0 {
			return domainerrors.ErrInvalidAmount
		}
		book, err := books.get(ctx, strings.TrimSpace(holders[i]))
		if err != nil {
			return err
		}
		found, sufficient := book.ConsumeExact(amounts[i], strings.TrimSpace(classes[i]), dates[i].UTC())
		if !found {
			return domainerrors.ErrBatchNotFound
		}
		if !sufficient {
			return domainerrors.ErrInsufficientBatchBalance
		}
		event, err := s.newEnvelope(ctx, EventUnitsBurned, "holder", book.Holder, map[string]any{
			"holder":          book.Holder,
			"amount":          amounts[i],
			"scope":           "exact",
			"exemption_class": strings.TrimSpace(classes[i]),
			"issuance_date":   formatDate(dates[i]),
		})
		if err != nil {
			return err
		}
		events = append(events, event)
	}
	_, err := s.Repo.Apply(ctx, ports.Mutation{Books: books.list(), Events: events})
	return err
}

func (s *Service) burnExactLocked(ctx context.Context, holder string, amount uint64, class string, date time.Time) (entities.HolderBook, []ports.EventEnvelope, error) {
	if strings.TrimSpace(holder) == "" {
		return entities.HolderBook{}, nil, domainerrors.ErrInvalidHolder
	}
	if amount == 0 {
		return entities.HolderBook{}, nil, domainerrors.ErrInvalidAmount
	}
	book, err := s.Repo.GetBook(ctx, strings.TrimSpace(holder))
	if err != nil {
		return entities.HolderBook{}, nil, err
	}
	found, sufficient := book.ConsumeExact(amount, strings.TrimSpace(class), date.UTC())
	if !found {
		return entities.HolderBook{}, nil, domainerrors.ErrBatchNotFound
	}
	if !sufficient {
		return entities.HolderBook{}, nil, domainerrors.ErrInsufficientBatchBalance
	}
	event, err := s.newEnvelope(ctx, EventUnitsBurned, "holder", book.Holder, map[string]any{
		"holder":          book.Holder,
		"amount":          amount,
		"scope":           "exact",
		"exemption_class": strings.TrimSpace(class),
		"issuance_date":   formatDate(date),
	})
	if err != nil {
		return entities.HolderBook{}, nil, err
	}
	return book, []ports.EventEnvelope{event}, nil
}

// MoveExact moves amount units between holders within one (class, date)
// batch. This is the only path gated by the compliance flags: both ends must
// be unfrozen. Administrative and regulatory paths stay exempt so a frozen
// flag can never block them.
func (s *Service) MoveExact(ctx context.Context, caller, from, to string, amount uint64, class string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	books := newBookSet(s.Repo)
	events, err := s.moveExactLocked(ctx, books, from, to, amount, class, date)
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{Books: books.list(), Events: events}); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("units transferred",
		"event", "ledger_units_transferred",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"from", strings.TrimSpace(from),
		"to", strings.TrimSpace(to),
		"amount", amount,
	)
	return nil
}

// MoveBulk applies MoveExact semantics over parallel arrays atomically.
func (s *Service) MoveBulk(ctx context.Context, caller string, froms, tos []string, amounts []uint64, classes []string, dates []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	if len(froms) == 0 {
		return domainerrors.ErrEmptyBatchInput
	}
	if len(tos) != len(froms) || len(amounts) != len(froms) || len(classes) != len(froms) || len(dates) != len(froms) {
		return domainerrors.ErrArrayLengthMismatch
	}

	books := newBookSet(s.Repo)
	events := make([]ports.EventEnvelope, 0, len(froms))
	for i := range froms {
		moved, err := s.moveExactLocked(ctx, books, froms[i], tos[i], amounts[i], classes[i], dates[i])
		if err != nil {
			return err
		}
		events = append(events, moved...)
	}
	_, err := s.Repo.Apply(ctx, ports.Mutation{Books: books.list(), Events: events})
	return err
}

func (s *Service) moveExactLocked(ctx context.Context, books *bookSet, from, to string, amount uint64, class string, date time.Time) ([]ports.EventEnvelope, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, domainerrors.ErrInvalidAddress
	}
	if amount == 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	fromFlags, err := s.Repo.GetCompliance(ctx, from)
	if err != nil {
		return nil, err
	}
	toFlags, err := s.Repo.GetCompliance(ctx, to)
	if err != nil {
		return nil, err
	}
	if fromFlags.Frozen || toFlags.Frozen {
		return nil, domainerrors.ErrComplianceCheckFailed
	}

	source, err := books.get(ctx, from)
	if err != nil {
		return nil, err
	}
	if from == to {
		// Validated no-op: the batch must exist and cover the amount.
		batch, found := source.Find(strings.TrimSpace(class), date.UTC())
		if !found {
			return nil, domainerrors.ErrBatchNotFound
		}
		if batch.Amount < amount {
			return nil, domainerrors.ErrInsufficientBatchBalance
		}
	} else {
		found, sufficient := source.ConsumeExact(amount, strings.TrimSpace(class), date.UTC())
		if !found {
			return nil, domainerrors.ErrBatchNotFound
		}
		if !sufficient {
			return nil, domainerrors.ErrInsufficientBatchBalance
		}
		dest, err := books.get(ctx, to)
		if err != nil {
			return nil, err
		}
		dest.Merge(strings.TrimSpace(class), date.UTC(), amount)
	}

	event, err := s.newEnvelope(ctx, EventUnitsTransferred, "from", from, map[string]any{
		"from":            from,
		"to":              to,
		"amount":          amount,
		"kind":            "exact",
		"exemption_class": strings.TrimSpace(class),
		"issuance_date":   formatDate(date),
	})
	if err != nil {
		return nil, err
	}
	return []ports.EventEnvelope{event}, nil
}

// ForcedMove is the registrar-only override for legally compelled transfers.
// It bypasses the compliance gate but still enforces non-empty addresses and
// balance sufficiency; from == to is a validated no-op.
func (s *Service) ForcedMove(ctx context.Context, caller, from, to string, amount uint64, evidence string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistrar(ctx, caller); err != nil {
		return err
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return domainerrors.ErrInvalidAddress
	}
	if amount == 0 {
		return domainerrors.ErrInvalidAmount
	}

	source, err := s.Repo.GetBook(ctx, from)
	if err != nil {
		return err
	}

	mutation := ports.Mutation{}
	if from == to {
		if source.Total() < amount {
			return domainerrors.ErrInsufficientBalance
		}
	} else {
		deltas, ok := source.ConsumeFIFO(amount)
		if !ok {
			return domainerrors.ErrInsufficientBalance
		}
		dest, err := s.Repo.GetBook(ctx, to)
		if err != nil {
			return err
		}
		for _, d := range deltas {
			dest.Merge(d.ExemptionClass, d.IssuanceDate, d.Amount)
		}
		mutation.Books = []entities.HolderBook{source, dest}
	}

	event, err := s.newEnvelope(ctx, EventUnitsTransferred, "from", from, map[string]any{
		"from":     from,
		"to":       to,
		"amount":   amount,
		"kind":     "forced",
		"evidence": evidence,
	})
	if err != nil {
		return err
	}
	mutation.Events = []ports.EventEnvelope{event}
	if _, err := s.Repo.Apply(ctx, mutation); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Warn("forced move executed",
		"event", "ledger_forced_move",
		"module", "transfer-agent/position-ledger",
		"layer", "application",
		"from", from,
		"to", to,
		"amount", amount,
	)
	return nil
}

// bookSet caches loaded holder books so bulk operations touching the same
// holder twice mutate one copy, and Apply receives each holder once.
type bookSet struct {
	repo  ports.Repository
	books map[string]*entities.HolderBook
	order []string
}

func newBookSet(repo ports.Repository) *bookSet {
	return &bookSet{repo: repo, books: make(map[string]*entities.HolderBook)}
}

func (b *bookSet) get(ctx context.Context, holder string) (*entities.HolderBook, error) {
	if book, ok := b.books[holder]; ok {
		return book, nil
	}
	loaded, err := b.repo.GetBook(ctx, holder)
	if err != nil {
		return nil, err
	}
	b.books[holder] = &loaded
	b.order = append(b.order, holder)
	return &loaded, nil
}

func (b *bookSet) list() []entities.HolderBook {
	out := make([]entities.HolderBook, 0, len(b.order))
	for _, holder := range b.order {
		out = append(out, *b.books[holder])
	}
	return out
}
