package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
	domainerrors "quill/contexts/transfer-agent/position-ledger/domain/errors"
	"quill/contexts/transfer-agent/position-ledger/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	externalFundsAccount = "system:external"
)

// Repository is the gorm-backed ledger store. Every Apply runs inside one
// database transaction so a mutation commits completely or rolls back.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Migrate creates the ledger tables and seeds the admin row when absent.
func (r *Repository) Migrate(admin ports.AdminState) error {
	if err := r.db.AutoMigrate(
		&batchModel{}, &requestModel{}, &complianceModel{},
		&adminModel{}, &feeAccountModel{}, &escrowModel{}, &outboxModel{},
	); err != nil {
		return err
	}
	seed := adminModelFromState(admin)
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error
}

func (r *Repository) GetBook(ctx context.Context, holder string) (entities.HolderBook, error) {
	holder = strings.TrimSpace(holder)
	if holder == "" {
		return entities.HolderBook{}, domainerrors.ErrInvalidHolder
	}
	var rows []batchModel
	if err := r.db.WithContext(ctx).
		Where("holder = ?", holder).
		Order("issuance_date ASC").
		Find(&rows).Error; err != nil {
		return entities.HolderBook{}, r.logError("ledger_repo_get_book_failed", err, "holder", holder)
	}
	book := entities.HolderBook{Holder: holder}
	for _, row := range rows {
		book.Batches = append(book.Batches, entities.Batch{
			ExemptionClass: row.ExemptionClass,
			IssuanceDate:   row.IssuanceDate,
			Amount:         row.Amount,
		})
	}
	return book, nil
}

func (r *Repository) GetSupply(ctx context.Context) (ports.SupplySnapshot, error) {
	type classTotal struct {
		ExemptionClass string
		Total          uint64
	}
	var totals []classTotal
	if err := r.db.WithContext(ctx).Model(&batchModel{}).
		Select("exemption_class, SUM(amount) AS total").
		Group("exemption_class").
		Scan(&totals).Error; err != nil {
		return ports.SupplySnapshot{}, r.logError("ledger_repo_get_supply_failed", err)
	}
	snapshot := ports.SupplySnapshot{ByClass: make(map[string]uint64)}
	for _, row := range totals {
		snapshot.ByClass[row.ExemptionClass] = row.Total
		snapshot.Total += row.Total
	}
	return snapshot, nil
}

func (r *Repository) GetRequest(ctx context.Context, requestID uint64) (entities.TransferRequest, error) {
	var row requestModel
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TransferRequest{}, domainerrors.ErrRequestNotFound
		}
		return entities.TransferRequest{}, r.logError("ledger_repo_get_request_failed", err, "request_id", requestID)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetCompliance(ctx context.Context, address string) (entities.ComplianceFlags, error) {
	var row complianceModel
	err := r.db.WithContext(ctx).Where("address = ?", strings.TrimSpace(address)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ComplianceFlags{}, nil
		}
		return entities.ComplianceFlags{}, r.logError("ledger_repo_get_compliance_failed", err, "address", address)
	}
	return entities.ComplianceFlags{Frozen: row.Frozen, BrokerApproved: row.BrokerApproved}, nil
}

func (r *Repository) GetAdminState(ctx context.Context) (ports.AdminState, error) {
	var row adminModel
	if err := r.db.WithContext(ctx).Where("id = ?", 1).First(&row).Error; err != nil {
		return ports.AdminState{}, r.logError("ledger_repo_get_admin_failed", err)
	}
	return row.toState(), nil
}

func (r *Repository) GetFeeBalance(ctx context.Context, asset string, address string) (uint64, error) {
	var row feeAccountModel
	err := r.db.WithContext(ctx).
		Where("asset = ? AND address = ?", asset, strings.TrimSpace(address)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("ledger_repo_get_fee_balance_failed", err, "asset", asset)
	}
	return row.Balance, nil
}

func (r *Repository) GetEscrow(ctx context.Context, asset string) (uint64, error) {
	var row escrowModel
	err := r.db.WithContext(ctx).Where("asset = ?", asset).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("ledger_repo_get_escrow_failed", err, "asset", asset)
	}
	return row.Balance, nil
}

func (r *Repository) Apply(ctx context.Context, mutation ports.Mutation) (uint64, error) {
	var assignedID uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, book := range mutation.Books {
			if err := tx.Where("holder = ?", book.Holder).Delete(&batchModel{}).Error; err != nil {
				return err
			}
			for _, batch := range book.Batches {
				row := batchModel{
					Holder:         book.Holder,
					ExemptionClass: batch.ExemptionClass,
					IssuanceDate:   batch.IssuanceDate.UTC(),
					Amount:         batch.Amount,
				}
				if err := tx.Create(&row).Error; err != nil {
					if isUniqueViolation(err) {
						return domainerrors.ErrInvalidIssuanceDate
					}
					return err
				}
			}
		}

		if mutation.Request != nil {
			row := requestModelFromEntity(*mutation.Request)
			if row.RequestID == 0 {
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			} else if err := tx.Save(&row).Error; err != nil {
				return err
			}
			assignedID = row.RequestID
		}

		for _, change := range mutation.Compliance {
			row := complianceModel{
				Address:        change.Address,
				Frozen:         change.Flags.Frozen,
				BrokerApproved: change.Flags.BrokerApproved,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "address"}},
				DoUpdates: clause.AssignmentColumns([]string{"frozen", "broker_approved"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}

		if mutation.Admin != nil {
			row := adminModelFromState(*mutation.Admin)
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}

		for _, transfer := range mutation.FeeTransfers {
			if transfer.From != externalFundsAccount {
				if err := adjustFeeAccount(tx, transfer.Asset, transfer.From, -int64(transfer.Amount)); err != nil {
					return err
				}
			}
			if err := adjustFeeAccount(tx, transfer.Asset, transfer.To, int64(transfer.Amount)); err != nil {
				return err
			}
		}

		for asset, delta := range mutation.EscrowDeltas {
			if err := adjustEscrow(tx, asset, delta); err != nil {
				return err
			}
		}

		for _, event := range mutation.Events {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			row := outboxModel{
				OutboxID:     event.EventID,
				EventType:    event.EventType,
				PartitionKey: event.PartitionKey,
				Payload:      payload,
				Status:       outboxStatusPending,
				CreatedAt:    event.OccurredAt.UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return assignedID, nil
}

func adjustFeeAccount(tx *gorm.DB, asset, address string, delta int64) error {
	var row feeAccountModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ? AND address = ?", asset, address).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = feeAccountModel{Asset: asset, Address: address}
		err = nil
	}
	if err != nil {
		return err
	}
	if delta < 0 && row.Balance < uint64(-delta) {
		return domainerrors.ErrInsufficientFeeFunds
	}
	row.Balance = uint64(int64(row.Balance) + delta)
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}, {Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance"}),
	}).Create(&row).Error
}

func adjustEscrow(tx *gorm.DB, asset string, delta int64) error {
	var row escrowModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ?", asset).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = escrowModel{Asset: asset}
		err = nil
	}
	if err != nil {
		return err
	}
	if delta < 0 && row.Balance < uint64(-delta) {
		return domainerrors.ErrInsufficientEscrow
	}
	row.Balance = uint64(int64(row.Balance) + delta)
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance"}),
	}).Create(&row).Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	ts := publishedAt.UTC()
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{"status": outboxStatusPublished, "published_at": &ts})
	if result.Error != nil {
		return r.logError("ledger_repo_mark_outbox_failed", result.Error, "outbox_id", outboxID)
	}
	return nil
}

func adminModelFromState(admin ports.AdminState) adminModel {
	return adminModel{
		ID:               1,
		RegistrarKind:    string(admin.Registrar.Kind),
		RegistrarAddress: admin.Registrar.Address,
		Issuer:           admin.Issuer,
		UnitAsset:        admin.UnitAsset,
		FeeAsset:         admin.FeeAsset,
		FeeMode:          string(admin.FeePolicy.Mode),
		FeeFlatAmount:    admin.FeePolicy.FlatAmount,
		FeeRateBps:       admin.FeePolicy.RateBps,
		FeeOpaqueAmount:  admin.FeePolicy.OpaqueAmount,
	}
}

func (m adminModel) toState() ports.AdminState {
	return ports.AdminState{
		Registrar: entities.RegistrarPrincipal{
			Kind:    entities.RegistrarKind(m.RegistrarKind),
			Address: m.RegistrarAddress,
		},
		Issuer:    m.Issuer,
		UnitAsset: m.UnitAsset,
		FeeAsset:  m.FeeAsset,
		FeePolicy: entities.FeePolicy{
			Mode:         entities.FeeMode(m.FeeMode),
			FlatAmount:   m.FeeFlatAmount,
			RateBps:      m.FeeRateBps,
			OpaqueAmount: m.FeeOpaqueAmount,
		},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "transfer-agent/position-ledger",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

// SystemClock satisfies ports.Clock with wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator satisfies ports.IDGenerator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
