package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	domainerrors "quill/contexts/transfer-agent/authorization-gateway/domain/errors"
	"quill/contexts/transfer-agent/authorization-gateway/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the gorm-backed gateway store. Every Apply runs inside one
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

// Migrate creates the gateway tables and seeds the roster when absent.
func (r *Repository) Migrate(roster entities.Roster) error {
	if err := r.db.AutoMigrate(
		&operationModel{}, &confirmationModel{}, &memberModel{},
		&configModel{}, &allowListModel{}, &outboxModel{},
	); err != nil {
		return err
	}
	for i, member := range roster.Members {
		row := memberModel{Member: member, Position: i}
		if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	seed := configModel{ID: 1, Threshold: roster.Threshold}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error
}

func (r *Repository) GetOperation(ctx context.Context, operationID uint64) (entities.Operation, error) {
	var row operationModel
	err := r.db.WithContext(ctx).Where("operation_id = ?", operationID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Operation{}, domainerrors.ErrOperationNotFound
		}
		return entities.Operation{}, r.logError("gateway_repo_get_operation_failed", err, "operation_id", operationID)
	}

	var command entities.Command
	if err := json.Unmarshal(row.Command, &command); err != nil {
		return entities.Operation{}, r.logError("gateway_repo_decode_command_failed", err, "operation_id", operationID)
	}

	var confirmations []confirmationModel
	if err := r.db.WithContext(ctx).
		Where("operation_id = ?", operationID).
		Order("position ASC").
		Find(&confirmations).Error; err != nil {
		return entities.Operation{}, r.logError("gateway_repo_get_confirmations_failed", err, "operation_id", operationID)
	}

	operation := entities.Operation{
		OperationID: row.OperationID,
		Command:     command,
		Value:       row.Value,
		Executed:    row.Executed,
		SubmittedAt: row.SubmittedAt,
	}
	for _, confirmation := range confirmations {
		operation.Confirmations = append(operation.Confirmations, confirmation.Member)
	}
	return operation, nil
}

func (r *Repository) GetRoster(ctx context.Context) (entities.Roster, error) {
	var members []memberModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&members).Error; err != nil {
		return entities.Roster{}, r.logError("gateway_repo_get_members_failed", err)
	}
	var config configModel
	if err := r.db.WithContext(ctx).Where("id = ?", 1).First(&config).Error; err != nil {
		return entities.Roster{}, r.logError("gateway_repo_get_config_failed", err)
	}
	roster := entities.Roster{Threshold: config.Threshold}
	for _, member := range members {
		roster.Members = append(roster.Members, member.Member)
	}
	return roster, nil
}

func (r *Repository) GetAllowList(ctx context.Context) ([]string, error) {
	var rows []allowListModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("gateway_repo_get_allowlist_failed", err)
	}
	allowList := make([]string, 0, len(rows))
	for _, row := range rows {
		allowList = append(allowList, row.Destination)
	}
	return allowList, nil
}

func (r *Repository) Apply(ctx context.Context, mutation ports.Mutation) (uint64, error) {
	var assignedID uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if mutation.Operation != nil {
			command, err := json.Marshal(mutation.Operation.Command)
			if err != nil {
				return err
			}
			row := operationModel{
				OperationID: mutation.Operation.OperationID,
				Command:     command,
				Value:       mutation.Operation.Value,
				Executed:    mutation.Operation.Executed,
				SubmittedAt: mutation.Operation.SubmittedAt.UTC(),
			}
			if row.OperationID == 0 {
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			} else if err := tx.Save(&row).Error; err != nil {
				return err
			}
			assignedID = row.OperationID

			if err := tx.Where("operation_id = ?", row.OperationID).Delete(&confirmationModel{}).Error; err != nil {
				return err
			}
			for i, member := range mutation.Operation.Confirmations {
				confirmation := confirmationModel{OperationID: row.OperationID, Member: member, Position: i}
				if err := tx.Create(&confirmation).Error; err != nil {
					return err
				}
			}
		}

		if mutation.Roster != nil {
			if err := tx.Where("1 = 1").Delete(&memberModel{}).Error; err != nil {
				return err
			}
			for i, member := range mutation.Roster.Members {
				row := memberModel{Member: member, Position: i}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
			config := configModel{ID: 1, Threshold: mutation.Roster.Threshold}
			if err := tx.Save(&config).Error; err != nil {
				return err
			}
		}

		if mutation.AllowList != nil {
			if err := tx.Where("1 = 1").Delete(&allowListModel{}).Error; err != nil {
				return err
			}
			for i, destination := range *mutation.AllowList {
				row := allowListModel{Destination: destination, Position: i}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
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
		return nil, r.logError("gateway_repo_list_outbox_failed", err)
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
		return r.logError("gateway_repo_mark_outbox_failed", result.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "transfer-agent/authorization-gateway",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("gateway repository operation failed", fields...)
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
