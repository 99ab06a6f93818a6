package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paybridge/internal/shared/db"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/mapper"
)

// ProcessedEventRepository stores the webhook dedup ledger. The unique index
// on (gateway, request_id) arbitrates concurrent deliveries.
type ProcessedEventRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewProcessedEventRepository(db *gorm.DB, logger logger.Interface) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: db, logger: logger}
}

func (r *ProcessedEventRepository) IsAccepted(ctx context.Context, gateway shared.Gateway, requestID string) (bool, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).Model(&models.ProcessedWebhookEventModel{}).
		Where("gateway = ? AND request_id = ? AND accepted = ?", gateway.String(), requestID, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return count > 0, nil
}

func (r *ProcessedEventRepository) Claim(ctx context.Context, event *webhook.ProcessedEvent) (bool, error) {
	model := mappers.ProcessedEventToModel(event)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim processed event: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		event.SetID(model.ID)
		return true, nil
	}

	// A rejected delivery left a row behind; an authentic one may take it over.
	result = tx.Model(&models.ProcessedWebhookEventModel{}).
		Where("gateway = ? AND request_id = ? AND accepted = ?", model.Gateway, model.RequestID, false).
		Updates(map[string]interface{}{
			"event_type":  model.EventType,
			"data_id":     model.DataID,
			"tenant_id":   model.TenantID,
			"outcome":     model.Outcome,
			"message":     nil,
			"source_ip":   model.SourceIP,
			"accepted":    true,
			"received_at": model.ReceivedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to take over rejected event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	stored, err := r.Get(ctx, event.Gateway(), event.RequestID())
	if err != nil {
		return false, err
	}
	event.SetID(stored.ID())
	r.logger.Infow("rejected webhook delivery superseded", "gateway", model.Gateway, "request_id", model.RequestID)
	return true, nil
}

func (r *ProcessedEventRepository) RecordRejection(ctx context.Context, event *webhook.ProcessedEvent) error {
	model := mappers.ProcessedEventToModel(event)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to record rejected event: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		event.SetID(model.ID)
		return nil
	}

	if err := tx.Model(&models.ProcessedWebhookEventModel{}).
		Where("gateway = ? AND request_id = ? AND accepted = ?", model.Gateway, model.RequestID, false).
		Updates(map[string]interface{}{
			"message":     model.Message,
			"source_ip":   model.SourceIP,
			"received_at": model.ReceivedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to refresh rejected event: %w", err)
	}
	return nil
}

func (r *ProcessedEventRepository) Get(ctx context.Context, gateway shared.Gateway, requestID string) (*webhook.ProcessedEvent, error) {
	var model models.ProcessedWebhookEventModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("gateway = ? AND request_id = ?", gateway.String(), requestID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, webhook.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get processed event: %w", err)
	}
	return mappers.ProcessedEventToDomain(&model)
}

func (r *ProcessedEventRepository) Finalize(ctx context.Context, event *webhook.ProcessedEvent) error {
	model := mappers.ProcessedEventToModel(event)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.ProcessedWebhookEventModel{}).
		Where("gateway = ? AND request_id = ? AND accepted = ? AND outcome = ?",
			model.Gateway, model.RequestID, true, string(webhook.OutcomePending)).
		Updates(map[string]interface{}{
			"outcome":   model.Outcome,
			"message":   model.Message,
			"tenant_id": model.TenantID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize processed event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return webhook.ErrAlreadyFinalized
	}
	return nil
}

// ListPendingBefore returns accepted records still pending that were received
// before the cutoff, oldest first.
func (r *ProcessedEventRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*webhook.ProcessedEvent, error) {
	var eventModels []*models.ProcessedWebhookEventModel

	query := db.GetTxFromContext(ctx, r.db).
		Where("accepted = ? AND outcome = ? AND received_at < ?", true, string(webhook.OutcomePending), before).
		Order("received_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&eventModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}

	return mapper.MapSliceWithError(eventModels, mappers.ProcessedEventToDomain)
}
