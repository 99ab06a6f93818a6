package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/domain/subscription"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paybridge/internal/shared/db"
	"github.com/orris-inc/paybridge/internal/shared/mapper"
)

type SubscriptionHistoryRepository struct {
	db *gorm.DB
}

func NewSubscriptionHistoryRepository(db *gorm.DB) *SubscriptionHistoryRepository {
	return &SubscriptionHistoryRepository{db: db}
}

func (r *SubscriptionHistoryRepository) Create(ctx context.Context, history *subscription.SubscriptionHistory) error {
	model, err := mappers.SubscriptionHistoryToModel(history)
	if err != nil {
		return err
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create subscription history: %w", err)
	}

	return history.SetID(model.ID)
}

// ListBySubscription returns the newest entries first.
func (r *SubscriptionHistoryRepository) ListBySubscription(ctx context.Context, subscriptionID uint, limit int) ([]*subscription.SubscriptionHistory, error) {
	var historyModels []*models.SubscriptionHistoryModel

	query := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&historyModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscription history: %w", err)
	}

	return mapper.MapSliceWithError(historyModels, mappers.SubscriptionHistoryToDomain)
}
