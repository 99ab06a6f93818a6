package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paybridge/internal/shared/constants"
	"github.com/orris-inc/paybridge/internal/shared/db"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(subscriptionEntity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("subscription already registered for this gateway id")
		}
		r.logger.Errorw("failed to create subscription in database", "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := subscriptionEntity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created successfully", "id", model.ID, "tenant_id", model.TenantID, "gateway", model.Gateway)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return r.first(ctx, "id", db.GetTxFromContext(ctx, r.db).Where("id = ?", id))
}

func (r *SubscriptionRepositoryImpl) GetBySID(ctx context.Context, tenantID, sid string) (*subscription.Subscription, error) {
	return r.first(ctx, "sid", db.GetTxFromContext(ctx, r.db).Scopes(db.ForTenant(tenantID)).Where("sid = ?", sid))
}

func (r *SubscriptionRepositoryImpl) GetByExternalID(ctx context.Context, tenantID string, gateway shared.Gateway, externalID string) (*subscription.Subscription, error) {
	return r.first(ctx, "external_id", db.GetTxFromContext(ctx, r.db).
		Scopes(db.ForTenant(tenantID)).
		Where("gateway = ? AND external_id = ?", gateway.String(), externalID))
}

// FindByExternalIDAnyTenant looks a subscription up by gateway id alone.
func (r *SubscriptionRepositoryImpl) FindByExternalIDAnyTenant(ctx context.Context, gateway shared.Gateway, externalID string) (*subscription.Subscription, error) {
	return r.first(ctx, "external_id", db.GetTxFromContext(ctx, r.db).
		Where("gateway = ? AND external_id = ?", gateway.String(), externalID).
		Order("id ASC"))
}

func (r *SubscriptionRepositoryImpl) first(ctx context.Context, by string, query *gorm.DB) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get subscription", "by", by, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map subscription model to entity", "id", model.ID, "error", err)
		return nil, fmt.Errorf("failed to map subscription: %w", err)
	}
	return entity, nil
}

// Update persists the aggregate only if nobody else wrote it since it was loaded.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(subscriptionEntity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "id", subscriptionEntity.ID(), "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	previousVersion := model.Version - 1
	result := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]interface{}{
			"plan_ref":        model.PlanRef,
			"customer_ref":    model.CustomerRef,
			"status":          model.Status,
			"price":           model.Price,
			"currency":        model.Currency,
			"discount_amount": model.DiscountAmount,
			"discount_kind":   model.DiscountKind,
			"discount_months": model.DiscountMonths,
			"months_elapsed":  model.MonthsElapsed,
			"billing_period":  model.BillingPeriod,
			"next_charge_at":  model.NextChargeAt,
			"failed_attempts": model.FailedAttempts,
			"retry_cycles":    model.RetryCycles,
			"total_paid":      model.TotalPaid,
			"auto_charge":     model.AutoCharge,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		r.logger.Warnw("subscription version conflict", "id", model.ID, "expected_version", previousVersion)
		return apperrors.NewConflictError("subscription was modified concurrently")
	}

	return nil
}

func (r *SubscriptionRepositoryImpl) List(ctx context.Context, filter subscription.SubscriptionFilter) ([]*subscription.Subscription, int64, error) {
	var subscriptionModels []*models.SubscriptionModel
	var total int64

	query := db.GetTxFromContext(ctx, r.db).Table(constants.TableBillingSubscriptions).Scopes(db.ForTenant(filter.TenantID))

	if filter.Gateway != nil {
		query = query.Where("gateway = ?", filter.Gateway.String())
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}

	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count subscriptions", "error", err)
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	orderBy := filter.OrderClause("created_at DESC", "created_at", "updated_at", "next_charge_at")
	if err := query.Order(orderBy).Order("id DESC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&subscriptionModels).Error; err != nil {
		r.logger.Errorw("failed to list subscriptions", "error", err)
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	entities, err := r.mapper.ToEntities(subscriptionModels)
	if err != nil {
		r.logger.Errorw("failed to map subscription models to entities", "error", err)
		return nil, 0, fmt.Errorf("failed to map subscriptions: %w", err)
	}

	return entities, total, nil
}

// FindDue returns auto-charge subscriptions in a chargeable status whose next
// charge time has passed, oldest first.
func (r *SubscriptionRepositoryImpl) FindDue(ctx context.Context, now time.Time, limit int) ([]*subscription.Subscription, error) {
	var subscriptionModels []*models.SubscriptionModel

	query := db.GetTxFromContext(ctx, r.db).
		Where("status IN ?", []string{vo.StatusActive.String(), vo.StatusSuspended.String()}).
		Where("auto_charge = ?", true).
		Where("next_charge_at IS NOT NULL AND next_charge_at <= ?", now).
		Order("next_charge_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&subscriptionModels).Error; err != nil {
		r.logger.Errorw("failed to find due subscriptions", "error", err)
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	return r.mapper.ToEntities(subscriptionModels)
}

func (r *SubscriptionRepositoryImpl) CountActiveByGateway(ctx context.Context, tenantID string, gateway shared.Gateway) (int64, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Scopes(db.ForTenant(tenantID)).
		Where("gateway = ? AND status IN ?", gateway.String(), []string{
			vo.StatusPending.String(), vo.StatusActive.String(), vo.StatusSuspended.String(), vo.StatusPaused.String(),
		}).
		Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count active subscriptions", "tenant_id", tenantID, "gateway", gateway, "error", err)
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}
