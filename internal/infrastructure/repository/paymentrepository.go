package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/domain/payment"
	paymentvo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paybridge/internal/shared/db"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/mapper"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	model, err := mappers.PaymentToModel(p)
	if err != nil {
		return err
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("payment already exists", p.IdempotencyKey())
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	// Write back the auto-generated ID to the domain object
	return p.SetID(model.ID)
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	model, err := mappers.PaymentToModel(p)
	if err != nil {
		return err
	}

	// Note: RowsAffected may be 0 when updated values are identical to existing values.
	if err := r.pending(ctx, model.ID).Updates(paymentColumns(model)).Error; err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Settle(ctx context.Context, p *payment.Payment) error {
	if !p.Status().IsFinal() {
		return fmt.Errorf("cannot settle payment in status %s", p.Status())
	}
	model, err := mappers.PaymentToModel(p)
	if err != nil {
		return err
	}

	result := r.pending(ctx, model.ID).Updates(paymentColumns(model))
	if result.Error != nil {
		return fmt.Errorf("failed to settle payment: %w", result.Error)
	}
	// The status column always changes here, so zero rows means the row left pending.
	if result.RowsAffected == 0 {
		return payment.ErrPaymentAlreadySettled
	}
	return nil
}

func (r *PaymentRepository) pending(ctx context.Context, id uint) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("id = ? AND payment_status = ?", id, paymentvo.PaymentStatusPending.String())
}

func paymentColumns(model *models.PaymentModel) map[string]interface{} {
	return map[string]interface{}{
		"payment_status": model.PaymentStatus,
		"external_id":    model.ExternalID,
		"period_start":   model.PeriodStart,
		"period_end":     model.PeriodEnd,
		"failure_reason": model.FailureReason,
		"metadata":       model.Metadata,
		"version":        model.Version,
		"updated_at":     model.UpdatedAt,
	}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*payment.Payment, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("id = ?", id))
}

func (r *PaymentRepository) GetBySID(ctx context.Context, sid string) (*payment.Payment, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("sid = ?", sid))
}

func (r *PaymentRepository) GetByExternalID(ctx context.Context, gateway shared.Gateway, externalID string) (*payment.Payment, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("gateway = ? AND external_id = ?", gateway.String(), externalID))
}

func (r *PaymentRepository) first(query *gorm.DB) (*payment.Payment, error) {
	var model models.PaymentModel

	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentRepository) ListBySubscription(ctx context.Context, subscriptionID uint, limit int) ([]*payment.Payment, error) {
	var paymentModels []*models.PaymentModel

	query := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, fmt.Errorf("failed to get payments by subscription_id: %w", err)
	}

	return mapper.MapSliceWithError(paymentModels, mappers.PaymentToDomain)
}
