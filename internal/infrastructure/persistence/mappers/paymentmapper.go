package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/paybridge/internal/domain/payment"
	vo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
)

func PaymentToModel(p *payment.Payment) (*models.PaymentModel, error) {
	model := &models.PaymentModel{
		ID:             p.ID(),
		SID:            p.SID(),
		SubscriptionID: p.SubscriptionID(),
		TenantID:       p.TenantID(),
		Amount:         p.Amount().Amount(),
		Currency:       p.Amount().Currency(),
		PaymentStatus:  p.Status().String(),
		Gateway:        p.Gateway().String(),
		ExternalID:     p.ExternalID(),
		IdempotencyKey: p.IdempotencyKey(),
		PeriodStart:    p.PeriodStart(),
		PeriodEnd:      p.PeriodEnd(),
		FailureReason:  clampReasonPtr(p.FailureReason()),
		Version:        p.Version(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}

	if len(p.Metadata()) > 0 {
		raw, err := json.Marshal(p.Metadata())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payment metadata: %w", err)
		}
		model.Metadata = datatypes.JSON(raw)
	}

	return model, nil
}

func PaymentToDomain(model *models.PaymentModel) (*payment.Payment, error) {
	amount, err := vo.NewMoney(model.Amount, model.Currency)
	if err != nil {
		return nil, fmt.Errorf("invalid payment amount: %w", err)
	}

	status := vo.PaymentStatus(model.PaymentStatus)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %s", model.PaymentStatus)
	}

	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment metadata: %w", err)
		}
	}

	return payment.ReconstructPayment(payment.ReconstructPaymentParams{
		ID:             model.ID,
		SID:            model.SID,
		SubscriptionID: model.SubscriptionID,
		TenantID:       model.TenantID,
		Amount:         amount,
		Status:         status,
		Gateway:        shared.Gateway(model.Gateway),
		ExternalID:     model.ExternalID,
		IdempotencyKey: model.IdempotencyKey,
		PeriodStart:    model.PeriodStart,
		PeriodEnd:      model.PeriodEnd,
		FailureReason:  model.FailureReason,
		Metadata:       metadata,
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	})
}
