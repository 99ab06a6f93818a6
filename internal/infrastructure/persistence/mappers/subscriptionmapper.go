package mappers

import (
	"fmt"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paybridge/internal/shared/mapper"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error)
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	status := vo.SubscriptionStatus(model.Status)
	if !vo.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}

	discount, err := vo.NewDiscount(model.DiscountAmount, vo.DiscountKind(model.DiscountKind), model.DiscountMonths)
	if err != nil {
		return nil, fmt.Errorf("failed to parse discount: %w", err)
	}

	entity, err := subscription.ReconstructSubscription(subscription.ReconstructSubscriptionParams{
		ID:             model.ID,
		SID:            model.SID,
		TenantID:       model.TenantID,
		PlanRef:        model.PlanRef,
		Gateway:        shared.Gateway(model.Gateway),
		ExternalID:     model.ExternalID,
		CustomerRef:    model.CustomerRef,
		Status:         status,
		Price:          model.Price,
		Currency:       model.Currency,
		Discount:       discount,
		MonthsElapsed:  model.MonthsElapsed,
		BillingPeriod:  vo.BillingPeriod(model.BillingPeriod),
		NextChargeAt:   model.NextChargeAt,
		FailedAttempts: model.FailedAttempts,
		RetryCycles:    model.RetryCycles,
		TotalPaid:      model.TotalPaid,
		AutoCharge:     model.AutoCharge,
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}

	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error) {
	if entity == nil {
		return nil, nil
	}

	discount := entity.Discount()
	return &models.SubscriptionModel{
		ID:             entity.ID(),
		SID:            entity.SID(),
		TenantID:       entity.TenantID(),
		PlanRef:        entity.PlanRef(),
		Gateway:        entity.Gateway().String(),
		ExternalID:     entity.ExternalID(),
		CustomerRef:    entity.CustomerRef(),
		Status:         entity.Status().String(),
		Price:          entity.Price(),
		Currency:       entity.Currency(),
		DiscountAmount: discount.Amount(),
		DiscountKind:   string(discount.Kind()),
		DiscountMonths: discount.Months(),
		MonthsElapsed:  entity.MonthsElapsed(),
		BillingPeriod:  string(entity.BillingPeriod()),
		NextChargeAt:   entity.NextChargeAt(),
		FailedAttempts: entity.FailedAttempts(),
		RetryCycles:    entity.RetryCycles(),
		TotalPaid:      entity.TotalPaid(),
		AutoCharge:     entity.AutoCharge(),
		Version:        entity.Version(),
		CreatedAt:      entity.CreatedAt(),
		UpdatedAt:      entity.UpdatedAt(),
	}, nil
}

func (m *SubscriptionMapperImpl) ToEntities(modelList []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	return mapper.MapSliceWithError(modelList, m.ToEntity)
}
