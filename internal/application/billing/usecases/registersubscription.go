package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/application/billing/dto"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type RegisterSubscriptionCommand struct {
	TenantID       string
	Gateway        string
	ExternalID     string
	CustomerRef    string
	PlanRef        string
	Price          int64
	Currency       string
	DiscountAmount int64
	DiscountKind   string
	DiscountMonths int
	BillingPeriod  string
	NextChargeAt   *time.Time
	AutoCharge     bool
}

// RegisterSubscriptionUseCase creates a local subscription in pending status.
type RegisterSubscriptionUseCase struct {
	subscriptions subscription.SubscriptionRepository
	logger        logger.Interface
}

func NewRegisterSubscriptionUseCase(
	subscriptions subscription.SubscriptionRepository,
	logger logger.Interface,
) *RegisterSubscriptionUseCase {
	return &RegisterSubscriptionUseCase{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

func (uc *RegisterSubscriptionUseCase) Execute(ctx context.Context, cmd RegisterSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	sub, err := uc.register(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return dto.ToSubscriptionDTO(sub), nil
}

func (uc *RegisterSubscriptionUseCase) register(ctx context.Context, cmd RegisterSubscriptionCommand) (*subscription.Subscription, error) {
	gw := shared.Gateway(cmd.Gateway)
	if !gw.IsValid() {
		return nil, errors.NewValidationError("unsupported gateway", cmd.Gateway)
	}
	if cmd.ExternalID == "" {
		return nil, errors.NewValidationError("external subscription id is required")
	}

	discount := vo.NoDiscount()
	if cmd.DiscountKind != "" {
		d, err := vo.NewDiscount(cmd.DiscountAmount, vo.DiscountKind(cmd.DiscountKind), cmd.DiscountMonths)
		if err != nil {
			return nil, errors.NewValidationError("invalid discount", err.Error())
		}
		discount = d
	}

	sub, err := subscription.NewSubscription(subscription.NewSubscriptionParams{
		TenantID:      cmd.TenantID,
		PlanRef:       cmd.PlanRef,
		Gateway:       gw,
		ExternalID:    cmd.ExternalID,
		CustomerRef:   cmd.CustomerRef,
		Price:         cmd.Price,
		Currency:      cmd.Currency,
		Discount:      discount,
		BillingPeriod: vo.BillingPeriod(cmd.BillingPeriod),
		NextChargeAt:  cmd.NextChargeAt,
		AutoCharge:    cmd.AutoCharge,
	})
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.subscriptions.Create(ctx, sub); err != nil {
		if errors.IsConflictError(err) || errors.IsDuplicateError(err) {
			return nil, errors.NewConflictError("subscription already registered", cmd.ExternalID)
		}
		uc.logger.Errorw("failed to create subscription", "tenant_id", cmd.TenantID, "error", err)
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	uc.logger.Infow("subscription registered",
		"tenant_id", sub.TenantID(),
		"subscription_sid", sub.SID(),
		"gateway", gw,
		"external_id", sub.ExternalID(),
	)
	return sub, nil
}
