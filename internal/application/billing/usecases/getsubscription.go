package usecases

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/orris-inc/paybridge/internal/application/billing/dto"
	"github.com/orris-inc/paybridge/internal/domain/payment"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const (
	defaultHistoryLimit  = 50
	defaultPaymentsLimit = 20
)

type GetSubscriptionQuery struct {
	TenantID        string
	SubscriptionSID string
}

// GetSubscriptionUseCase returns one subscription with its recent history and payments.
type GetSubscriptionUseCase struct {
	subscriptions subscription.SubscriptionRepository
	history       subscription.HistoryRepository
	payments      payment.PaymentRepository
	logger        logger.Interface
}

func NewGetSubscriptionUseCase(
	subscriptions subscription.SubscriptionRepository,
	history subscription.HistoryRepository,
	payments payment.PaymentRepository,
	logger logger.Interface,
) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{
		subscriptions: subscriptions,
		history:       history,
		payments:      payments,
		logger:        logger,
	}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, query GetSubscriptionQuery) (*dto.SubscriptionDTO, error) {
	sub, err := uc.subscriptions.GetBySID(ctx, query.TenantID, query.SubscriptionSID)
	if err != nil {
		if stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil, errors.NewNotFoundError("subscription not found", query.SubscriptionSID)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	records, err := uc.history.ListBySubscription(ctx, sub.ID(), defaultHistoryLimit)
	if err != nil {
		uc.logger.Errorw("failed to list subscription history", "subscription_sid", sub.SID(), "error", err)
		return nil, fmt.Errorf("failed to list subscription history: %w", err)
	}
	payments, err := uc.payments.ListBySubscription(ctx, sub.ID(), defaultPaymentsLimit)
	if err != nil {
		uc.logger.Errorw("failed to list subscription payments", "subscription_sid", sub.SID(), "error", err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	out := dto.ToSubscriptionDTO(sub)
	out.History = dto.ToHistoryDTOs(records)
	out.Payments = dto.ToPaymentDTOs(payments)
	return out, nil
}
