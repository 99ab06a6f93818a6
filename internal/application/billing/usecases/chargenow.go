package usecases

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type ChargeNowCommand struct {
	TenantID        string
	SubscriptionSID string
}

// ChargeNowUseCase lets an operator trigger a charge outside the scheduler.
// Suspended subscriptions go through a retry cycle, everything else through a
// plain attempt.
type ChargeNowUseCase struct {
	subscriptions subscription.SubscriptionRepository
	attempt       *AttemptChargeUseCase
	reattempt     *ReattemptChargeUseCase
	logger        logger.Interface
}

func NewChargeNowUseCase(
	subscriptions subscription.SubscriptionRepository,
	attempt *AttemptChargeUseCase,
	reattempt *ReattemptChargeUseCase,
	logger logger.Interface,
) *ChargeNowUseCase {
	return &ChargeNowUseCase{
		subscriptions: subscriptions,
		attempt:       attempt,
		reattempt:     reattempt,
		logger:        logger,
	}
}

func (uc *ChargeNowUseCase) Execute(ctx context.Context, cmd ChargeNowCommand) (*ChargeAttemptResult, error) {
	if cmd.TenantID == "" || cmd.SubscriptionSID == "" {
		return nil, errors.NewValidationError("tenant and subscription id are required")
	}

	sub, err := uc.subscriptions.GetBySID(ctx, cmd.TenantID, cmd.SubscriptionSID)
	if err != nil {
		if stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil, errors.NewNotFoundError("subscription not found")
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	uc.logger.Infow("manual charge requested",
		"tenant_id", cmd.TenantID,
		"subscription_sid", sub.SID(),
		"status", sub.Status(),
	)

	if sub.Status() == vo.StatusSuspended {
		return uc.reattempt.Execute(ctx, sub.ID())
	}
	return uc.attempt.Execute(ctx, sub.ID())
}
