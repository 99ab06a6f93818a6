package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/application/billing/services"
	connectorapp "github.com/orris-inc/paybridge/internal/application/connector"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/infrastructure/email"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/infrastructure/metrics"
	"github.com/orris-inc/paybridge/internal/infrastructure/retry"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const msgRetryCyclesExhausted = "retry cycles exhausted"

// ReattemptChargeUseCase runs one more retry cycle for a suspended
// subscription, or cancels it once the cycle ceiling is passed.
type ReattemptChargeUseCase struct {
	attempt  *AttemptChargeUseCase
	applier  *services.EventApplier
	resolver connectorapp.Resolver
	gateways GatewayFactory
	notifier email.Notifier
	logger   logger.Interface
}

func NewReattemptChargeUseCase(
	attempt *AttemptChargeUseCase,
	applier *services.EventApplier,
	resolver connectorapp.Resolver,
	gateways GatewayFactory,
	notifier email.Notifier,
	logger logger.Interface,
) *ReattemptChargeUseCase {
	return &ReattemptChargeUseCase{
		attempt:  attempt,
		applier:  applier,
		resolver: resolver,
		gateways: gateways,
		notifier: notifier,
		logger:   logger,
	}
}

func (uc *ReattemptChargeUseCase) Execute(ctx context.Context, subscriptionID uint) (*ChargeAttemptResult, error) {
	var result *ChargeAttemptResult
	err := uc.attempt.withLock(ctx, subscriptionID, func(ctx context.Context) error {
		var err error
		result, err = uc.reattempt(ctx, subscriptionID)
		return err
	})
	return result, err
}

func (uc *ReattemptChargeUseCase) reattempt(ctx context.Context, subscriptionID uint) (*ChargeAttemptResult, error) {
	sub, err := uc.attempt.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		if stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil, errors.NewNotFoundError("subscription not found")
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub.Status() != vo.StatusSuspended {
		return &ChargeAttemptResult{Error: fmt.Sprintf("%s: status %s", subscription.ErrNotChargeable, sub.Status())}, nil
	}
	if !sub.AutoCharge() {
		return &ChargeAttemptResult{Error: fmt.Sprintf("%s: auto charge disabled", subscription.ErrNotChargeable)}, nil
	}
	if inflight, err := uc.attempt.pendingPayment(ctx, sub.ID(), biztime.NowUTC()); err != nil {
		return nil, err
	} else if inflight != nil {
		return &ChargeAttemptResult{PaymentID: inflight.SID(), Error: "previous charge pending"}, nil
	}

	// Persisted on its own so the cycle counts even if the charge below fails.
	sub, err = uc.applier.StartRetryCycle(ctx, sub.ID())
	if err != nil {
		return nil, err
	}

	maxCycles := uc.attempt.settings.MaxRetryCycles
	if sub.RetryCycles() <= maxCycles {
		uc.logger.Infow("starting retry cycle",
			"subscription_sid", sub.SID(),
			"retry_cycle", sub.RetryCycles(),
			"max_retry_cycles", maxCycles,
		)
		return uc.attempt.charge(ctx, sub.ID())
	}

	return uc.exhaust(ctx, sub)
}

func (uc *ReattemptChargeUseCase) exhaust(ctx context.Context, sub *subscription.Subscription) (*ChargeAttemptResult, error) {
	log := uc.logger.With("tenant_id", sub.TenantID(), "subscription_sid", sub.SID(), "gateway", sub.Gateway())

	_, outcome, err := uc.applier.Apply(ctx, sub.ID(), subscription.Event{
		Kind:   subscription.EventRetryCyclesExhausted,
		Reason: msgRetryCyclesExhausted,
		Source: eventSourceOrchestrator,
		Metadata: map[string]interface{}{
			"retry_cycles": sub.RetryCycles(),
		},
	})
	if err != nil {
		return nil, err
	}
	if !outcome.Applied {
		return &ChargeAttemptResult{Error: outcome.Reason}, nil
	}
	log.Warnw("retry cycles exhausted, subscription cancelled", "retry_cycles", sub.RetryCycles())

	if sub.ExternalID() != "" {
		if err := uc.cancelAtGateway(ctx, sub); err != nil {
			log.Errorw("failed to cancel subscription at gateway", "external_id", sub.ExternalID(), "error", err)
		}
	}
	if err := uc.notifier.NotifyRetryCyclesExhausted(ctx, sub.TenantID(), sub.SID(), sub.ExternalID(), sub.RetryCycles()); err != nil {
		log.Errorw("failed to notify retry exhaustion", "error", err)
	}

	return &ChargeAttemptResult{Error: msgRetryCyclesExhausted}, nil
}

func (uc *ReattemptChargeUseCase) cancelAtGateway(ctx context.Context, sub *subscription.Subscription) error {
	creds, err := uc.resolver.ResolvePrincipal(ctx, sub.TenantID(), sub.Gateway(), uc.attempt.settings.Environment)
	if err != nil {
		return err
	}
	client, err := uc.gateways.Client(creds.GatewayCredentials())
	if err != nil {
		return err
	}
	_, err = retry.RunWithNotify(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.CancelSubscription(ctx, sub.ExternalID())
	}, uc.attempt.policy, func(int, time.Duration, error) {
		metrics.IncGatewayRetry(sub.Gateway().String(), "cancel")
	})
	if gateway.IsNotFound(err) {
		return nil
	}
	return err
}
