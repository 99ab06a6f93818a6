package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/orris-inc/paybridge/internal/application/billing/services"
	connectorapp "github.com/orris-inc/paybridge/internal/application/connector"
	"github.com/orris-inc/paybridge/internal/domain/payment"
	paymentvo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/infrastructure/metrics"
	"github.com/orris-inc/paybridge/internal/infrastructure/retry"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const (
	eventSourceOrchestrator = "orchestrator"

	DefaultMaxRetryCycles    = 3
	DefaultReattemptInterval = 24 * time.Hour
)

// ErrChargeInProgress means another worker holds the subscription's charge lock.
var ErrChargeInProgress = stderrors.New("charge already in progress")

// ChargeAttemptResult reports one outbound charge. Error carries the gateway
// or eligibility reason when Success is false.
type ChargeAttemptResult struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"payment_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ChargeSettings are the billing knobs shared by the charge use cases.
type ChargeSettings struct {
	MaxRetryCycles    int
	ReattemptInterval time.Duration
	Environment       shared.Environment
}

func (s ChargeSettings) withDefaults() ChargeSettings {
	if s.MaxRetryCycles <= 0 {
		s.MaxRetryCycles = DefaultMaxRetryCycles
	}
	if s.ReattemptInterval <= 0 {
		s.ReattemptInterval = DefaultReattemptInterval
	}
	if s.Environment == "" {
		s.Environment = shared.EnvironmentProduction
	}
	return s
}

// AttemptChargeUseCase charges one due subscription through its principal
// connector and feeds the result to the state machine.
type AttemptChargeUseCase struct {
	subscriptions subscription.SubscriptionRepository
	payments      payment.PaymentRepository
	applier       *services.EventApplier
	resolver      connectorapp.Resolver
	gateways      GatewayFactory
	lock          ChargeLocker
	policy        retry.Policy
	settings      ChargeSettings
	logger        logger.Interface
}

func NewAttemptChargeUseCase(
	subscriptions subscription.SubscriptionRepository,
	payments payment.PaymentRepository,
	applier *services.EventApplier,
	resolver connectorapp.Resolver,
	gateways GatewayFactory,
	lock ChargeLocker,
	policy retry.Policy,
	settings ChargeSettings,
	logger logger.Interface,
) *AttemptChargeUseCase {
	return &AttemptChargeUseCase{
		subscriptions: subscriptions,
		payments:      payments,
		applier:       applier,
		resolver:      resolver,
		gateways:      gateways,
		lock:          lock,
		policy:        policy,
		settings:      settings.withDefaults(),
		logger:        logger,
	}
}

func (uc *AttemptChargeUseCase) Execute(ctx context.Context, subscriptionID uint) (*ChargeAttemptResult, error) {
	var result *ChargeAttemptResult
	err := uc.withLock(ctx, subscriptionID, func(ctx context.Context) error {
		var err error
		result, err = uc.charge(ctx, subscriptionID)
		return err
	})
	return result, err
}

// withLock runs fn while holding the subscription's charge lock.
func (uc *AttemptChargeUseCase) withLock(ctx context.Context, subscriptionID uint, fn func(ctx context.Context) error) error {
	key := strconv.FormatUint(uint64(subscriptionID), 10)
	token, acquired, err := uc.lock.Acquire(ctx, key)
	if err != nil {
		return err
	}
	if !acquired {
		return errors.NewConflictError(ErrChargeInProgress.Error())
	}
	defer func() {
		if err := uc.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
			uc.logger.Warnw("failed to release charge lock", "subscription_id", subscriptionID, "error", err)
		}
	}()
	return fn(ctx)
}

func (uc *AttemptChargeUseCase) eligible(sub *subscription.Subscription) error {
	if !sub.AutoCharge() {
		return fmt.Errorf("%w: auto charge disabled", subscription.ErrNotChargeable)
	}
	switch sub.Status() {
	case vo.StatusActive:
		return nil
	case vo.StatusSuspended:
		if sub.RetryCycles() <= uc.settings.MaxRetryCycles {
			return nil
		}
		return fmt.Errorf("%w: retry cycles exhausted", subscription.ErrNotChargeable)
	default:
		return fmt.Errorf("%w: status %s", subscription.ErrNotChargeable, sub.Status())
	}
}

// charge assumes the caller holds the charge lock.
func (uc *AttemptChargeUseCase) charge(ctx context.Context, subscriptionID uint) (*ChargeAttemptResult, error) {
	sub, err := uc.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		if stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil, errors.NewNotFoundError("subscription not found")
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if err := uc.eligible(sub); err != nil {
		uc.logger.Infow("subscription not charged", "subscription_sid", sub.SID(), "reason", err)
		return &ChargeAttemptResult{Error: err.Error()}, nil
	}

	log := uc.logger.With("tenant_id", sub.TenantID(), "subscription_sid", sub.SID(), "gateway", sub.Gateway())
	now := biztime.NowUTC()

	if inflight, err := uc.pendingPayment(ctx, sub.ID(), now); err != nil {
		return nil, err
	} else if inflight != nil {
		log.Infow("previous charge still pending at gateway", "payment_sid", inflight.SID())
		return &ChargeAttemptResult{PaymentID: inflight.SID(), Error: "previous charge pending"}, nil
	}

	amount := sub.AmountDue(sub.IsFirstCharge())
	money, err := paymentvo.NewMoney(amount, sub.Currency())
	if err != nil {
		return nil, fmt.Errorf("invalid amount due: %w", err)
	}

	subID := sub.ID()
	p, err := payment.NewPendingPayment(sub.TenantID(), &subID, sub.Gateway(), money, uuid.NewString())
	if err != nil {
		return nil, err
	}
	periodStart := now
	if next := sub.NextChargeAt(); next != nil {
		periodStart = *next
	}
	p.SetPeriod(periodStart, biztime.AddMonthsClamped(periodStart, sub.BillingPeriod().Months()))
	p.SetMetadata("source", eventSourceOrchestrator)
	p.SetMetadata("retry_cycle", sub.RetryCycles())

	if amount == 0 {
		return uc.settleFree(ctx, sub, p, log)
	}

	creds, err := uc.resolver.ResolvePrincipal(ctx, sub.TenantID(), sub.Gateway(), uc.settings.Environment)
	if err != nil {
		log.Errorw("cannot charge without connector", "error", err)
		return &ChargeAttemptResult{Error: "gateway not configured"}, nil
	}
	client, err := uc.gateways.Client(creds.GatewayCredentials())
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway client: %w", err)
	}

	if err := uc.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	req := gateway.ChargeRequest{
		IdempotencyKey:    p.IdempotencyKey(),
		Amount:            amount,
		Currency:          money.Currency(),
		CustomerRef:       sub.CustomerRef(),
		SubscriptionRef:   sub.ExternalID(),
		ExternalReference: p.SID(),
		Description:       fmt.Sprintf("subscription %s", sub.SID()),
	}
	res, chargeErr := retry.RunWithNotify(ctx, func(ctx context.Context) (*gateway.ChargeResult, error) {
		return client.Charge(ctx, req)
	}, uc.policy, func(n int, delay time.Duration, err error) {
		metrics.IncGatewayRetry(sub.Gateway().String(), "charge")
		log.Warnw("charge failed, retrying", "payment_sid", p.SID(), "retry", n, "delay", delay, "error", err)
	})

	return uc.settle(ctx, sub, p, res, chargeErr, log)
}

// pendingPayment returns the newest payment when it is still pending and
// younger than the reattempt interval.
func (uc *AttemptChargeUseCase) pendingPayment(ctx context.Context, subscriptionID uint, now time.Time) (*payment.Payment, error) {
	recent, err := uc.payments.ListBySubscription(ctx, subscriptionID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if len(recent) == 0 {
		return nil, nil
	}
	p := recent[0]
	if p.Status().IsPending() && p.CreatedAt().After(now.Add(-uc.settings.ReattemptInterval)) {
		return p, nil
	}
	return nil, nil
}

func (uc *AttemptChargeUseCase) settleFree(ctx context.Context, sub *subscription.Subscription, p *payment.Payment, log logger.Interface) (*ChargeAttemptResult, error) {
	if err := p.MarkCompleted(); err != nil {
		return nil, err
	}
	if _, _, err := uc.applier.ApplyWithin(ctx, sub.ID(), subscription.Event{
		Kind:     subscription.EventChargeSucceeded,
		Source:   eventSourceOrchestrator,
		Reason:   "nothing due",
		Metadata: map[string]interface{}{"payment_id": p.SID()},
	}, func(ctx context.Context, _ *subscription.Subscription, _ subscription.Outcome) error {
		if err := uc.payments.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	log.Infow("zero amount due, period advanced without gateway call", "payment_sid", p.SID())
	metrics.IncCharge(sub.Gateway().String(), "free")
	return &ChargeAttemptResult{Success: true, PaymentID: p.SID()}, nil
}

func (uc *AttemptChargeUseCase) settle(
	ctx context.Context,
	sub *subscription.Subscription,
	p *payment.Payment,
	res *gateway.ChargeResult,
	chargeErr error,
	log logger.Interface,
) (*ChargeAttemptResult, error) {
	gw := sub.Gateway().String()

	result := &ChargeAttemptResult{PaymentID: p.SID()}
	event := subscription.Event{
		Source:   eventSourceOrchestrator,
		Metadata: map[string]interface{}{"payment_id": p.SID()},
	}

	switch {
	case chargeErr != nil:
		metrics.IncCharge(gw, "error")
		log.Errorw("charge failed", "payment_sid", p.SID(), "error", chargeErr)
		result.Error = chargeErr.Error()
		if err := p.MarkFailed(chargeErr.Error()); err != nil {
			return nil, err
		}
		uc.failureEvent(&event, chargeErr.Error())
	case res.Outcome == gateway.PaymentApproved:
		metrics.IncCharge(gw, string(res.Outcome))
		p.AttachExternalID(res.ExternalID)
		if err := p.MarkCompleted(); err != nil {
			return nil, err
		}
		result.Success = true
		event.Kind = subscription.EventChargeSucceeded
		event.Amount = p.Amount().Amount()
		event.Metadata["external_id"] = res.ExternalID
	case res.Outcome == gateway.PaymentPending:
		metrics.IncCharge(gw, string(res.Outcome))
		p.AttachExternalID(res.ExternalID)
		if err := uc.payments.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
		log.Infow("charge pending at gateway", "payment_sid", p.SID(), "external_id", res.ExternalID)
		result.Error = "charge pending"
		return result, nil
	default:
		metrics.IncCharge(gw, string(gateway.PaymentRejected))
		reason := failureReason(res.StatusDetail, res.RawStatus)
		p.AttachExternalID(res.ExternalID)
		if err := p.MarkFailed(reason); err != nil {
			return nil, err
		}
		result.Error = reason
		uc.failureEvent(&event, reason)
		event.Metadata["external_id"] = res.ExternalID
	}

	_, _, err := uc.applier.ApplyWithin(ctx, sub.ID(), event, func(ctx context.Context, _ *subscription.Subscription, _ subscription.Outcome) error {
		return uc.payments.Settle(ctx, p)
	})
	if stderrors.Is(err, payment.ErrPaymentAlreadySettled) {
		return uc.settledElsewhere(ctx, p, log)
	}
	if err != nil {
		log.Errorw("failed to apply charge result", "payment_sid", p.SID(), "event", event.Kind, "error", err)
		return nil, err
	}

	log.Infow("charge attempt finished",
		"payment_sid", p.SID(),
		"amount", p.Amount().String(),
		"success", result.Success,
	)
	return result, nil
}

// settledElsewhere reports a payment a webhook settled while the charge call
// was in flight; its transition was already applied by that webhook.
func (uc *AttemptChargeUseCase) settledElsewhere(ctx context.Context, p *payment.Payment, log logger.Interface) (*ChargeAttemptResult, error) {
	current, err := uc.payments.GetByID(ctx, p.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to reload payment: %w", err)
	}
	log.Infow("payment settled by webhook during charge", "payment_sid", p.SID(), "status", current.Status())
	result := &ChargeAttemptResult{
		Success:   current.Status() == paymentvo.PaymentStatusCompleted,
		PaymentID: p.SID(),
	}
	if !result.Success {
		result.Error = string(current.Status())
		if reason := current.FailureReason(); reason != nil {
			result.Error = *reason
		}
	}
	return result, nil
}

func (uc *AttemptChargeUseCase) failureEvent(ev *subscription.Event, reason string) {
	retryAt := biztime.NowUTC().Add(uc.settings.ReattemptInterval)
	ev.Kind = subscription.EventChargeFailed
	ev.Reason = reason
	ev.RetryAt = &retryAt
}
