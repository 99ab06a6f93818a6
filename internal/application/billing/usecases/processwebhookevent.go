package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/orris-inc/paybridge/internal/application/billing/services"
	connectorapp "github.com/orris-inc/paybridge/internal/application/connector"
	"github.com/orris-inc/paybridge/internal/domain/payment"
	paymentvo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/infrastructure/metrics"
	"github.com/orris-inc/paybridge/internal/infrastructure/retry"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/id"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const eventSourceWebhook = "webhook"

type ProcessWebhookEventCommand struct {
	Gateway   shared.Gateway
	TenantID  string
	RequestID string
	DataID    string
	Kind      gateway.NotificationKind
}

type ProcessWebhookEventResult struct {
	Outcome webhook.Outcome
	Message string
}

// ProcessWebhookEventUseCase is the detached half of webhook handling: it
// fetches the authoritative detail, applies it and finalizes the dedup record.
type ProcessWebhookEventUseCase struct {
	gateways      GatewayFactory
	resolver      connectorapp.Resolver
	guard         *services.IdempotencyGuard
	applier       *services.EventApplier
	subscriptions subscription.SubscriptionRepository
	lookup        subscription.SystemSubscriptionLookup
	payments      payment.PaymentRepository
	register      *RegisterSubscriptionUseCase
	policy        retry.Policy
	environment   shared.Environment
	retryAfter    time.Duration
	logger        logger.Interface
}

func NewProcessWebhookEventUseCase(
	gateways GatewayFactory,
	resolver connectorapp.Resolver,
	guard *services.IdempotencyGuard,
	applier *services.EventApplier,
	subscriptions subscription.SubscriptionRepository,
	lookup subscription.SystemSubscriptionLookup,
	payments payment.PaymentRepository,
	register *RegisterSubscriptionUseCase,
	policy retry.Policy,
	environment shared.Environment,
	retryAfter time.Duration,
	logger logger.Interface,
) *ProcessWebhookEventUseCase {
	return &ProcessWebhookEventUseCase{
		gateways:      gateways,
		resolver:      resolver,
		guard:         guard,
		applier:       applier,
		subscriptions: subscriptions,
		lookup:        lookup,
		payments:      payments,
		register:      register,
		policy:        policy,
		environment:   environment,
		retryAfter:    retryAfter,
		logger:        logger,
	}
}

// Execute never returns an error: every failure ends up in the dedup record.
func (uc *ProcessWebhookEventUseCase) Execute(ctx context.Context, cmd ProcessWebhookEventCommand) *ProcessWebhookEventResult {
	log := uc.logger.With("gateway", cmd.Gateway, "tenant_id", cmd.TenantID, "request_id", cmd.RequestID, "data_id", cmd.DataID)

	outcome, message, err := uc.process(ctx, cmd, log)
	if err != nil {
		log.Errorw("webhook processing failed", "kind", cmd.Kind, "error", err)
		outcome, message = webhook.OutcomeError, err.Error()
	} else {
		log.Infow("webhook processed", "kind", cmd.Kind, "outcome", outcome, "message", message)
	}

	if err := uc.guard.Finalize(ctx, cmd.Gateway, cmd.RequestID, outcome, message, cmd.TenantID); err != nil {
		if stderrors.Is(err, webhook.ErrAlreadyFinalized) {
			log.Warnw("webhook outcome already finalized", "outcome", outcome)
		} else {
			log.Errorw("failed to finalize webhook outcome", "outcome", outcome, "error", err)
		}
	}
	metrics.IncWebhookProcessed(cmd.Gateway.String(), string(outcome))

	return &ProcessWebhookEventResult{Outcome: outcome, Message: message}
}

func (uc *ProcessWebhookEventUseCase) process(ctx context.Context, cmd ProcessWebhookEventCommand, log logger.Interface) (webhook.Outcome, string, error) {
	creds, err := uc.resolver.ResolvePrincipal(ctx, cmd.TenantID, cmd.Gateway, uc.environment)
	if err != nil {
		return "", "", fmt.Errorf("connector unavailable: %w", err)
	}
	client, err := uc.gateways.Client(creds.GatewayCredentials())
	if err != nil {
		return "", "", fmt.Errorf("failed to build gateway client: %w", err)
	}

	notify := func(op string) retry.Notify {
		return func(n int, delay time.Duration, err error) {
			metrics.IncGatewayRetry(cmd.Gateway.String(), op)
			log.Warnw("gateway call failed, retrying", "operation", op, "retry", n, "delay", delay, "error", err)
		}
	}

	switch cmd.Kind {
	case gateway.NotificationPayment:
		ev, err := retry.RunWithNotify(ctx, func(ctx context.Context) (*gateway.PaymentEvent, error) {
			return client.FetchPaymentEvent(ctx, cmd.DataID)
		}, uc.policy, notify("fetch_payment"))
		if err != nil {
			return "", "", fmt.Errorf("failed to fetch payment: %w", err)
		}
		return uc.handlePayment(ctx, cmd, ev, log)
	case gateway.NotificationSubscription:
		ev, err := retry.RunWithNotify(ctx, func(ctx context.Context) (*gateway.SubscriptionEvent, error) {
			return client.FetchSubscriptionEvent(ctx, cmd.DataID)
		}, uc.policy, notify("fetch_subscription"))
		if err != nil {
			return "", "", fmt.Errorf("failed to fetch subscription: %w", err)
		}
		return uc.handleSubscription(ctx, cmd, ev)
	default:
		return webhook.OutcomeSkipped, msgUnsupportedWebhook, nil
	}
}

func (uc *ProcessWebhookEventUseCase) handlePayment(ctx context.Context, cmd ProcessWebhookEventCommand, ev *gateway.PaymentEvent, log logger.Interface) (webhook.Outcome, string, error) {
	p, err := uc.findPayment(ctx, cmd, ev)
	if err != nil {
		return "", "", err
	}
	if p != nil && p.Status().IsFinal() {
		return webhook.OutcomeSkipped, fmt.Sprintf("payment already %s", p.Status()), nil
	}

	sub, err := uc.findPaymentSubscription(ctx, cmd, p, ev)
	if err != nil {
		return "", "", err
	}
	if sub == nil && ev.SubscriptionRef != "" {
		return webhook.OutcomeSkipped, "unknown subscription", nil
	}

	if p == nil {
		p, err = uc.newInboundPayment(ctx, cmd, ev, sub)
		if apperrors.IsConflictError(err) {
			// Another notification for the same gateway payment inserted it first.
			p, err = uc.payments.GetByExternalID(ctx, cmd.Gateway, ev.ExternalID)
			if err == nil && p.Status().IsFinal() {
				return webhook.OutcomeSkipped, fmt.Sprintf("payment already %s", p.Status()), nil
			}
		}
		if err != nil {
			return "", "", err
		}
	} else {
		p.AttachExternalID(ev.ExternalID)
		if reported, err := paymentvo.NewMoney(ev.Amount, ev.Currency); err == nil && reported.IsPositive() && !reported.Equals(p.Amount()) {
			log.Warnw("gateway amount differs from local payment",
				"payment_sid", p.SID(),
				"expected", p.Amount().String(),
				"reported", reported.String(),
			)
			p.SetMetadata("gateway_amount", reported.String())
		}
	}

	if ev.Outcome == gateway.PaymentPending {
		if err := uc.payments.Update(ctx, p); err != nil {
			return "", "", fmt.Errorf("failed to update payment: %w", err)
		}
		return webhook.OutcomeSkipped, "payment pending", nil
	}

	switch ev.Outcome {
	case gateway.PaymentApproved:
		err = p.MarkCompleted()
	case gateway.PaymentRejected:
		err = p.MarkFailed(failureReason(ev.StatusDetail, ev.RawStatus))
	}
	if err != nil {
		return "", "", err
	}

	outcome, message := webhook.OutcomeSuccess, ""
	if sub == nil {
		err = uc.payments.Settle(ctx, p)
	} else {
		var applied subscription.Outcome
		if applied, err = uc.applyPayment(ctx, sub, p, ev, cmd.RequestID); err == nil && !applied.Applied {
			outcome, message = webhook.OutcomeSkipped, applied.Reason
		}
	}
	if stderrors.Is(err, payment.ErrPaymentAlreadySettled) {
		log.Infow("payment settled concurrently, nothing applied", "payment_sid", p.SID())
		return webhook.OutcomeSkipped, payment.ErrPaymentAlreadySettled.Error(), nil
	}
	if err != nil {
		return "", "", err
	}
	return outcome, message, nil
}

// findPayment matches the gateway payment to a local row by gateway id, then
// by the payment SID sent as external reference on outbound charges.
func (uc *ProcessWebhookEventUseCase) findPayment(ctx context.Context, cmd ProcessWebhookEventCommand, ev *gateway.PaymentEvent) (*payment.Payment, error) {
	p, err := uc.payments.GetByExternalID(ctx, cmd.Gateway, ev.ExternalID)
	if err == nil {
		if p.TenantID() != cmd.TenantID {
			return nil, fmt.Errorf("payment %s belongs to another tenant", ev.ExternalID)
		}
		return p, nil
	}
	if !stderrors.Is(err, payment.ErrPaymentNotFound) {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if !id.HasPrefix(ev.ExternalReference, id.PrefixPayment) {
		return nil, nil
	}
	p, err = uc.payments.GetBySID(ctx, ev.ExternalReference)
	if stderrors.Is(err, payment.ErrPaymentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p.TenantID() != cmd.TenantID || p.Gateway() != cmd.Gateway {
		return nil, fmt.Errorf("payment reference %s does not match the routed tenant", ev.ExternalReference)
	}
	if p.ExternalID() != nil && *p.ExternalID() != ev.ExternalID {
		return nil, fmt.Errorf("payment reference %s is bound to another gateway payment", ev.ExternalReference)
	}
	return p, nil
}

func (uc *ProcessWebhookEventUseCase) findPaymentSubscription(ctx context.Context, cmd ProcessWebhookEventCommand, p *payment.Payment, ev *gateway.PaymentEvent) (*subscription.Subscription, error) {
	if p != nil && p.SubscriptionID() != nil {
		sub, err := uc.subscriptions.GetByID(ctx, *p.SubscriptionID())
		if err != nil {
			return nil, fmt.Errorf("failed to get subscription: %w", err)
		}
		return sub, nil
	}
	if ev.SubscriptionRef == "" {
		return nil, nil
	}
	return uc.findTenantSubscription(ctx, cmd, ev.SubscriptionRef)
}

// findTenantSubscription returns nil when the subscription is unknown. A
// subscription registered under another tenant is an error: the route named
// the wrong tenant and nothing is applied.
func (uc *ProcessWebhookEventUseCase) findTenantSubscription(ctx context.Context, cmd ProcessWebhookEventCommand, externalID string) (*subscription.Subscription, error) {
	sub, err := uc.subscriptions.GetByExternalID(ctx, cmd.TenantID, cmd.Gateway, externalID)
	if err == nil {
		return sub, nil
	}
	if !stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	other, err := uc.lookup.FindByExternalIDAnyTenant(ctx, cmd.Gateway, externalID)
	if err == nil {
		uc.logger.Warnw("webhook routed to wrong tenant",
			"gateway", cmd.Gateway,
			"routed_tenant", cmd.TenantID,
			"owner_tenant", other.TenantID(),
			"external_id", externalID,
		)
		return nil, fmt.Errorf("subscription %s belongs to another tenant", externalID)
	}
	if !stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return nil, nil
}

func (uc *ProcessWebhookEventUseCase) newInboundPayment(ctx context.Context, cmd ProcessWebhookEventCommand, ev *gateway.PaymentEvent, sub *subscription.Subscription) (*payment.Payment, error) {
	currency := ev.Currency
	var subID *uint
	if sub != nil {
		v := sub.ID()
		subID = &v
		if currency == "" {
			currency = sub.Currency()
		}
	}
	money, err := paymentvo.NewMoney(ev.Amount, currency)
	if err != nil {
		return nil, fmt.Errorf("invalid payment amount: %w", err)
	}

	key := fmt.Sprintf("evt:%s:%s", cmd.Gateway, ev.ExternalID)
	p, err := payment.NewPendingPayment(cmd.TenantID, subID, cmd.Gateway, money, key)
	if err != nil {
		return nil, err
	}
	p.AttachExternalID(ev.ExternalID)
	p.SetMetadata("source", eventSourceWebhook)
	p.SetMetadata("request_id", cmd.RequestID)
	if ev.RawStatus != "" {
		p.SetMetadata("gateway_status", ev.RawStatus)
	}
	if err := uc.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return p, nil
}

func (uc *ProcessWebhookEventUseCase) applyPayment(ctx context.Context, sub *subscription.Subscription, p *payment.Payment, ev *gateway.PaymentEvent, requestID string) (subscription.Outcome, error) {
	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = biztime.NowUTC()
	}
	event := subscription.Event{
		Source:     eventSourceWebhook,
		OccurredAt: occurredAt,
		Metadata: map[string]interface{}{
			"payment_id":  p.SID(),
			"external_id": ev.ExternalID,
			"request_id":  requestID,
		},
	}

	periodStart := occurredAt
	if next := sub.NextChargeAt(); next != nil {
		periodStart = *next
	}

	switch ev.Outcome {
	case gateway.PaymentApproved:
		event.Kind = subscription.EventChargeSucceeded
		event.Amount = ev.Amount
	default:
		retryAt := biztime.NowUTC().Add(uc.retryAfter)
		event.Kind = subscription.EventChargeFailed
		event.RetryAt = &retryAt
		event.Reason = failureReason(ev.StatusDetail, ev.RawStatus)
	}

	// The payment row and the transition commit together; a payment another
	// notification settled first rolls both back.
	_, outcome, err := uc.applier.ApplyWithin(ctx, sub.ID(), event, func(ctx context.Context, updated *subscription.Subscription, outcome subscription.Outcome) error {
		if outcome.Applied && event.Kind == subscription.EventChargeSucceeded && p.PeriodStart() == nil && updated.NextChargeAt() != nil {
			p.SetPeriod(periodStart, *updated.NextChargeAt())
		}
		return uc.payments.Settle(ctx, p)
	})
	return outcome, err
}

func (uc *ProcessWebhookEventUseCase) handleSubscription(ctx context.Context, cmd ProcessWebhookEventCommand, ev *gateway.SubscriptionEvent) (webhook.Outcome, string, error) {
	var kind subscription.EventKind
	switch ev.Outcome {
	case gateway.SubscriptionAuthorized:
		kind = subscription.EventAuthorizationGranted
	case gateway.SubscriptionCancelled:
		kind = subscription.EventAuthorizationRevoked
	case gateway.SubscriptionPaused:
		kind = subscription.EventPaused
	}

	sub, err := uc.findTenantSubscription(ctx, cmd, ev.ExternalID)
	if err != nil {
		return "", "", err
	}
	if sub == nil {
		if ev.Outcome == gateway.SubscriptionCancelled {
			return webhook.OutcomeSkipped, "unknown subscription", nil
		}
		if sub, err = uc.registerInbound(ctx, cmd, ev); err != nil {
			return "", "", err
		}
	}
	if kind == "" {
		return webhook.OutcomeSkipped, "subscription not actionable: " + strings.ToLower(ev.RawStatus), nil
	}

	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = biztime.NowUTC()
	}
	_, outcome, err := uc.applier.Apply(ctx, sub.ID(), subscription.Event{
		Kind:       kind,
		Reason:     ev.RawStatus,
		Source:     eventSourceWebhook,
		OccurredAt: occurredAt,
		Metadata: map[string]interface{}{
			"external_id": ev.ExternalID,
			"request_id":  cmd.RequestID,
		},
	})
	if err != nil {
		return "", "", err
	}
	if !outcome.Applied {
		return webhook.OutcomeSkipped, outcome.Reason, nil
	}
	return webhook.OutcomeSuccess, "", nil
}

// registerInbound creates the local record of a gateway-managed subscription
// first seen through a webhook. The gateway charges it, so auto charge is off.
func (uc *ProcessWebhookEventUseCase) registerInbound(ctx context.Context, cmd ProcessWebhookEventCommand, ev *gateway.SubscriptionEvent) (*subscription.Subscription, error) {
	sub, err := uc.register.register(ctx, RegisterSubscriptionCommand{
		TenantID:    cmd.TenantID,
		Gateway:     cmd.Gateway.String(),
		ExternalID:  ev.ExternalID,
		CustomerRef: ev.CustomerRef,
		PlanRef:     ev.Reference,
		Price:       ev.Amount,
		Currency:    ev.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register subscription: %w", err)
	}
	return sub, nil
}

func failureReason(detail, raw string) string {
	if detail != "" {
		return detail
	}
	if raw != "" {
		return raw
	}
	return "rejected by gateway"
}
