package usecases

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/application/billing/services"
	"github.com/orris-inc/paybridge/internal/application/billing/testutil"
	connectortestutil "github.com/orris-inc/paybridge/internal/application/connector/testutil"
	"github.com/orris-inc/paybridge/internal/domain/payment"
	paymentvo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	"github.com/orris-inc/paybridge/internal/infrastructure/cache"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway/gatewaytest"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway/mercadopago"
	"github.com/orris-inc/paybridge/internal/infrastructure/retry"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const (
	testTenant = "tenant-a"
	testSecret = "whsec_test"
)

type fixture struct {
	subs     *testutil.MockSubscriptionRepository
	history  *testutil.MockHistoryRepository
	payments *testutil.MockPaymentRepository
	events   *testutil.MockProcessedEventRepository
	resolver *testutil.StaticResolver
	client   *gatewaytest.MockClient
	notifier *connectortestutil.MockNotifier
	lock     *cache.ChargeLock

	guard     *services.IdempotencyGuard
	applier   *services.EventApplier
	register  *RegisterSubscriptionUseCase
	process   *ProcessWebhookEventUseCase
	ingest    *IngestWebhookUseCase
	attempt   *AttemptChargeUseCase
	reattempt *ReattemptChargeUseCase
	due       *RunDueChargesUseCase
	sweep     *SweepAbandonedEventsUseCase
}

func newFixture(t *testing.T, failureThreshold int) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	log := logger.NewNopLogger()
	f := &fixture{
		subs:     testutil.NewMockSubscriptionRepository(),
		history:  &testutil.MockHistoryRepository{},
		payments: testutil.NewMockPaymentRepository(),
		events:   testutil.NewMockProcessedEventRepository(),
		resolver: testutil.NewStaticResolver(testTenant, shared.GatewayMercadoPago, testSecret),
		client:   gatewaytest.NewMockClient(shared.GatewayMercadoPago),
		notifier: &connectortestutil.MockNotifier{},
		lock:     cache.NewChargeLock(rdb, time.Minute),
	}

	factory := gateway.NewFactory(nil)
	factory.Register(shared.GatewayMercadoPago, gatewaytest.Constructor(f.client, nil), mercadopago.NewWebhookAdapter())

	policy := retry.Policy{
		MaxRetries:  2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Factor:      2,
		IsRetriable: retry.DefaultIsRetriable,
	}
	settings := ChargeSettings{
		MaxRetryCycles:    2,
		ReattemptInterval: 24 * time.Hour,
		Environment:       shared.EnvironmentProduction,
	}

	f.guard = services.NewIdempotencyGuard(f.events, log)
	f.applier = services.NewEventApplier(f.subs, f.history, subscription.NewStateMachine(failureThreshold),
		connectortestutil.InlineTransactionRunner{}, log)
	f.register = NewRegisterSubscriptionUseCase(f.subs, log)
	f.process = NewProcessWebhookEventUseCase(factory, f.resolver, f.guard, f.applier, f.subs, f.subs, f.payments,
		f.register, policy, shared.EnvironmentProduction, settings.ReattemptInterval, log)
	f.ingest = NewIngestWebhookUseCase(factory, f.resolver, f.guard, f.process, shared.EnvironmentProduction, 5*time.Second, log)
	f.attempt = NewAttemptChargeUseCase(f.subs, f.payments, f.applier, f.resolver, factory, f.lock, policy, settings, log)
	f.reattempt = NewReattemptChargeUseCase(f.attempt, f.applier, f.resolver, factory, f.notifier, log)
	f.due = NewRunDueChargesUseCase(f.subs, f.attempt, f.reattempt, 2, 50, log)
	f.sweep = NewSweepAbandonedEventsUseCase(f.events, f.guard, time.Minute, log)
	return f
}

type subOpts struct {
	externalID     string
	price          int64
	discountAmount int64
	discountKind   string
	autoCharge     bool
	nextChargeAt   *time.Time
}

// activeSubscription registers a subscription and authorizes it.
func (f *fixture) activeSubscription(t *testing.T, o subOpts) *subscription.Subscription {
	t.Helper()
	ctx := context.Background()

	if o.externalID == "" {
		o.externalID = "preapproval-1"
	}
	sub, err := f.register.register(ctx, RegisterSubscriptionCommand{
		TenantID:       testTenant,
		Gateway:        string(shared.GatewayMercadoPago),
		ExternalID:     o.externalID,
		CustomerRef:    "cus-1",
		PlanRef:        "plan-basic",
		Price:          o.price,
		Currency:       "BRL",
		DiscountAmount: o.discountAmount,
		DiscountKind:   o.discountKind,
		NextChargeAt:   o.nextChargeAt,
		AutoCharge:     o.autoCharge,
	})
	require.NoError(t, err)

	sub, outcome, err := f.applier.Apply(ctx, sub.ID(), subscription.Event{Kind: subscription.EventAuthorizationGranted})
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	return sub
}

func (f *fixture) failCharge(t *testing.T, sub *subscription.Subscription, retryAt time.Time) *subscription.Subscription {
	t.Helper()
	updated, outcome, err := f.applier.Apply(context.Background(), sub.ID(), subscription.Event{
		Kind:    subscription.EventChargeFailed,
		Reason:  "cc_rejected_insufficient_amount",
		RetryAt: &retryAt,
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	return updated
}

func (f *fixture) pendingPayment(t *testing.T, sub *subscription.Subscription, amount int64) *payment.Payment {
	t.Helper()
	money, err := paymentvo.NewMoney(amount, sub.Currency())
	require.NoError(t, err)
	subID := sub.ID()
	p, err := payment.NewPendingPayment(sub.TenantID(), &subID, sub.Gateway(), money, fmt.Sprintf("key-%d", subID))
	require.NoError(t, err)
	require.NoError(t, f.payments.Create(context.Background(), p))
	return p
}

func signedHeaders(requestID, dataID, secret string) http.Header {
	ts := "1704908010"
	h := http.Header{}
	h.Set(mercadopago.HeaderRequestID, requestID)
	h.Set(mercadopago.HeaderSignature, "ts="+ts+",v1="+mercadopago.Sign(mercadopago.Manifest(dataID, requestID, ts), secret))
	return h
}

func webhookCommand(tenantID, requestID, typ, dataID, secret string) IngestWebhookCommand {
	return IngestWebhookCommand{
		Gateway:  string(shared.GatewayMercadoPago),
		TenantID: tenantID,
		Headers:  signedHeaders(requestID, dataID, secret),
		Query:    url.Values{},
		Body:     []byte(fmt.Sprintf(`{"type":%q,"action":"payment.updated","data":{"id":%q}}`, typ, dataID)),
		SourceIP: "203.0.113.7",
	}
}

func (f *fixture) deliver(t *testing.T, requestID, typ, dataID string) (*IngestWebhookResult, error) {
	t.Helper()
	res, err := f.ingest.Execute(context.Background(), webhookCommand(testTenant, requestID, typ, dataID, testSecret))
	f.ingest.Wait()
	return res, err
}
