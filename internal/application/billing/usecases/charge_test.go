package usecases

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	paymentvo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/id"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

func chargeFor(externalID string) interface{} {
	return mock.MatchedBy(func(req gateway.ChargeRequest) bool {
		return req.SubscriptionRef == externalID
	})
}

func TestAttemptCharge_Approved(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	due := time.Now().UTC().Add(-time.Hour)
	sub := f.activeSubscription(t, subOpts{price: 4990, autoCharge: true, nextChargeAt: &due})

	var sent gateway.ChargeRequest
	f.client.On("Charge", mock.Anything, chargeFor("preapproval-1")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(gateway.ChargeRequest) }).
		Return(&gateway.ChargeResult{ExternalID: "mp-100", Outcome: gateway.PaymentApproved, RawStatus: "approved"}, nil).
		Once()

	res, err := f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.True(t, id.HasPrefix(res.PaymentID, id.PrefixPayment))

	assert.Equal(t, int64(4990), sent.Amount)
	assert.Equal(t, "BRL", sent.Currency)
	assert.Equal(t, "cus-1", sent.CustomerRef)
	assert.Equal(t, res.PaymentID, sent.ExternalReference)

	p, err := f.payments.GetBySID(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, paymentvo.PaymentStatusCompleted, p.Status())
	assert.Equal(t, sent.IdempotencyKey, p.IdempotencyKey())
	require.NotNil(t, p.ExternalID())
	assert.Equal(t, "mp-100", *p.ExternalID())
	require.NotNil(t, p.PeriodStart())
	assert.True(t, p.PeriodStart().Equal(due))

	stored := f.subs.Snapshot(sub.ID())
	assert.Equal(t, vo.StatusActive, stored.Status())
	assert.Equal(t, 1, stored.MonthsElapsed())
	assert.Equal(t, int64(4990), stored.TotalPaid())
	assert.WithinDuration(t, biztime.AddMonthsClamped(time.Now().UTC(), 1), *stored.NextChargeAt(), time.Minute)
}

func TestAttemptCharge_RejectedTwiceSuspends(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})

	f.client.On("Charge", mock.Anything, chargeFor("preapproval-1")).Return(&gateway.ChargeResult{
		ExternalID:   "mp-rej",
		Outcome:      gateway.PaymentRejected,
		RawStatus:    "rejected",
		StatusDetail: "cc_rejected_call_for_authorize",
	}, nil)

	res, err := f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "cc_rejected_call_for_authorize", res.Error)

	stored := f.subs.Snapshot(sub.ID())
	assert.Equal(t, vo.StatusActive, stored.Status())
	assert.Equal(t, 1, stored.FailedAttempts())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *stored.NextChargeAt(), time.Minute)

	_, err = f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)

	stored = f.subs.Snapshot(sub.ID())
	assert.Equal(t, vo.StatusSuspended, stored.Status())
	assert.Equal(t, 2, stored.FailedAttempts())

	for _, p := range f.payments.All() {
		assert.Equal(t, paymentvo.PaymentStatusFailed, p.Status())
	}
	f.client.AssertNumberOfCalls(t, "Charge", 2)
}

func TestAttemptCharge_TransientErrorRetriedWithSameKey(t *testing.T) {
	f := newFixture(t, 2)
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})

	var (
		mu   sync.Mutex
		keys []string
	)
	record := func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, args.Get(1).(gateway.ChargeRequest).IdempotencyKey)
	}
	badGateway := &gateway.APIError{Gateway: "mercadopago", StatusCode: http.StatusBadGateway, Message: "upstream"}
	f.client.On("Charge", mock.Anything, mock.Anything).Run(record).Return(nil, badGateway).Once()
	f.client.On("Charge", mock.Anything, mock.Anything).Run(record).
		Return(&gateway.ChargeResult{ExternalID: "mp-1", Outcome: gateway.PaymentApproved}, nil).Once()

	res, err := f.attempt.Execute(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
	assert.Len(t, f.payments.All(), 1)
}

func TestAttemptCharge_ExhaustedTransportErrorCountsAsFailure(t *testing.T) {
	f := newFixture(t, 2)
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})

	unavailable := &gateway.APIError{Gateway: "mercadopago", StatusCode: http.StatusServiceUnavailable, Message: "down"}
	f.client.On("Charge", mock.Anything, mock.Anything).Return(nil, unavailable)

	res, err := f.attempt.Execute(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "503")

	f.client.AssertNumberOfCalls(t, "Charge", 3)
	assert.Equal(t, 1, f.subs.Snapshot(sub.ID()).FailedAttempts())
	payments := f.payments.All()
	require.Len(t, payments, 1)
	assert.Equal(t, paymentvo.PaymentStatusFailed, payments[0].Status())
}

func TestAttemptCharge_PendingBlocksNextAttempt(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})

	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(&gateway.ChargeResult{ExternalID: "mp-pend", Outcome: gateway.PaymentPending, RawStatus: "in_process"}, nil).
		Once()

	res, err := f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "charge pending", res.Error)

	p, err := f.payments.GetByExternalID(ctx, shared.GatewayMercadoPago, "mp-pend")
	require.NoError(t, err)
	assert.Equal(t, paymentvo.PaymentStatusPending, p.Status())
	assert.Equal(t, sub.Version(), f.subs.Snapshot(sub.ID()).Version())

	res, err = f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, "previous charge pending", res.Error)
	assert.Equal(t, p.SID(), res.PaymentID)
	f.client.AssertNumberOfCalls(t, "Charge", 1)
}

func TestAttemptCharge_ZeroAmountSkipsGateway(t *testing.T) {
	f := newFixture(t, 2)
	sub := f.activeSubscription(t, subOpts{
		price:          1000,
		discountAmount: 1000,
		discountKind:   string(vo.DiscountOnce),
		autoCharge:     true,
	})

	res, err := f.attempt.Execute(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.True(t, res.Success)
	f.client.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)

	stored := f.subs.Snapshot(sub.ID())
	assert.Equal(t, 1, stored.MonthsElapsed())
	assert.Zero(t, stored.TotalPaid())
	assert.Equal(t, int64(1000), stored.AmountDue(stored.IsFirstCharge()))

	payments := f.payments.All()
	require.Len(t, payments, 1)
	assert.Equal(t, paymentvo.PaymentStatusCompleted, payments[0].Status())
	assert.Zero(t, payments[0].Amount().Amount())
}

func TestAttemptCharge_NotEligible(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	manual := f.activeSubscription(t, subOpts{externalID: "pre-manual", price: 1000})
	res, err := f.attempt.Execute(ctx, manual.ID())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "auto charge disabled")

	sub, err := f.register.register(ctx, RegisterSubscriptionCommand{
		TenantID:   testTenant,
		Gateway:    string(shared.GatewayMercadoPago),
		ExternalID: "pre-pending",
		Price:      1000,
		Currency:   "BRL",
		AutoCharge: true,
	})
	require.NoError(t, err)
	res, err = f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.Contains(t, res.Error, "status pending")

	f.client.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	assert.Empty(t, f.payments.All())
}

func TestAttemptCharge_LockHeld(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})

	key := strconv.FormatUint(uint64(sub.ID()), 10)
	token, ok, err := f.lock.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.attempt.Execute(ctx, sub.ID())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	f.client.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)

	require.NoError(t, f.lock.Release(ctx, key, token))
	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(&gateway.ChargeResult{ExternalID: "mp-2", Outcome: gateway.PaymentApproved}, nil).Once()
	res, err := f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestAttemptCharge_GatewayNotConfigured(t *testing.T) {
	f := newFixture(t, 2)
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})
	delete(f.resolver.Creds, testTenant)

	res, err := f.attempt.Execute(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.Equal(t, "gateway not configured", res.Error)
	assert.Empty(t, f.payments.All())
}

func TestAttemptCharge_UnknownSubscription(t *testing.T) {
	f := newFixture(t, 2)

	_, err := f.attempt.Execute(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestReattemptCharge_RecoversSuspended(t *testing.T) {
	f := newFixture(t, 1)
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})
	sub = f.failCharge(t, sub, time.Now().UTC().Add(-time.Minute))
	require.Equal(t, vo.StatusSuspended, sub.Status())

	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(&gateway.ChargeResult{ExternalID: "mp-r", Outcome: gateway.PaymentApproved}, nil).Once()

	res, err := f.reattempt.Execute(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.True(t, res.Success)

	stored := f.subs.Snapshot(sub.ID())
	assert.Equal(t, vo.StatusActive, stored.Status())
	assert.Zero(t, stored.FailedAttempts())
	assert.Zero(t, stored.RetryCycles())
}

func TestReattemptCharge_ExhaustionCancelsAndNotifies(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})
	sub = f.failCharge(t, sub, time.Now().UTC().Add(-time.Minute))

	f.client.On("Charge", mock.Anything, mock.Anything).Return(&gateway.ChargeResult{
		ExternalID: "mp-x",
		Outcome:    gateway.PaymentRejected,
		RawStatus:  "rejected",
	}, nil)
	// Already gone at the gateway; cancellation still counts as done.
	f.client.On("CancelSubscription", mock.Anything, "preapproval-1").
		Return(&gateway.APIError{Gateway: "mercadopago", StatusCode: http.StatusNotFound}).Once()
	f.notifier.On("NotifyRetryCyclesExhausted", mock.Anything, testTenant, sub.SID(), "preapproval-1", 3).
		Return(nil).Once()

	// max_retry_cycles is 2: two charging cycles, then cancellation
	for cycle := 1; cycle <= 2; cycle++ {
		res, err := f.reattempt.Execute(ctx, sub.ID())
		require.NoError(t, err)
		assert.False(t, res.Success)
		stored := f.subs.Snapshot(sub.ID())
		assert.Equal(t, vo.StatusSuspended, stored.Status())
		assert.Equal(t, cycle, stored.RetryCycles())
	}

	res, err := f.reattempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, msgRetryCyclesExhausted, res.Error)

	stored := f.subs.Snapshot(sub.ID())
	assert.Equal(t, vo.StatusCancelled, stored.Status())
	f.client.AssertNumberOfCalls(t, "Charge", 2)
	f.client.AssertExpectations(t)
	f.notifier.AssertExpectations(t)

	// A cancelled subscription is never charged again
	res, err = f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.Contains(t, res.Error, "status cancelled")
}

func TestReattemptCharge_RequiresSuspended(t *testing.T) {
	f := newFixture(t, 2)
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})

	res, err := f.reattempt.Execute(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.Contains(t, res.Error, "status active")
	assert.Zero(t, f.subs.Snapshot(sub.ID()).RetryCycles())
}

func TestRunDueCharges(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(72 * time.Hour)

	active := f.activeSubscription(t, subOpts{externalID: "pre-active", price: 1000, autoCharge: true, nextChargeAt: &past})
	suspended := f.activeSubscription(t, subOpts{externalID: "pre-suspended", price: 2000, autoCharge: true})
	suspended = f.failCharge(t, suspended, past)
	notDue := f.activeSubscription(t, subOpts{externalID: "pre-later", price: 1000, autoCharge: true, nextChargeAt: &future})
	manual := f.activeSubscription(t, subOpts{externalID: "pre-manual", price: 1000, nextChargeAt: &past})

	f.client.On("Charge", mock.Anything, chargeFor("pre-active")).
		Return(&gateway.ChargeResult{ExternalID: "mp-a", Outcome: gateway.PaymentApproved}, nil).Once()
	f.client.On("Charge", mock.Anything, chargeFor("pre-suspended")).
		Return(&gateway.ChargeResult{ExternalID: "mp-s", Outcome: gateway.PaymentApproved}, nil).Once()

	processed, err := f.due.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	assert.Equal(t, vo.StatusActive, f.subs.Snapshot(active.ID()).Status())
	assert.Equal(t, 1, f.subs.Snapshot(active.ID()).MonthsElapsed())
	assert.Equal(t, vo.StatusActive, f.subs.Snapshot(suspended.ID()).Status())
	assert.Equal(t, int64(2000), f.subs.Snapshot(suspended.ID()).TotalPaid())
	assert.Zero(t, f.subs.Snapshot(notDue.ID()).MonthsElapsed())
	assert.Zero(t, f.subs.Snapshot(manual.ID()).MonthsElapsed())
	f.client.AssertExpectations(t)

	// Nothing is due any more
	processed, err = f.due.Execute(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestSweepAbandonedEvents(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	f.events.Backdate(shared.GatewayMercadoPago, "req-stale", time.Now().UTC().Add(-time.Hour))
	f.events.Backdate(shared.GatewayMercadoPago, "req-fresh", time.Now().UTC())

	swept, err := f.sweep.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	stale := f.events.Lookup(shared.GatewayMercadoPago, "req-stale")
	assert.Equal(t, webhook.OutcomeError, stale.Outcome())
	assert.Equal(t, webhook.MessageAbandoned, stale.Message())
	assert.Equal(t, webhook.OutcomePending, f.events.Lookup(shared.GatewayMercadoPago, "req-fresh").Outcome())

	swept, err = f.sweep.Execute(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestChargeNow_RoutesByStatus(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	uc := NewChargeNowUseCase(f.subs, f.attempt, f.reattempt, logger.NewNopLogger())

	active := f.activeSubscription(t, subOpts{externalID: "pre-a", price: 1000, autoCharge: true})
	suspended := f.activeSubscription(t, subOpts{externalID: "pre-s", price: 1000, autoCharge: true})
	suspended = f.failCharge(t, suspended, time.Now().UTC().Add(-time.Minute))
	require.Equal(t, vo.StatusSuspended, suspended.Status())

	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(&gateway.ChargeResult{ExternalID: "mp-now", Outcome: gateway.PaymentApproved}, nil).Twice()

	res, err := uc.Execute(ctx, ChargeNowCommand{TenantID: testTenant, SubscriptionSID: active.SID()})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = uc.Execute(ctx, ChargeNowCommand{TenantID: testTenant, SubscriptionSID: suspended.SID()})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, vo.StatusActive, f.subs.Snapshot(suspended.ID()).Status())

	_, err = uc.Execute(ctx, ChargeNowCommand{TenantID: "tenant-b", SubscriptionSID: active.SID()})
	assert.True(t, apperrors.IsNotFoundError(err))

	_, err = uc.Execute(ctx, ChargeNowCommand{TenantID: testTenant})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestAttemptCharge_WebhookSettlesDuringCharge(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})
	historyBefore := f.history.Count()

	f.client.On("Charge", mock.Anything, chargeFor("preapproval-1")).
		Run(func(args mock.Arguments) {
			req := args.Get(1).(gateway.ChargeRequest)
			f.client.On("FetchPaymentEvent", mock.Anything, "mp-200").Return(&gateway.PaymentEvent{
				ExternalID:        "mp-200",
				Outcome:           gateway.PaymentApproved,
				RawStatus:         "approved",
				Amount:            req.Amount,
				Currency:          req.Currency,
				ExternalReference: req.ExternalReference,
			}, nil).Once()
			_, err := f.deliver(t, "req-during", "payment", "mp-200")
			require.NoError(t, err)
		}).
		Return(&gateway.ChargeResult{ExternalID: "mp-200", Outcome: gateway.PaymentApproved, RawStatus: "approved"}, nil).
		Once()

	res, err := f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)

	stored := f.subs.Snapshot(sub.ID())
	assert.Equal(t, int64(1000), stored.TotalPaid())
	assert.Equal(t, 1, stored.MonthsElapsed())
	assert.Equal(t, historyBefore+1, f.history.Count())

	p, err := f.payments.GetBySID(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, paymentvo.PaymentStatusCompleted, p.Status())

	record := f.events.Lookup(shared.GatewayMercadoPago, "req-during")
	require.NotNil(t, record)
	assert.Equal(t, webhook.OutcomeSuccess, record.Outcome())
}

func TestAttemptCharge_ReportsWebhookRejection(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})

	unavailable := &gateway.APIError{Gateway: "mercadopago", StatusCode: http.StatusServiceUnavailable, Message: "down"}
	var once sync.Once
	f.client.On("Charge", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			once.Do(func() {
				req := args.Get(1).(gateway.ChargeRequest)
				f.client.On("FetchPaymentEvent", mock.Anything, "mp-201").Return(&gateway.PaymentEvent{
					ExternalID:        "mp-201",
					Outcome:           gateway.PaymentRejected,
					RawStatus:         "rejected",
					StatusDetail:      "cc_rejected_insufficient_amount",
					Amount:            req.Amount,
					Currency:          req.Currency,
					ExternalReference: req.ExternalReference,
				}, nil).Once()
				_, err := f.deliver(t, "req-rejected", "payment", "mp-201")
				require.NoError(t, err)
			})
		}).
		Return(nil, unavailable)

	res, err := f.attempt.Execute(ctx, sub.ID())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "cc_rejected_insufficient_amount", res.Error)

	stored := f.subs.Snapshot(sub.ID())
	assert.Equal(t, 1, stored.FailedAttempts())
	assert.Equal(t, int64(0), stored.TotalPaid())
}
