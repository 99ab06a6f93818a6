package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/query"
)

func createSubscription(t *testing.T, repo *SubscriptionRepositoryImpl, tenantID, externalID string, autoCharge bool) *subscription.Subscription {
	t.Helper()
	discount, err := vo.NewDiscount(500, vo.DiscountNMonths, 3)
	require.NoError(t, err)
	sub, err := subscription.NewSubscription(subscription.NewSubscriptionParams{
		TenantID:      tenantID,
		PlanRef:       "plan-basic",
		Gateway:       shared.GatewayMercadoPago,
		ExternalID:    externalID,
		CustomerRef:   "cus-1",
		Price:         2500,
		Currency:      "BRL",
		Discount:      discount,
		BillingPeriod: vo.BillingPeriodMonthly,
		AutoCharge:    autoCharge,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), sub))
	return sub
}

func activate(t *testing.T, sub *subscription.Subscription, at time.Time) {
	t.Helper()
	out := subscription.NewStateMachine(subscription.DefaultFailureThreshold).Apply(sub, subscription.Event{
		Kind:       subscription.EventAuthorizationGranted,
		OccurredAt: at,
	})
	require.True(t, out.Applied, out.Reason)
}

func TestSubscriptionRepository_RoundTrip(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	sub := createSubscription(t, repo, "tenant-a", "pre-1", true)

	found, err := repo.GetBySID(ctx, "tenant-a", sub.SID())
	require.NoError(t, err)
	assert.Equal(t, sub.ID(), found.ID())
	assert.Equal(t, int64(500), found.Discount().Amount())
	assert.Equal(t, vo.DiscountNMonths, found.Discount().Kind())
	assert.Equal(t, 3, found.Discount().Months())
	assert.Equal(t, vo.StatusPending, found.Status())

	byExt, err := repo.GetByExternalID(ctx, "tenant-a", shared.GatewayMercadoPago, "pre-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID(), byExt.ID())

	_, err = repo.GetByExternalID(ctx, "tenant-b", shared.GatewayMercadoPago, "pre-1")
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)

	anyTenant, err := repo.FindByExternalIDAnyTenant(ctx, shared.GatewayMercadoPago, "pre-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", anyTenant.TenantID())
}

func TestSubscriptionRepository_DuplicateExternalID(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	createSubscription(t, repo, "tenant-a", "pre-1", false)

	dup, err := subscription.NewSubscription(subscription.NewSubscriptionParams{
		TenantID:   "tenant-a",
		Gateway:    shared.GatewayMercadoPago,
		ExternalID: "pre-1",
		Price:      100,
		Currency:   "BRL",
	})
	require.NoError(t, err)
	err = repo.Create(context.Background(), dup)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestSubscriptionRepository_OptimisticUpdate(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	sub := createSubscription(t, repo, "tenant-a", "pre-1", true)
	stale, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	activate(t, sub, now)
	require.NoError(t, repo.Update(ctx, sub))

	reloaded, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, reloaded.Status())
	assert.Equal(t, 2, reloaded.Version())
	require.NotNil(t, reloaded.NextChargeAt())
	assert.True(t, now.Equal(*reloaded.NextChargeAt()))

	activate(t, stale, now)
	err = repo.Update(ctx, stale)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestSubscriptionRepository_FindDue(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	due := createSubscription(t, repo, "tenant-a", "due", true)
	activate(t, due, now.Add(-time.Hour))
	require.NoError(t, repo.Update(ctx, due))

	future := createSubscription(t, repo, "tenant-a", "future", true)
	activate(t, future, now.Add(time.Hour))
	require.NoError(t, repo.Update(ctx, future))

	manual := createSubscription(t, repo, "tenant-a", "manual", false)
	activate(t, manual, now.Add(-time.Hour))
	require.NoError(t, repo.Update(ctx, manual))

	createSubscription(t, repo, "tenant-a", "pending", true)

	list, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID(), list[0].ID())
}

func TestSubscriptionRepository_ListAndCount(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	for _, ext := range []string{"a", "b", "c"} {
		createSubscription(t, repo, "tenant-a", ext, false)
	}
	createSubscription(t, repo, "tenant-b", "x", false)

	list, total, err := repo.List(ctx, subscription.SubscriptionFilter{
		BaseFilter: query.NewBaseFilter(query.WithPage(1, 2)),
		TenantID:   "tenant-a",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 2)

	active := vo.StatusActive
	list, total, err = repo.List(ctx, subscription.SubscriptionFilter{TenantID: "tenant-a", Status: &active})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	// Unknown sort columns fall back to creation order
	list, _, err = repo.List(ctx, subscription.SubscriptionFilter{
		BaseFilter: query.NewBaseFilter(query.WithSort("price; --", "asc")),
		TenantID:   "tenant-a",
	})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	count, err := repo.CountActiveByGateway(ctx, "tenant-a", shared.GatewayMercadoPago)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSubscriptionHistoryRepository(t *testing.T) {
	gdb := setupTestDB(t)
	subs := NewSubscriptionRepository(gdb, logger.NewNopLogger())
	repo := NewSubscriptionHistoryRepository(gdb)
	ctx := context.Background()

	sub := createSubscription(t, subs, "tenant-a", "pre-1", true)
	out := subscription.NewStateMachine(2).Apply(sub, subscription.Event{
		Kind:       subscription.EventAuthorizationGranted,
		Source:     "webhook",
		Reason:     "authorized",
		OccurredAt: time.Now().UTC(),
	})
	require.True(t, out.Applied)
	require.NotNil(t, out.History)

	require.NoError(t, repo.Create(ctx, out.History))
	assert.NotZero(t, out.History.ID())

	list, err := repo.ListBySubscription(ctx, sub.ID(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, subscription.EventAuthorizationGranted, list[0].EventType())
	assert.Equal(t, vo.StatusPending, list[0].FromStatus())
	assert.Equal(t, vo.StatusActive, list[0].ToStatus())
	assert.Equal(t, "authorized", list[0].Reason())
	assert.Equal(t, "webhook", list[0].Metadata()["source"])
}
