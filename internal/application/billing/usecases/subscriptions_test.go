package usecases

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/constants"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

func TestRegisterSubscription(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	out, err := f.register.Execute(ctx, RegisterSubscriptionCommand{
		TenantID:       testTenant,
		Gateway:        "mercadopago",
		ExternalID:     "pre-42",
		PlanRef:        "plan-pro",
		Price:          2990,
		Currency:       "BRL",
		DiscountAmount: 990,
		DiscountKind:   string(vo.DiscountNMonths),
		DiscountMonths: 3,
		BillingPeriod:  string(vo.BillingPeriodMonthly),
		AutoCharge:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(vo.StatusPending), out.Status)
	assert.Equal(t, int64(2000), out.AmountDue)
	assert.True(t, out.AutoCharge)

	_, err = f.register.Execute(ctx, RegisterSubscriptionCommand{
		TenantID:   testTenant,
		Gateway:    "mercadopago",
		ExternalID: "pre-42",
		Price:      2990,
		Currency:   "BRL",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestRegisterSubscription_Validation(t *testing.T) {
	f := newFixture(t, 2)

	tests := []struct {
		name string
		cmd  RegisterSubscriptionCommand
	}{
		{"unknown gateway", RegisterSubscriptionCommand{TenantID: testTenant, Gateway: "paypal", ExternalID: "x", Currency: "BRL"}},
		{"missing external id", RegisterSubscriptionCommand{TenantID: testTenant, Gateway: "stripe", Currency: "USD"}},
		{"negative price", RegisterSubscriptionCommand{TenantID: testTenant, Gateway: "stripe", ExternalID: "sub_1", Price: -1, Currency: "USD"}},
		{"bad discount", RegisterSubscriptionCommand{TenantID: testTenant, Gateway: "stripe", ExternalID: "sub_1", Currency: "USD", DiscountKind: "n_months"}},
		{"bad period", RegisterSubscriptionCommand{TenantID: testTenant, Gateway: "stripe", ExternalID: "sub_1", Currency: "USD", BillingPeriod: "weekly"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.register.Execute(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidationError(err), err)
		})
	}
}

func TestGetSubscription_IncludesHistoryAndPayments(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	sub := f.activeSubscription(t, subOpts{price: 1000, autoCharge: true})
	f.pendingPayment(t, sub, 1000)

	uc := NewGetSubscriptionUseCase(f.subs, f.history, f.payments, logger.NewNopLogger())
	out, err := uc.Execute(ctx, GetSubscriptionQuery{TenantID: testTenant, SubscriptionSID: sub.SID()})
	require.NoError(t, err)
	assert.Equal(t, sub.SID(), out.ID)
	assert.Equal(t, string(vo.StatusActive), out.Status)
	require.Len(t, out.History, 1)
	assert.Equal(t, string(vo.StatusActive), out.History[0].ToStatus)
	assert.Len(t, out.Payments, 1)

	// Another tenant cannot read it
	_, err = uc.Execute(ctx, GetSubscriptionQuery{TenantID: "tenant-b", SubscriptionSID: sub.SID()})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestListSubscriptions_Filters(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.activeSubscription(t, subOpts{externalID: "pre-1", price: 1000})
	f.activeSubscription(t, subOpts{externalID: "pre-2", price: 1000})
	_, err := f.register.Execute(ctx, RegisterSubscriptionCommand{
		TenantID:   testTenant,
		Gateway:    string(shared.GatewayStripe),
		ExternalID: "sub_123",
		Price:      500,
		Currency:   "USD",
	})
	require.NoError(t, err)

	uc := NewListSubscriptionsUseCase(f.subs, logger.NewNopLogger())

	all, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, 1, all.TotalPages)

	paged, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Subscriptions, 1)
	assert.Equal(t, 2, paged.TotalPages)

	active, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.Total)

	stripe, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, Gateway: "stripe"})
	require.NoError(t, err)
	require.Len(t, stripe.Subscriptions, 1)
	assert.Equal(t, "sub_123", stripe.Subscriptions[0].ExternalID)

	_, err = uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, Status: "frozen"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, SortBy: "price"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, SortBy: "next_charge_at", SortOrder: "sideways"})
	assert.True(t, apperrors.IsValidationError(err))

	sorted, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, SortBy: "next_charge_at", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sorted.Total)
}

func TestListSubscriptions_PagingDefaults(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	for i := 0; i < constants.DefaultPageSize+1; i++ {
		_, err := f.register.Execute(ctx, RegisterSubscriptionCommand{
			TenantID:   testTenant,
			Gateway:    string(shared.GatewayMercadoPago),
			ExternalID: fmt.Sprintf("pre-%d", i),
			Price:      1000,
			Currency:   "BRL",
		})
		require.NoError(t, err)
	}
	uc := NewListSubscriptionsUseCase(f.subs, logger.NewNopLogger())

	first, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant})
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultPage, first.Page)
	assert.Equal(t, constants.DefaultPageSize, first.PageSize)
	assert.Len(t, first.Subscriptions, constants.DefaultPageSize)
	assert.Equal(t, 2, first.TotalPages)

	last, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, Page: 2, SortBy: "created_at", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Len(t, last.Subscriptions, 1)

	wide, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, Page: -1, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, wide.Page)
	assert.Equal(t, constants.MaxPageSize, wide.PageSize)
	assert.Equal(t, 1, wide.TotalPages)
	assert.Len(t, wide.Subscriptions, constants.DefaultPageSize+1)

	for _, field := range []string{"created_at", "updated_at", "next_charge_at"} {
		_, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, SortBy: field})
		assert.NoError(t, err, field)
	}
	for _, field := range []string{"price", "id; drop table subscriptions", "tenant_id"} {
		_, err := uc.Execute(ctx, ListSubscriptionsQuery{TenantID: testTenant, SortBy: field})
		assert.True(t, apperrors.IsValidationError(err), field)
	}
}
