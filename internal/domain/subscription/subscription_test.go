package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
)

func TestNewSubscription(t *testing.T) {
	sub, err := NewSubscription(NewSubscriptionParams{
		TenantID:   "tenant-a",
		Gateway:    shared.GatewayStripe,
		ExternalID: "sub_ext",
		Price:      2500,
		Currency:   "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPending, sub.Status())
	assert.Equal(t, vo.BillingPeriodMonthly, sub.BillingPeriod())
	assert.Equal(t, vo.DiscountNone, sub.Discount().Kind())
	assert.Equal(t, 1, sub.Version())
	assert.True(t, len(sub.SID()) > len("sub_"))
}

func TestNewSubscription_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params NewSubscriptionParams
	}{
		{"missing tenant", NewSubscriptionParams{Gateway: shared.GatewayStripe, Currency: "USD"}},
		{"bad gateway", NewSubscriptionParams{TenantID: "t", Gateway: "paypal", Currency: "USD"}},
		{"negative price", NewSubscriptionParams{TenantID: "t", Gateway: shared.GatewayStripe, Currency: "USD", Price: -1}},
		{"missing currency", NewSubscriptionParams{TenantID: "t", Gateway: shared.GatewayStripe}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSubscription(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestSubscription_AmountDue(t *testing.T) {
	discount, err := vo.NewDiscount(20, vo.DiscountNMonths, 3)
	require.NoError(t, err)

	sub := reconstructWithStatus(t, vo.StatusActive)
	sub.price = 100
	sub.discount = discount

	sub.monthsElapsed = 2
	assert.Equal(t, int64(80), sub.AmountDue(false))

	sub.monthsElapsed = 3
	assert.Equal(t, int64(100), sub.AmountDue(false))
}

func TestSubscription_IsDue(t *testing.T) {
	sub := reconstructWithStatus(t, vo.StatusActive)
	due := *sub.NextChargeAt()

	assert.True(t, sub.IsDue(due))
	assert.False(t, sub.IsDue(due.Add(-time.Second)))

	sub.autoCharge = false
	assert.False(t, sub.IsDue(due))

	paused := reconstructWithStatus(t, vo.StatusPaused)
	assert.False(t, paused.IsDue(due))
}

func TestSubscription_SetID(t *testing.T) {
	sub, err := NewSubscription(NewSubscriptionParams{TenantID: "t", Gateway: shared.GatewayStripe, Currency: "USD"})
	require.NoError(t, err)

	require.NoError(t, sub.SetID(7))
	assert.Equal(t, uint(7), sub.ID())
	assert.Error(t, sub.SetID(8))
}
