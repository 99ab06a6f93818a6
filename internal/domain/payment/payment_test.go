package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	amount, err := vo.NewMoney(1500, "usd")
	require.NoError(t, err)
	subID := uint(3)
	p, err := NewPendingPayment("tenant-a", &subID, shared.GatewayStripe, amount, "idem-1")
	require.NoError(t, err)
	return p
}

func TestNewPendingPayment(t *testing.T) {
	p := newTestPayment(t)
	assert.Equal(t, vo.PaymentStatusPending, p.Status())
	assert.Equal(t, "USD", p.Amount().Currency())
	assert.Equal(t, 1, p.Version())
	assert.Nil(t, p.ExternalID())
}

func TestNewPendingPayment_RequiresIdempotencyKey(t *testing.T) {
	amount, _ := vo.NewMoney(100, "USD")
	_, err := NewPendingPayment("tenant-a", nil, shared.GatewayStripe, amount, "")
	assert.Error(t, err)
}

func TestPayment_MarkCompleted(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkCompleted())
	assert.Equal(t, vo.PaymentStatusCompleted, p.Status())
	assert.Equal(t, 2, p.Version())

	// repeated completion is a no-op
	require.NoError(t, p.MarkCompleted())
	assert.Equal(t, 2, p.Version())

	err := p.MarkFailed("late rejection")
	assert.ErrorIs(t, err, ErrPaymentFinal)
}

func TestPayment_MarkFailed(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkFailed("card_declined"))
	require.NotNil(t, p.FailureReason())
	assert.Equal(t, "card_declined", *p.FailureReason())
	assert.ErrorIs(t, p.MarkCompleted(), ErrPaymentFinal)
}

func TestMoney(t *testing.T) {
	m, err := vo.NewMoney(12345, "ars")
	require.NoError(t, err)
	assert.Equal(t, "123.45 ARS", m.String())

	_, err = vo.NewMoney(-1, "USD")
	assert.Error(t, err)
	_, err = vo.NewMoney(1, "US")
	assert.Error(t, err)
}
