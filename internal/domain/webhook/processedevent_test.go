package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/domain/shared"
)

func TestProcessedEvent_FinalizeOnce(t *testing.T) {
	ev, err := NewAcceptedEvent(shared.GatewayMercadoPago, "req-1", "payment", "123", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, ev.Outcome())
	assert.True(t, ev.IsAccepted())

	require.NoError(t, ev.Finalize(OutcomeSuccess, "applied", "tenant-a"))
	assert.Equal(t, OutcomeSuccess, ev.Outcome())
	require.NotNil(t, ev.TenantID())
	assert.Equal(t, "tenant-a", *ev.TenantID())

	assert.ErrorIs(t, ev.Finalize(OutcomeError, "again", ""), ErrAlreadyFinalized)
	assert.Equal(t, "applied", ev.Message())
}

func TestProcessedEvent_FinalizeRejectsPending(t *testing.T) {
	ev, err := NewAcceptedEvent(shared.GatewayStripe, "evt_1", "invoice.paid", "pi_1", "")
	require.NoError(t, err)
	assert.Error(t, ev.Finalize(OutcomePending, "", ""))
}

func TestRejectedEvent_CannotBeFinalized(t *testing.T) {
	ev, err := NewRejectedEvent(shared.GatewayMercadoPago, "req-2", "payment", "1", "", "invalid signature")
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, ev.Outcome())
	assert.False(t, ev.IsAccepted())
	assert.ErrorIs(t, ev.Finalize(OutcomeSuccess, "", ""), ErrAlreadyFinalized)
}

func TestNewProcessedEvent_Validation(t *testing.T) {
	_, err := NewAcceptedEvent(shared.GatewayStripe, "", "x", "", "")
	assert.Error(t, err)

	_, err = NewAcceptedEvent(shared.Gateway("x"), "r", "x", "", "")
	assert.Error(t, err)
}
