package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/domain/shared"
)

func sealed(b byte) EncryptedBlob {
	return EncryptedBlob{Ciphertext: []byte{b, b}, IV: make([]byte, 12), Tag: make([]byte, 16)}
}

func newTestConnector(t *testing.T) *Connector {
	t.Helper()
	secret := sealed(9)
	c, err := NewConnector("tenant-a", shared.GatewayMercadoPago, shared.EnvironmentSandbox, sealed(1), &secret, "…abcd")
	require.NoError(t, err)
	return c
}

func TestNewConnector(t *testing.T) {
	c := newTestConnector(t)
	assert.True(t, c.IsActive())
	assert.False(t, c.IsPrincipal())
	assert.False(t, c.IsVerified())
	assert.Equal(t, "…abcd", c.CredentialHint())
}

func TestNewConnector_Validation(t *testing.T) {
	_, err := NewConnector("", shared.GatewayStripe, shared.EnvironmentSandbox, sealed(1), nil, "")
	assert.Error(t, err)

	_, err = NewConnector("t", shared.Gateway("x"), shared.EnvironmentSandbox, sealed(1), nil, "")
	assert.Error(t, err)

	_, err = NewConnector("t", shared.GatewayStripe, shared.EnvironmentSandbox, EncryptedBlob{}, nil, "")
	assert.Error(t, err)
}

func TestConnector_RotateResetsVerification(t *testing.T) {
	c := newTestConnector(t)
	c.MarkVerified(time.Now())
	require.True(t, c.IsVerified())

	require.NoError(t, c.RotateCredentials(sealed(2), nil, "…wxyz"))
	assert.False(t, c.IsVerified())
	assert.Equal(t, "…wxyz", c.CredentialHint())
	assert.Equal(t, byte(9), c.WebhookSecret().Ciphertext[0])
}

func TestConnector_Deactivate(t *testing.T) {
	c := newTestConnector(t)
	require.NoError(t, c.MarkPrincipal())

	c.Deactivate()
	assert.False(t, c.IsActive())
	assert.False(t, c.IsPrincipal())
	assert.ErrorIs(t, c.MarkPrincipal(), ErrConnectorInactive)
	assert.ErrorIs(t, c.RotateCredentials(sealed(3), nil, ""), ErrConnectorInactive)
}

func TestConnector_VerificationFailure(t *testing.T) {
	c := newTestConnector(t)
	c.RecordVerificationFailure("unauthorized", time.Now())
	c.RecordVerificationFailure("unauthorized", time.Now())
	assert.Equal(t, 2, c.ErrorCount())
	require.NotNil(t, c.LastError())

	c.MarkVerified(time.Now())
	assert.Equal(t, 0, c.ErrorCount())
	assert.Nil(t, c.LastError())
}
