package handlers

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billing "github.com/orris-inc/paybridge/internal/application/billing/usecases"
	"github.com/orris-inc/paybridge/internal/interfaces/http/handlers/testutil"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type mockIngestWebhookUC struct {
	result *billing.IngestWebhookResult
	err    error
	got    billing.IngestWebhookCommand
}

func (m *mockIngestWebhookUC) Execute(ctx context.Context, cmd billing.IngestWebhookCommand) (*billing.IngestWebhookResult, error) {
	m.got = cmd
	return m.result, m.err
}

func TestWebhookHandler_Receive_PassesRawRequest(t *testing.T) {
	uc := &mockIngestWebhookUC{result: &billing.IngestWebhookResult{}}
	h := NewWebhookHandler(uc, logger.NewNopLogger())

	body := []byte(`{"type":"payment","data":{"id":"123"}}`)
	headers := http.Header{}
	headers.Set("X-Signature", "ts=1,v1=abc")
	headers.Set("X-Request-Id", "req-1")
	c, w := testutil.NewRawTestContext(http.MethodPost, "/webhooks/mercadopago/tenant-a?data.id=123&type=payment", body, headers)
	testutil.SetURLParam(c, "gateway", "mercadopago")
	testutil.SetURLParam(c, "tenantId", "tenant-a")

	h.Receive(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack WebhookAckResponse
	require.NoError(t, testutil.ParseResponse(w, &ack))
	assert.True(t, ack.Received)
	assert.False(t, ack.Deduplicated)

	assert.Equal(t, "mercadopago", uc.got.Gateway)
	assert.Equal(t, "tenant-a", uc.got.TenantID)
	assert.Equal(t, body, uc.got.Body)
	assert.Equal(t, "ts=1,v1=abc", uc.got.Headers.Get("X-Signature"))
	assert.Equal(t, "123", uc.got.Query.Get("data.id"))
	assert.NotEmpty(t, uc.got.SourceIP)
}

func TestWebhookHandler_Receive_Duplicate(t *testing.T) {
	uc := &mockIngestWebhookUC{result: &billing.IngestWebhookResult{Deduplicated: true}}
	h := NewWebhookHandler(uc, logger.NewNopLogger())

	c, w := testutil.NewRawTestContext(http.MethodPost, "/webhooks/stripe/tenant-a", []byte(`{}`), nil)
	h.Receive(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack WebhookAckResponse
	require.NoError(t, testutil.ParseResponse(w, &ack))
	assert.True(t, ack.Deduplicated)
}

func TestWebhookHandler_Receive_MapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"malformed", errors.NewBadRequestError("malformed webhook"), http.StatusBadRequest},
		{"bad signature", errors.NewUnauthorizedError("invalid signature"), http.StatusUnauthorized},
		{"not configured", errors.NewUnavailableError("webhook receiver is not configured"), http.StatusServiceUnavailable},
		{"internal", errors.NewInternalError("failed to process webhook"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler(&mockIngestWebhookUC{err: tt.err}, logger.NewNopLogger())
			c, w := testutil.NewRawTestContext(http.MethodPost, "/webhooks/mercadopago/tenant-a", []byte(`{}`), nil)

			h.Receive(c)

			assert.Equal(t, tt.code, w.Code)
			var resp testutil.APIResponse
			require.NoError(t, testutil.ParseResponse(w, &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
		})
	}
}

func TestWebhookHandler_Receive_BodyTooLarge(t *testing.T) {
	uc := &mockIngestWebhookUC{result: &billing.IngestWebhookResult{}}
	h := NewWebhookHandler(uc, logger.NewNopLogger())

	body := bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)
	c, w := testutil.NewRawTestContext(http.MethodPost, "/webhooks/mercadopago/tenant-a", body, nil)
	h.Receive(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, uc.got.Gateway)
}
