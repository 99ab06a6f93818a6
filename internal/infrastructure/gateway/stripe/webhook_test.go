package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
)

const testWebhookSecret = "whsec_test"

func signPayload(body []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), body)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func signedInbound(body string, header string) gateway.InboundWebhook {
	h := http.Header{}
	if header != "" {
		h.Set(HeaderSignature, header)
	}
	return gateway.InboundWebhook{Headers: h, Body: []byte(body)}
}

func TestWebhookAdapter_ParseKinds(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		kind     gateway.NotificationKind
		dataID   string
		typeName string
	}{
		{
			"payment intent",
			`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`,
			gateway.NotificationPayment, "pi_1", "payment_intent.succeeded",
		},
		{
			"invoice uses payment intent",
			`{"id":"evt_2","type":"invoice.payment_failed","data":{"object":{"id":"in_1","object":"invoice","payment_intent":"pi_2"}}}`,
			gateway.NotificationPayment, "pi_2", "invoice.payment_failed",
		},
		{
			"subscription",
			`{"id":"evt_3","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","object":"subscription"}}}`,
			gateway.NotificationSubscription, "sub_1", "customer.subscription.deleted",
		},
		{
			"other",
			`{"id":"evt_4","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			gateway.NotificationIgnored, "cus_1", "customer.created",
		},
	}

	a := NewWebhookAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := a.Parse(signedInbound(tt.body, ""))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.dataID, n.DataID)
			assert.Equal(t, tt.typeName, n.Type)
			assert.NotEmpty(t, n.RequestID)
		})
	}
}

func TestWebhookAdapter_ParseMalformed(t *testing.T) {
	a := NewWebhookAdapter()
	_, err := a.Parse(signedInbound(`not json`, ""))
	assert.ErrorIs(t, err, ErrMalformedNotification)

	_, err = a.Parse(signedInbound(`{"type":"payment_intent.succeeded"}`, ""))
	assert.ErrorIs(t, err, ErrMalformedNotification)
}

func TestWebhookAdapter_Verify(t *testing.T) {
	a := NewWebhookAdapter()
	body := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`
	header := signPayload([]byte(body), testWebhookSecret, time.Now())

	in := signedInbound(body, header)
	n, err := a.Parse(in)
	require.NoError(t, err)

	assert.True(t, a.Verify(in, n, testWebhookSecret))
	assert.False(t, a.Verify(in, n, "whsec_other"))
	assert.False(t, a.Verify(in, n, ""))

	tampered := signedInbound(body[:len(body)-1]+" }", header)
	assert.False(t, a.Verify(tampered, n, testWebhookSecret))

	stale := signedInbound(body, signPayload([]byte(body), testWebhookSecret, time.Now().Add(-time.Hour)))
	assert.False(t, a.Verify(stale, n, testWebhookSecret))

	assert.False(t, a.Verify(signedInbound(body, ""), n, testWebhookSecret))
}
