package mercadopago

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
)

const (
	HeaderSignature = "X-Signature"
	HeaderRequestID = "X-Request-Id"
)

var ErrMalformedNotification = errors.New("malformed mercadopago notification")

type notificationBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// WebhookAdapter parses MercadoPago notifications.
type WebhookAdapter struct{}

func NewWebhookAdapter() *WebhookAdapter {
	return &WebhookAdapter{}
}

var _ gateway.WebhookAdapter = (*WebhookAdapter)(nil)

func (a *WebhookAdapter) Parse(in gateway.InboundWebhook) (*gateway.Notification, error) {
	var body notificationBody
	if len(in.Body) > 0 {
		if err := json.Unmarshal(in.Body, &body); err != nil {
			return nil, ErrMalformedNotification
		}
	}

	dataID := in.Query.Get("data.id")
	if dataID == "" {
		dataID = rawID(body.Data.ID)
	}
	if dataID == "" {
		dataID = in.Query.Get("id")
	}

	typ := in.Query.Get("type")
	if typ == "" {
		typ = firstNonEmpty(body.Type, in.Query.Get("topic"), body.Topic)
	}

	n := &gateway.Notification{
		RequestID: strings.TrimSpace(in.Headers.Get(HeaderRequestID)),
		DataID:    dataID,
		Type:      typ,
		Kind:      kindOf(typ),
	}
	if n.RequestID == "" || n.DataID == "" {
		return nil, ErrMalformedNotification
	}
	return n, nil
}

func (a *WebhookAdapter) Verify(in gateway.InboundWebhook, n *gateway.Notification, secret string) bool {
	return VerifySignature(in.Headers.Get(HeaderSignature), n.RequestID, n.DataID, secret)
}

func kindOf(typ string) gateway.NotificationKind {
	switch typ {
	case "payment":
		return gateway.NotificationPayment
	case "subscription_preapproval", "preapproval":
		return gateway.NotificationSubscription
	default:
		return gateway.NotificationIgnored
	}
}

// rawID accepts both numeric and string ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
