package stripe

import (
	"encoding/json"
	"errors"
	"strings"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
)

const HeaderSignature = "Stripe-Signature"

var ErrMalformedNotification = errors.New("malformed stripe notification")

type eventObject struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	PaymentIntent string `json:"payment_intent"`
}

// WebhookAdapter parses Stripe events. The event id is the dedup key.
type WebhookAdapter struct{}

func NewWebhookAdapter() *WebhookAdapter {
	return &WebhookAdapter{}
}

var _ gateway.WebhookAdapter = (*WebhookAdapter)(nil)

func (a *WebhookAdapter) Parse(in gateway.InboundWebhook) (*gateway.Notification, error) {
	var event stripego.Event
	if err := json.Unmarshal(in.Body, &event); err != nil {
		return nil, ErrMalformedNotification
	}
	if event.ID == "" || event.Data == nil {
		return nil, ErrMalformedNotification
	}

	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return nil, ErrMalformedNotification
	}

	typ := string(event.Type)
	n := &gateway.Notification{
		RequestID: event.ID,
		DataID:    obj.ID,
		Type:      typ,
		Kind:      gateway.NotificationIgnored,
	}

	switch {
	case strings.HasPrefix(typ, "payment_intent."):
		n.Kind = gateway.NotificationPayment
	case strings.HasPrefix(typ, "invoice.payment_"), strings.HasPrefix(typ, "charge."):
		// Authoritative state lives on the PaymentIntent
		if obj.PaymentIntent != "" {
			n.Kind = gateway.NotificationPayment
			n.DataID = obj.PaymentIntent
		}
	case strings.HasPrefix(typ, "customer.subscription."):
		n.Kind = gateway.NotificationSubscription
	}

	if n.DataID == "" {
		return nil, ErrMalformedNotification
	}
	return n, nil
}

// Verify checks the Stripe-Signature header over the raw body, including the
// SDK's timestamp tolerance.
func (a *WebhookAdapter) Verify(in gateway.InboundWebhook, n *gateway.Notification, secret string) bool {
	header := in.Headers.Get(HeaderSignature)
	if secret == "" || header == "" {
		return false
	}
	return webhook.ValidatePayload(in.Body, header, secret) == nil
}
