package gateway

import (
	"net/http"
	"net/url"
)

// NotificationKind classifies what an inbound notification refers to.
type NotificationKind string

const (
	NotificationPayment      NotificationKind = "payment"
	NotificationSubscription NotificationKind = "subscription"
	NotificationIgnored      NotificationKind = "ignored"
)

// InboundWebhook is the raw request as received on the webhook route.
type InboundWebhook struct {
	Headers http.Header
	Query   url.Values
	Body    []byte
}

// Notification is the unauthenticated routing information of a webhook.
// Nothing in it is trusted until the adapter's Verify returns true.
type Notification struct {
	RequestID string
	DataID    string
	Type      string
	Kind      NotificationKind
}

// WebhookAdapter parses and authenticates a gateway's notifications.
type WebhookAdapter interface {
	Parse(in InboundWebhook) (*Notification, error)
	Verify(in InboundWebhook, n *Notification, secret string) bool
}
