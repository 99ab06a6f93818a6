// Package stripe implements the gateway client and webhook adapter on top of
// stripe-go, one API client per tenant secret key.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
)

const (
	metadataExternalReference = "external_reference"
	metadataSubscriptionRef   = "subscription_ref"
)

// paymentIntentStatuses maps PaymentIntent statuses to the internal vocabulary.
var paymentIntentStatuses = map[stripego.PaymentIntentStatus]gateway.PaymentOutcome{
	stripego.PaymentIntentStatusSucceeded:             gateway.PaymentApproved,
	stripego.PaymentIntentStatusCanceled:              gateway.PaymentRejected,
	stripego.PaymentIntentStatusRequiresPaymentMethod: gateway.PaymentRejected,
	stripego.PaymentIntentStatusProcessing:            gateway.PaymentPending,
	stripego.PaymentIntentStatusRequiresAction:        gateway.PaymentPending,
	stripego.PaymentIntentStatusRequiresCapture:       gateway.PaymentPending,
	stripego.PaymentIntentStatusRequiresConfirmation:  gateway.PaymentPending,
}

// subscriptionStatuses maps Subscription statuses to the internal vocabulary.
var subscriptionStatuses = map[stripego.SubscriptionStatus]gateway.SubscriptionOutcome{
	stripego.SubscriptionStatusActive:            gateway.SubscriptionAuthorized,
	stripego.SubscriptionStatusTrialing:          gateway.SubscriptionAuthorized,
	stripego.SubscriptionStatusPaused:            gateway.SubscriptionPaused,
	stripego.SubscriptionStatusCanceled:          gateway.SubscriptionCancelled,
	stripego.SubscriptionStatusIncompleteExpired: gateway.SubscriptionCancelled,
	stripego.SubscriptionStatusIncomplete:        gateway.SubscriptionPending,
	stripego.SubscriptionStatusPastDue:           gateway.SubscriptionPending,
	stripego.SubscriptionStatusUnpaid:            gateway.SubscriptionPending,
}

func MapPaymentIntentStatus(status stripego.PaymentIntentStatus) gateway.PaymentOutcome {
	if outcome, ok := paymentIntentStatuses[status]; ok {
		return outcome
	}
	return gateway.PaymentPending
}

func MapSubscription(sub *stripego.Subscription) gateway.SubscriptionOutcome {
	// Collection paused on an otherwise active subscription
	if sub.PauseCollection != nil && sub.Status == stripego.SubscriptionStatusActive {
		return gateway.SubscriptionPaused
	}
	if outcome, ok := subscriptionStatuses[sub.Status]; ok {
		return outcome
	}
	return gateway.SubscriptionPending
}

type Client struct {
	api *client.API
}

var _ gateway.Client = (*Client)(nil)

// NewClient builds a client for one secret key. SDK-level network retries are
// disabled so retry policy stays in one place.
func NewClient(baseURL, secretKey string, httpClient *http.Client) (*Client, error) {
	if secretKey == "" {
		return nil, gateway.ErrMissingCredentials
	}

	cfg := &stripego.BackendConfig{
		MaxNetworkRetries: stripego.Int64(0),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelNull},
		EnableTelemetry:   stripego.Bool(false),
	}
	if baseURL != "" {
		cfg.URL = stripego.String(strings.TrimRight(baseURL, "/"))
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	backend := stripego.GetBackendWithConfig(stripego.APIBackend, cfg)
	api := client.New(secretKey, &stripego.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return &Client{api: api}, nil
}

// NewConstructor returns a gateway.Constructor bound to baseURL.
func NewConstructor(baseURL string) gateway.Constructor {
	return func(creds gateway.Credentials, httpClient *http.Client) (gateway.Client, error) {
		return NewClient(baseURL, creds.Values["secret_key"], httpClient)
	}
}

func (c *Client) Gateway() shared.Gateway {
	return shared.GatewayStripe
}

func (c *Client) FetchPaymentEvent(ctx context.Context, id string) (*gateway.PaymentEvent, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("invoice")

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, wrapError(err)
	}

	event := &gateway.PaymentEvent{
		ExternalID:        pi.ID,
		Outcome:           MapPaymentIntentStatus(pi.Status),
		RawStatus:         string(pi.Status),
		Amount:            pi.Amount,
		Currency:          strings.ToUpper(string(pi.Currency)),
		ExternalReference: pi.Metadata[metadataExternalReference],
		SubscriptionRef:   pi.Metadata[metadataSubscriptionRef],
		OccurredAt:        unixOrNow(pi.Created),
	}
	if pi.Invoice != nil && pi.Invoice.Subscription != nil && event.SubscriptionRef == "" {
		event.SubscriptionRef = pi.Invoice.Subscription.ID
	}
	if pi.LastPaymentError != nil {
		event.StatusDetail = string(pi.LastPaymentError.Code)
	}
	return event, nil
}

func (c *Client) FetchSubscriptionEvent(ctx context.Context, id string) (*gateway.SubscriptionEvent, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, wrapError(err)
	}

	event := &gateway.SubscriptionEvent{
		ExternalID: sub.ID,
		Outcome:    MapSubscription(sub),
		RawStatus:  string(sub.Status),
		Reference:  sub.Metadata[metadataExternalReference],
		Currency:   strings.ToUpper(string(sub.Currency)),
		OccurredAt: unixOrNow(sub.Created),
	}
	if sub.Customer != nil {
		event.CustomerRef = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		event.Amount = sub.Items.Data[0].Price.UnitAmount
	}
	return event, nil
}

// Charge creates and confirms an off-session PaymentIntent. A card decline is
// a rejected outcome, not an error.
func (c *Client) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := &stripego.PaymentIntentParams{
		Amount:      stripego.Int64(req.Amount),
		Currency:    stripego.String(strings.ToLower(req.Currency)),
		Confirm:     stripego.Bool(true),
		OffSession:  stripego.Bool(true),
		Description: stripego.String(req.Description),
	}
	if req.CustomerRef != "" {
		params.Customer = stripego.String(req.CustomerRef)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	if req.ExternalReference != "" {
		params.AddMetadata(metadataExternalReference, req.ExternalReference)
	}
	if req.SubscriptionRef != "" {
		params.AddMetadata(metadataSubscriptionRef, req.SubscriptionRef)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripego.ErrorTypeCard {
			result := &gateway.ChargeResult{
				Outcome:      gateway.PaymentRejected,
				RawStatus:    string(stripego.PaymentIntentStatusRequiresPaymentMethod),
				StatusDetail: string(stripeErr.Code),
			}
			if stripeErr.PaymentIntent != nil {
				result.ExternalID = stripeErr.PaymentIntent.ID
			}
			return result, nil
		}
		return nil, wrapError(err)
	}

	result := &gateway.ChargeResult{
		ExternalID: pi.ID,
		Outcome:    MapPaymentIntentStatus(pi.Status),
		RawStatus:  string(pi.Status),
	}
	if pi.LastPaymentError != nil {
		result.StatusDetail = string(pi.LastPaymentError.Code)
	}
	return result, nil
}

func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	params := &stripego.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := c.api.Subscriptions.Cancel(id, params); err != nil {
		return wrapError(err)
	}
	return nil
}

func (c *Client) PauseSubscription(ctx context.Context, id string) error {
	params := &stripego.SubscriptionParams{
		PauseCollection: &stripego.SubscriptionPauseCollectionParams{
			Behavior: stripego.String("void"),
		},
	}
	params.Context = ctx
	if _, err := c.api.Subscriptions.Update(id, params); err != nil {
		return wrapError(err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	params := &stripego.BalanceParams{}
	params.Context = ctx
	if _, err := c.api.Balance.Get(params); err != nil {
		return wrapError(err)
	}
	return nil
}

// wrapError converts SDK errors into gateway.APIError so retry
// classification and callers see one error shape.
func wrapError(err error) error {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		return &gateway.APIError{
			Gateway:    string(shared.GatewayStripe),
			StatusCode: stripeErr.HTTPStatusCode,
			Code:       string(stripeErr.Code),
			Message:    stripeErr.Msg,
		}
	}
	return fmt.Errorf("stripe request failed: %w", err)
}

func unixOrNow(ts int64) time.Time {
	if ts == 0 {
		return biztime.NowUTC()
	}
	return time.Unix(ts, 0).UTC()
}
