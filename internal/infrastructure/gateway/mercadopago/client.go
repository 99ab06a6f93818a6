// Package mercadopago implements the gateway client and webhook adapter for
// MercadoPago's REST API.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
)

const (
	DefaultBaseURL = "https://api.mercadopago.com"

	// Maximum response body size read from the API (1MB)
	maxResponseSize = 1 << 20

	HeaderIdempotencyKey = "X-Idempotency-Key"
)

// paymentStatuses maps MercadoPago payment statuses to the internal vocabulary.
var paymentStatuses = map[string]gateway.PaymentOutcome{
	"approved":     gateway.PaymentApproved,
	"authorized":   gateway.PaymentPending,
	"pending":      gateway.PaymentPending,
	"in_process":   gateway.PaymentPending,
	"in_mediation": gateway.PaymentPending,
	"rejected":     gateway.PaymentRejected,
	"cancelled":    gateway.PaymentRejected,
	"refunded":     gateway.PaymentRejected,
	"charged_back": gateway.PaymentRejected,
}

// preapprovalStatuses maps preapproval (subscription) statuses.
var preapprovalStatuses = map[string]gateway.SubscriptionOutcome{
	"authorized": gateway.SubscriptionAuthorized,
	"pending":    gateway.SubscriptionPending,
	"paused":     gateway.SubscriptionPaused,
	"cancelled":  gateway.SubscriptionCancelled,
}

func MapPaymentStatus(status string) gateway.PaymentOutcome {
	if outcome, ok := paymentStatuses[status]; ok {
		return outcome
	}
	return gateway.PaymentPending
}

func MapPreapprovalStatus(status string) gateway.SubscriptionOutcome {
	if outcome, ok := preapprovalStatuses[status]; ok {
		return outcome
	}
	return gateway.SubscriptionPending
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

var _ gateway.Client = (*Client)(nil)

func NewClient(baseURL, accessToken string, httpClient *http.Client) (*Client, error) {
	if accessToken == "" {
		return nil, gateway.ErrMissingCredentials
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}, nil
}

// NewConstructor returns a gateway.Constructor bound to baseURL.
func NewConstructor(baseURL string) gateway.Constructor {
	return func(creds gateway.Credentials, httpClient *http.Client) (gateway.Client, error) {
		return NewClient(baseURL, creds.Values["access_token"], httpClient)
	}
}

func (c *Client) Gateway() shared.Gateway {
	return shared.GatewayMercadoPago
}

type paymentResponse struct {
	ID                json.Number            `json:"id"`
	Status            string                 `json:"status"`
	StatusDetail      string                 `json:"status_detail"`
	TransactionAmount float64                `json:"transaction_amount"`
	CurrencyID        string                 `json:"currency_id"`
	ExternalReference string                 `json:"external_reference"`
	DateCreated       *time.Time             `json:"date_created"`
	DateApproved      *time.Time             `json:"date_approved"`
	Metadata          map[string]interface{} `json:"metadata"`
}

type preapprovalResponse struct {
	ID                string      `json:"id"`
	Status            string      `json:"status"`
	PayerID           json.Number `json:"payer_id"`
	ExternalReference string      `json:"external_reference"`
	LastModified      *time.Time  `json:"last_modified"`
	AutoRecurring     struct {
		TransactionAmount float64 `json:"transaction_amount"`
		CurrencyID        string  `json:"currency_id"`
	} `json:"auto_recurring"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func (c *Client) FetchPaymentEvent(ctx context.Context, id string) (*gateway.PaymentEvent, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return nil, err
	}

	event := &gateway.PaymentEvent{
		ExternalID:        resp.ID.String(),
		Outcome:           MapPaymentStatus(resp.Status),
		RawStatus:         resp.Status,
		StatusDetail:      resp.StatusDetail,
		Amount:            toMinorUnits(resp.TransactionAmount),
		Currency:          resp.CurrencyID,
		ExternalReference: resp.ExternalReference,
		OccurredAt:        firstTime(resp.DateApproved, resp.DateCreated),
	}
	if ref, ok := resp.Metadata["preapproval_id"].(string); ok {
		event.SubscriptionRef = ref
	}
	return event, nil
}

func (c *Client) FetchSubscriptionEvent(ctx context.Context, id string) (*gateway.SubscriptionEvent, error) {
	var resp preapprovalResponse
	if err := c.do(ctx, http.MethodGet, "/preapproval/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return nil, err
	}

	return &gateway.SubscriptionEvent{
		ExternalID:  resp.ID,
		Outcome:     MapPreapprovalStatus(resp.Status),
		RawStatus:   resp.Status,
		CustomerRef: resp.PayerID.String(),
		Reference:   resp.ExternalReference,
		Amount:      toMinorUnits(resp.AutoRecurring.TransactionAmount),
		Currency:    resp.AutoRecurring.CurrencyID,
		OccurredAt:  firstTime(resp.LastModified),
	}, nil
}

type chargeBody struct {
	TransactionAmount float64           `json:"transaction_amount"`
	Description       string            `json:"description,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`
	Payer             map[string]string `json:"payer,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

func (c *Client) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := chargeBody{
		TransactionAmount: float64(req.Amount) / 100,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
	}
	if req.CustomerRef != "" {
		body.Payer = map[string]string{"id": req.CustomerRef}
	}
	if req.SubscriptionRef != "" {
		body.Metadata = map[string]string{"preapproval_id": req.SubscriptionRef}
	}

	var resp paymentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payments", body, req.IdempotencyKey, &resp); err != nil {
		return nil, err
	}

	return &gateway.ChargeResult{
		ExternalID:   resp.ID.String(),
		Outcome:      MapPaymentStatus(resp.Status),
		RawStatus:    resp.Status,
		StatusDetail: resp.StatusDetail,
	}, nil
}

func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	return c.setPreapprovalStatus(ctx, id, "cancelled")
}

func (c *Client) PauseSubscription(ctx context.Context, id string) error {
	return c.setPreapprovalStatus(ctx, id, "paused")
}

func (c *Client) setPreapprovalStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, http.MethodPut, "/preapproval/"+url.PathEscape(id), body, "", nil)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/users/me", nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, idempotencyKey string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &gateway.APIError{Gateway: string(shared.GatewayMercadoPago), StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil {
			apiErr.Code = er.Error
			apiErr.Message = er.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func firstTime(times ...*time.Time) time.Time {
	for _, t := range times {
		if t != nil && !t.IsZero() {
			return t.UTC()
		}
	}
	return biztime.NowUTC()
}
