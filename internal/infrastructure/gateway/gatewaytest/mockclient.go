// Package gatewaytest provides a testify mock of gateway.Client.
package gatewaytest

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
)

type MockClient struct {
	mock.Mock
	GatewayName shared.Gateway
}

func NewMockClient(gw shared.Gateway) *MockClient {
	return &MockClient{GatewayName: gw}
}

func (m *MockClient) Gateway() shared.Gateway {
	return m.GatewayName
}

func (m *MockClient) FetchPaymentEvent(ctx context.Context, id string) (*gateway.PaymentEvent, error) {
	args := m.Called(ctx, id)
	if ev := args.Get(0); ev != nil {
		return ev.(*gateway.PaymentEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) FetchSubscriptionEvent(ctx context.Context, id string) (*gateway.SubscriptionEvent, error) {
	args := m.Called(ctx, id)
	if ev := args.Get(0); ev != nil {
		return ev.(*gateway.SubscriptionEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*gateway.ChargeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) CancelSubscription(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClient) PauseSubscription(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Constructor returns a gateway.Constructor that always yields client and
// records the credentials it was given.
func Constructor(client gateway.Client, seen *[]gateway.Credentials) gateway.Constructor {
	return func(creds gateway.Credentials, _ *http.Client) (gateway.Client, error) {
		if seen != nil {
			*seen = append(*seen, creds)
		}
		return client, nil
	}
}
