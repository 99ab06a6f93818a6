// Package testutil provides in-memory implementations for testing the connector application layer.
package testutil

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
)

// MockConnectorRepository is an in-memory connector.Repository.
type MockConnectorRepository struct {
	mu         sync.RWMutex
	connectors map[uint]*connector.Connector
	nextID     uint

	// ListActiveCalls counts ListActive invocations.
	ListActiveCalls atomic.Int32

	// Error injection for testing
	CreateError error
	UpdateError error
	ListError   error
}

func NewMockConnectorRepository() *MockConnectorRepository {
	return &MockConnectorRepository{
		connectors: make(map[uint]*connector.Connector),
	}
}

func (m *MockConnectorRepository) Create(ctx context.Context, c *connector.Connector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	m.nextID++
	if err := c.SetID(m.nextID); err != nil {
		return err
	}
	m.connectors[c.ID()] = c
	return nil
}

func (m *MockConnectorRepository) Update(ctx context.Context, c *connector.Connector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.connectors[c.ID()]; !ok {
		return connector.ErrConnectorNotFound
	}
	m.connectors[c.ID()] = c
	return nil
}

func (m *MockConnectorRepository) GetBySID(ctx context.Context, tenantID, sid string) (*connector.Connector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.connectors {
		if c.TenantID() == tenantID && c.SID() == sid {
			return c, nil
		}
	}
	return nil, connector.ErrConnectorNotFound
}

func (m *MockConnectorRepository) ListByTenant(ctx context.Context, tenantID string) ([]*connector.Connector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*connector.Connector
	for _, c := range m.connectors {
		if c.TenantID() == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (m *MockConnectorRepository) ListActive(ctx context.Context, tenantID string, gw shared.Gateway, env shared.Environment) ([]*connector.Connector, error) {
	m.ListActiveCalls.Add(1)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*connector.Connector
	for _, c := range m.connectors {
		if c.TenantID() == tenantID && c.Gateway() == gw && c.Environment() == env && c.IsActive() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsPrincipal() != b.IsPrincipal() {
			return a.IsPrincipal()
		}
		if a.IsVerified() != b.IsVerified() {
			return a.IsVerified()
		}
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().After(b.CreatedAt())
		}
		return a.ID() > b.ID()
	})
	return out, nil
}

func (m *MockConnectorRepository) CountActive(ctx context.Context, tenantID string, gw shared.Gateway) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, c := range m.connectors {
		if c.TenantID() == tenantID && c.Gateway() == gw && c.IsActive() {
			n++
		}
	}
	return n, nil
}

func (m *MockConnectorRepository) ClearPrincipal(ctx context.Context, tenantID string, gw shared.Gateway, keepID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.connectors {
		if id == keepID || c.TenantID() != tenantID || c.Gateway() != gw || !c.IsPrincipal() {
			continue
		}
		cleared, err := connector.ReconstructConnector(connector.ReconstructConnectorParams{
			ID:             c.ID(),
			SID:            c.SID(),
			TenantID:       c.TenantID(),
			Gateway:        c.Gateway(),
			Environment:    c.Environment(),
			Credentials:    c.Credentials(),
			WebhookSecret:  c.WebhookSecret(),
			CredentialHint: c.CredentialHint(),
			IsPrincipal:    false,
			Verified:       c.IsVerified(),
			Active:         c.IsActive(),
			ErrorCount:     c.ErrorCount(),
			LastError:      c.LastError(),
			LastVerifiedAt: c.LastVerifiedAt(),
			Version:        c.Version() + 1,
			CreatedAt:      c.CreatedAt(),
			UpdatedAt:      c.UpdatedAt(),
		})
		if err != nil {
			return err
		}
		m.connectors[id] = cleared
	}
	return nil
}

// Get returns the stored connector by ID.
func (m *MockConnectorRepository) Get(id uint) *connector.Connector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectors[id]
}

// Put stores c as is, assigning an ID when it has none.
func (m *MockConnectorRepository) Put(c *connector.Connector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID() == 0 {
		m.nextID++
		_ = c.SetID(m.nextID)
	} else if c.ID() > m.nextID {
		m.nextID = c.ID()
	}
	m.connectors[c.ID()] = c
}

// InlineTransactionRunner runs fn directly with the given context.
type InlineTransactionRunner struct{}

func (InlineTransactionRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// RecordingInvalidator records invalidated tenants.
type RecordingInvalidator struct {
	mu      sync.Mutex
	Tenants []string
}

func (r *RecordingInvalidator) Invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tenants = append(r.Tenants, tenantID)
}

// StaticSubscriptionCounter returns Count for every gateway.
type StaticSubscriptionCounter struct {
	Count int64
}

func (s StaticSubscriptionCounter) CountActiveByGateway(ctx context.Context, tenantID string, gw shared.Gateway) (int64, error) {
	return s.Count, nil
}

// MockNotifier is a testify mock of email.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRetryCyclesExhausted(ctx context.Context, tenantID, subscriptionSID, externalID string, cycles int) error {
	return m.Called(ctx, tenantID, subscriptionSID, externalID, cycles).Error(0)
}

func (m *MockNotifier) NotifyConnectorVerificationFailed(ctx context.Context, tenantID, connectorSID, gateway, reason string) error {
	return m.Called(ctx, tenantID, connectorSID, gateway, reason).Error(0)
}
