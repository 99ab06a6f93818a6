package gateway

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/orris-inc/paybridge/internal/domain/shared"
)

// Credentials is what a client constructor needs from a resolved connector.
type Credentials struct {
	Gateway     shared.Gateway
	Environment shared.Environment
	Values      map[string]string
}

// Constructor builds a client for one tenant's credentials.
type Constructor func(creds Credentials, httpClient *http.Client) (Client, error)

// Factory builds gateway clients and webhook adapters by gateway name.
type Factory struct {
	mu           sync.RWMutex
	httpClient   *http.Client
	constructors map[shared.Gateway]Constructor
	adapters     map[shared.Gateway]WebhookAdapter
}

func NewFactory(httpClient *http.Client) *Factory {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Factory{
		httpClient:   httpClient,
		constructors: make(map[shared.Gateway]Constructor),
		adapters:     make(map[shared.Gateway]WebhookAdapter),
	}
}

func (f *Factory) Register(g shared.Gateway, ctor Constructor, adapter WebhookAdapter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[g] = ctor
	f.adapters[g] = adapter
}

// Client builds the variant for creds.Gateway.
func (f *Factory) Client(creds Credentials) (Client, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[creds.Gateway]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, creds.Gateway)
	}
	return ctor(creds, f.httpClient)
}

func (f *Factory) WebhookAdapter(g shared.Gateway) (WebhookAdapter, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	adapter, ok := f.adapters[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, g)
	}
	return adapter, nil
}
