// Package connector resolves and administers tenants' gateway connectors.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 1024
)

var (
	// ErrNotConfigured means the tenant has no active connector for the gateway.
	ErrNotConfigured = errors.New("no active connector configured")
	// ErrCredentialsUnreadable means a connector exists but cannot be decrypted.
	ErrCredentialsUnreadable = errors.New("connector credentials are unreadable")
)

// CredentialOpener decrypts sealed connector material.
type CredentialOpener interface {
	Decrypt(ciphertext, iv, tag []byte) (map[string]string, error)
	DecryptString(ciphertext, iv, tag []byte) (string, error)
}

// ResolvedCredentials is the decrypted principal connector of a tenant.
type ResolvedCredentials struct {
	ConnectorID   string
	TenantID      string
	Gateway       shared.Gateway
	Environment   shared.Environment
	Credentials   map[string]string
	WebhookSecret string
}

// GatewayCredentials converts to what gateway client constructors take.
func (r *ResolvedCredentials) GatewayCredentials() gateway.Credentials {
	return gateway.Credentials{
		Gateway:     r.Gateway,
		Environment: r.Environment,
		Values:      r.Credentials,
	}
}

// Resolver is the read side of the directory used by billing.
type Resolver interface {
	ResolvePrincipal(ctx context.Context, tenantID string, gw shared.Gateway, env shared.Environment) (*ResolvedCredentials, error)
}

type cacheKey struct {
	tenantID string
	gateway  shared.Gateway
	env      shared.Environment
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.tenantID, k.gateway, k.env)
}

// Directory picks the principal connector per (tenant, gateway, environment)
// and caches the decrypted result for a fixed TTL.
type Directory struct {
	repo   connector.Repository
	opener CredentialOpener
	cache  *expirable.LRU[cacheKey, *ResolvedCredentials]
	group  singleflight.Group
	logger logger.Interface

	// generations advance on Invalidate so loads started earlier are not cached.
	genMu       sync.Mutex
	generations map[string]uint64
}

func NewDirectory(
	repo connector.Repository,
	opener CredentialOpener,
	ttl time.Duration,
	size int,
	logger logger.Interface,
) *Directory {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Directory{
		repo:        repo,
		opener:      opener,
		cache:       expirable.NewLRU[cacheKey, *ResolvedCredentials](size, nil, ttl),
		logger:      logger,
		generations: make(map[string]uint64),
	}
}

// ResolvePrincipal returns the decrypted principal connector. Concurrent
// misses for the same key share one repository load.
func (d *Directory) ResolvePrincipal(ctx context.Context, tenantID string, gw shared.Gateway, env shared.Environment) (*ResolvedCredentials, error) {
	key := cacheKey{tenantID: tenantID, gateway: gw, env: env}
	if resolved, ok := d.cache.Get(key); ok {
		return resolved, nil
	}

	gen := d.generation(tenantID)
	v, err, _ := d.group.Do(fmt.Sprintf("%s|%d", key, gen), func() (interface{}, error) {
		resolved, err := d.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if d.generation(tenantID) == gen {
			d.cache.Add(key, resolved)
		}
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ResolvedCredentials), nil
}

func (d *Directory) load(ctx context.Context, key cacheKey) (*ResolvedCredentials, error) {
	candidates, err := d.repo.ListActive(ctx, key.tenantID, key.gateway, key.env)
	if err != nil {
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNotConfigured
	}

	chosen := candidates[0]
	if !chosen.IsPrincipal() {
		d.logger.Warnw("no principal connector, falling back to ordering",
			"tenant_id", key.tenantID,
			"gateway", key.gateway,
			"connector_sid", chosen.SID(),
			"verified", chosen.IsVerified(),
		)
	}

	creds := chosen.Credentials()
	values, err := d.opener.Decrypt(creds.Ciphertext, creds.IV, creds.Tag)
	if err != nil {
		d.logger.Errorw("connector credentials unreadable",
			"tenant_id", key.tenantID,
			"gateway", key.gateway,
			"connector_sid", chosen.SID(),
		)
		return nil, ErrCredentialsUnreadable
	}

	resolved := &ResolvedCredentials{
		ConnectorID: chosen.SID(),
		TenantID:    key.tenantID,
		Gateway:     key.gateway,
		Environment: key.env,
		Credentials: values,
	}
	if secret := chosen.WebhookSecret(); secret != nil {
		plain, err := d.opener.DecryptString(secret.Ciphertext, secret.IV, secret.Tag)
		if err != nil {
			d.logger.Errorw("connector webhook secret unreadable",
				"tenant_id", key.tenantID,
				"gateway", key.gateway,
				"connector_sid", chosen.SID(),
			)
			return nil, ErrCredentialsUnreadable
		}
		resolved.WebhookSecret = plain
	}
	return resolved, nil
}

// Invalidate drops every cached entry of the tenant.
func (d *Directory) Invalidate(tenantID string) {
	d.genMu.Lock()
	d.generations[tenantID]++
	d.genMu.Unlock()

	for _, key := range d.cache.Keys() {
		if key.tenantID == tenantID {
			d.cache.Remove(key)
		}
	}
}

func (d *Directory) generation(tenantID string) uint64 {
	d.genMu.Lock()
	defer d.genMu.Unlock()
	return d.generations[tenantID]
}
