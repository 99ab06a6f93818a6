package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

func sealedBlob(seed byte) connector.EncryptedBlob {
	return connector.EncryptedBlob{
		Ciphertext: []byte{seed, seed + 1, seed + 2},
		IV:         make([]byte, 12),
		Tag:        make([]byte, 16),
	}
}

func createConnector(t *testing.T, repo *ConnectorRepositoryImpl, tenantID string, gateway shared.Gateway) *connector.Connector {
	t.Helper()
	secret := sealedBlob(9)
	c, err := connector.NewConnector(tenantID, gateway, shared.EnvironmentProduction, sealedBlob(1), &secret, "…1234")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestConnectorRepository_CreateAndGet(t *testing.T) {
	repo := NewConnectorRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	c := createConnector(t, repo, "tenant-a", shared.GatewayMercadoPago)
	assert.NotZero(t, c.ID())

	found, err := repo.GetBySID(ctx, "tenant-a", c.SID())
	require.NoError(t, err)
	assert.Equal(t, c.Credentials(), found.Credentials())
	require.NotNil(t, found.WebhookSecret())
	assert.Equal(t, sealedBlob(9), *found.WebhookSecret())
	assert.True(t, found.IsActive())

	_, err = repo.GetBySID(ctx, "tenant-b", c.SID())
	assert.ErrorIs(t, err, connector.ErrConnectorNotFound)
}

func TestConnectorRepository_ListActiveOrdering(t *testing.T) {
	repo := NewConnectorRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	older := createConnector(t, repo, "tenant-a", shared.GatewayStripe)
	time.Sleep(5 * time.Millisecond)
	verified := createConnector(t, repo, "tenant-a", shared.GatewayStripe)
	time.Sleep(5 * time.Millisecond)
	newest := createConnector(t, repo, "tenant-a", shared.GatewayStripe)
	inactive := createConnector(t, repo, "tenant-a", shared.GatewayStripe)
	createConnector(t, repo, "tenant-b", shared.GatewayStripe)

	verified.MarkVerified(time.Now().UTC())
	require.NoError(t, repo.Update(ctx, verified))
	require.NoError(t, older.MarkPrincipal())
	require.NoError(t, repo.Update(ctx, older))
	inactive.Deactivate()
	require.NoError(t, repo.Update(ctx, inactive))

	list, err := repo.ListActive(ctx, "tenant-a", shared.GatewayStripe, shared.EnvironmentProduction)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, older.SID(), list[0].SID())
	assert.Equal(t, verified.SID(), list[1].SID())
	assert.Equal(t, newest.SID(), list[2].SID())

	sandbox, err := repo.ListActive(ctx, "tenant-a", shared.GatewayStripe, shared.EnvironmentSandbox)
	require.NoError(t, err)
	assert.Empty(t, sandbox)

	count, err := repo.CountActive(ctx, "tenant-a", shared.GatewayStripe)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestConnectorRepository_ClearPrincipal(t *testing.T) {
	repo := NewConnectorRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	first := createConnector(t, repo, "tenant-a", shared.GatewayMercadoPago)
	second := createConnector(t, repo, "tenant-a", shared.GatewayMercadoPago)
	require.NoError(t, first.MarkPrincipal())
	require.NoError(t, repo.Update(ctx, first))
	require.NoError(t, second.MarkPrincipal())
	require.NoError(t, repo.Update(ctx, second))

	require.NoError(t, repo.ClearPrincipal(ctx, "tenant-a", shared.GatewayMercadoPago, second.ID()))

	reloadedFirst, err := repo.GetBySID(ctx, "tenant-a", first.SID())
	require.NoError(t, err)
	reloadedSecond, err := repo.GetBySID(ctx, "tenant-a", second.SID())
	require.NoError(t, err)
	assert.False(t, reloadedFirst.IsPrincipal())
	assert.True(t, reloadedSecond.IsPrincipal())
	assert.Equal(t, first.Version()+1, reloadedFirst.Version())
}

func TestConnectorRepository_UpdateConflict(t *testing.T) {
	repo := NewConnectorRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	c := createConnector(t, repo, "tenant-a", shared.GatewayStripe)
	stale, err := repo.GetBySID(ctx, "tenant-a", c.SID())
	require.NoError(t, err)

	c.MarkVerified(time.Now().UTC())
	require.NoError(t, repo.Update(ctx, c))

	stale.RecordVerificationFailure("boom", time.Now().UTC())
	err = repo.Update(ctx, stale)
	assert.True(t, apperrors.IsConflictError(err))
}
