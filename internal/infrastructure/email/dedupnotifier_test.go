package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/infrastructure/cache"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type countingNotifier struct {
	exhausted int
	verify    int
}

func (c *countingNotifier) NotifyRetryCyclesExhausted(context.Context, string, string, string, int) error {
	c.exhausted++
	return nil
}

func (c *countingNotifier) NotifyConnectorVerificationFailed(context.Context, string, string, string, string) error {
	c.verify++
	return nil
}

type failingGate struct{}

func (failingGate) TryAcquireAlertLock(context.Context, cache.AlertType, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestDedupNotifier_SuppressesRepeats(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	next := &countingNotifier{}
	n := NewDedupNotifier(next, cache.NewAlertDeduplicator(rdb), 30*time.Minute, logger.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, n.NotifyConnectorVerificationFailed(ctx, "tenant-a", "conn_1", "stripe", "401"))
	}
	require.NoError(t, n.NotifyConnectorVerificationFailed(ctx, "tenant-a", "conn_2", "stripe", "401"))
	require.NoError(t, n.NotifyRetryCyclesExhausted(ctx, "tenant-a", "sub_1", "pre-1", 3))

	assert.Equal(t, 2, next.verify)
	assert.Equal(t, 1, next.exhausted)

	mr.FastForward(31 * time.Minute)
	require.NoError(t, n.NotifyConnectorVerificationFailed(ctx, "tenant-a", "conn_1", "stripe", "401"))
	assert.Equal(t, 3, next.verify)
}

func TestDedupNotifier_FailsOpen(t *testing.T) {
	next := &countingNotifier{}
	n := NewDedupNotifier(next, failingGate{}, time.Hour, logger.NewNopLogger())

	require.NoError(t, n.NotifyConnectorVerificationFailed(context.Background(), "t", "c", "stripe", "x"))
	require.NoError(t, n.NotifyConnectorVerificationFailed(context.Background(), "t", "c", "stripe", "x"))
	assert.Equal(t, 2, next.verify)
}

func TestDedupNotifier_ZeroCooldownPassesThrough(t *testing.T) {
	next := &countingNotifier{}
	n := NewDedupNotifier(next, failingGate{}, 0, logger.NewNopLogger())

	require.NoError(t, n.NotifyRetryCyclesExhausted(context.Background(), "t", "s", "e", 1))
	require.NoError(t, n.NotifyRetryCyclesExhausted(context.Background(), "t", "s", "e", 1))
	assert.Equal(t, 2, next.exhausted)
}
