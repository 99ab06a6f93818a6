package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type recordingInvalidator struct {
	mu      sync.Mutex
	tenants []string
}

func (r *recordingInvalidator) Invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, tenantID)
}

func (r *recordingInvalidator) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tenants...)
}

func newClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestConnectorEventBus_FansOutToPeers(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	localA := &recordingInvalidator{}
	localB := &recordingInvalidator{}
	busA := NewRedisConnectorEventBus(newClient(t, mr), localA, logger.NewNopLogger())
	busB := NewRedisConnectorEventBus(newClient(t, mr), localB, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 2)
	go func() { errCh <- busA.Subscribe(ctx) }()
	go func() { errCh <- busB.Subscribe(ctx) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(connectorChangeChannel)[connectorChangeChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	busA.Invalidate("tenant-a")

	require.Eventually(t, func() bool {
		return len(localB.seen()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"tenant-a"}, localB.seen())

	// The origin instance applies its own change once, locally
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"tenant-a"}, localA.seen())

	cancel()
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errCh, context.Canceled)
	}
}

func TestConnectorEventBus_PublishFailureStillInvalidatesLocally(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := newClient(t, mr)
	mr.Close()

	local := &recordingInvalidator{}
	bus := NewRedisConnectorEventBus(rdb, local, logger.NewNopLogger())
	bus.Invalidate("tenant-a")

	assert.Equal(t, []string{"tenant-a"}, local.seen())
}
