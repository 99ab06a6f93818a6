package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const connectorChangeChannel = "paybridge:connector:change"

// LocalInvalidator drops a tenant's cached connectors in this process.
type LocalInvalidator interface {
	Invalidate(tenantID string)
}

// ConnectorChangeEvent tells other instances a tenant's connectors changed.
type ConnectorChangeEvent struct {
	TenantID  string `json:"tenant_id"`
	Origin    string `json:"origin"`
	Timestamp int64  `json:"timestamp"`
}

// RedisConnectorEventBus invalidates the local connector cache and fans the
// invalidation out to every other instance over Redis Pub/Sub. Instances that
// miss a message still converge when their cache TTL expires.
type RedisConnectorEventBus struct {
	client   *redis.Client
	local    LocalInvalidator
	instance string
	logger   logger.Interface
}

func NewRedisConnectorEventBus(client *redis.Client, local LocalInvalidator, logger logger.Interface) *RedisConnectorEventBus {
	return &RedisConnectorEventBus{
		client:   client,
		local:    local,
		instance: uuid.NewString(),
		logger:   logger,
	}
}

// Invalidate drops the tenant locally, then publishes. A failed publish is
// logged only; the admin write has already succeeded.
func (b *RedisConnectorEventBus) Invalidate(tenantID string) {
	b.local.Invalidate(tenantID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.publish(ctx, ConnectorChangeEvent{
		TenantID:  tenantID,
		Origin:    b.instance,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		b.logger.Warnw("failed to publish connector change", "tenant_id", tenantID, "error", err)
	}
}

func (b *RedisConnectorEventBus) publish(ctx context.Context, event ConnectorChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, connectorChangeChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe applies invalidations published by other instances until ctx is
// cancelled.
func (b *RedisConnectorEventBus) Subscribe(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, connectorChangeChannel)
	defer sub.Close()

	// Wait for subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Infow("subscribed to connector change events", "channel", connectorChangeChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("connector event channel closed")
				return nil
			}

			var event ConnectorChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal connector event", "payload", msg.Payload, "error", err)
				continue
			}
			if event.Origin == b.instance || event.TenantID == "" {
				continue
			}

			b.local.Invalidate(event.TenantID)
			b.logger.Debugw("connector cache invalidated by peer", "tenant_id", event.TenantID, "origin", event.Origin)
		}
	}
}
