package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// alertKeyPrefix is the prefix for all alert deduplication keys
const alertKeyPrefix = "paybridge:admin_alert:"

// AlertType represents different alert types for deduplication
type AlertType string

const (
	AlertTypeConnectorVerificationFailed AlertType = "connector_verification_failed"
	AlertTypeRetryCyclesExhausted        AlertType = "retry_cycles_exhausted"
)

// AlertDeduplicator keeps one admin alert per resource per cooldown across
// every instance.
type AlertDeduplicator struct {
	client *redis.Client
}

func NewAlertDeduplicator(client *redis.Client) *AlertDeduplicator {
	return &AlertDeduplicator{client: client}
}

// Format: paybridge:admin_alert:{type}:{resource_id}
func (d *AlertDeduplicator) buildKey(alertType AlertType, resourceID string) string {
	return fmt.Sprintf("%s%s:%s", alertKeyPrefix, alertType, resourceID)
}

// TryAcquireAlertLock reports whether the caller should send the alert. The
// check and the cooldown start are one SETNX, so concurrent instances cannot
// both win.
func (d *AlertDeduplicator) TryAcquireAlertLock(ctx context.Context, alertType AlertType, resourceID string, ttl time.Duration) (bool, error) {
	acquired, err := d.client.SetNX(ctx, d.buildKey(alertType, resourceID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire alert lock: %w", err)
	}
	return acquired, nil
}

// ClearAlert ends the cooldown early, e.g. once a connector verifies again.
func (d *AlertDeduplicator) ClearAlert(ctx context.Context, alertType AlertType, resourceID string) error {
	if err := d.client.Del(ctx, d.buildKey(alertType, resourceID)).Err(); err != nil {
		return fmt.Errorf("failed to clear alert: %w", err)
	}
	return nil
}

// GetRemainingCooldown returns 0 when no cooldown is running.
func (d *AlertDeduplicator) GetRemainingCooldown(ctx context.Context, alertType AlertType, resourceID string) (time.Duration, error) {
	ttl, err := d.client.TTL(ctx, d.buildKey(alertType, resourceID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get cooldown: %w", err)
	}

	// TTL returns -2 if key doesn't exist, -1 if no TTL set
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
