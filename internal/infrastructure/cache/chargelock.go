package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const chargeLockKeyPrefix = "paybridge:charge_lock:"

// releaseScript deletes the lock only when it is still held by the caller.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// ChargeLock serializes charge attempts for one subscription period across
// worker instances.
type ChargeLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewChargeLock(client *redis.Client, ttl time.Duration) *ChargeLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ChargeLock{client: client, ttl: ttl}
}

// buildKey formats paybridge:charge_lock:{key}
func (l *ChargeLock) buildKey(key string) string {
	return chargeLockKeyPrefix + key
}

// Acquire takes the lock with SetNX. The returned token must be passed to Release.
func (l *ChargeLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, l.buildKey(key), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire charge lock: %w", err)
	}
	if !acquired {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock if token still owns it. An expired lock is not an error.
func (l *ChargeLock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.buildKey(key)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release charge lock: %w", err)
	}
	return nil
}
