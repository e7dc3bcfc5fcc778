package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle decides whether an action keyed by key may run now.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RecoveryThrottle allows one recovery token per key within cooldown.
type RecoveryThrottle struct {
	client   *redis.Client
	cooldown time.Duration
}

// NewRecoveryThrottle builds a redis backed throttle.
func NewRecoveryThrottle(client *redis.Client, cooldown time.Duration) *RecoveryThrottle {
	return &RecoveryThrottle{client: client, cooldown: cooldown}
}

// Allow claims the cooldown window for key; false means it is already taken.
func (t *RecoveryThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t == nil || t.client == nil || t.cooldown <= 0 {
		return true, nil
	}
	return t.client.SetNX(ctx, throttleKey(key), 1, t.cooldown).Result()
}

// Release drops a claimed window so the next Allow for key succeeds.
func (t *RecoveryThrottle) Release(ctx context.Context, key string) error {
	if t == nil || t.client == nil || t.cooldown <= 0 {
		return nil
	}
	return t.client.Del(ctx, throttleKey(key)).Err()
}

func throttleKey(key string) string {
	return "recover:" + key
}
