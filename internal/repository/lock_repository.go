package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock already held")

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepository provides short-lived mutual exclusion keys in Redis.
type LockRepository struct {
	client *redis.Client
	prefix string
}

// NewLockRepository constructs a lock repository. A nil client makes every
// acquisition succeed immediately.
func NewLockRepository(client *redis.Client, prefix string) *LockRepository {
	if prefix == "" {
		prefix = "lock:"
	}
	return &LockRepository{client: client, prefix: prefix}
}

// Acquire sets the lock key if absent and returns a release function.
// Release is safe to call after the TTL expired or another holder took over.
func (r *LockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	if r == nil || r.client == nil {
		return func(context.Context) error { return nil }, nil
	}

	key := r.prefix + name
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis release %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}
