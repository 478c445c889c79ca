package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

// releaseIfOwner deletes KEYS[1] only while it still holds ARGV[1], so a
// holder whose lease already expired cannot release its successor's lock.
var releaseIfOwner = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockManager hands out leases used to elect one replica per push tick.
// Leases are plain keys under "lock:" that expire on their own; callers that
// want the lease to cover the whole interval never release it.
type LockManager struct {
	rdb *redis.Client
}

// NewLockManager creates a LockManager backed by c.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{rdb: c.Underlying()}
}

// Acquire takes the lease on key for ttl. It returns domain.ErrLockHeld when
// another holder owns it. The returned release func is idempotent.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if ttl < time.Millisecond {
		return nil, fmt.Errorf("redis: lock %s: ttl %s below 1ms", key, ttl)
	}

	lease := "lock:" + key
	owner := uuid.NewString()

	err := lm.rdb.SetArgs(ctx, lease, owner, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, domain.ErrLockHeld
	case err != nil:
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseIfOwner.Run(releaseCtx, lm.rdb, []string{lease}, owner).Err()
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
