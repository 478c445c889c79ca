// Package memory implements domain cache interfaces in process, for
// single-replica deployments that run without Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

const (
	sweepInterval = 3 * time.Minute
	idleTTL       = 5 * time.Minute
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements domain.RateLimiter with one token bucket per key.
// A bucket refills limit tokens per window and bursts up to limit.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	now      func() time.Time
}

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*keyLimiter),
		now:      time.Now,
	}
}

// Allow reports whether one more request for key fits in the budget.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	now := rl.now()

	rl.mu.Lock()
	l, ok := rl.limiters[key]
	if !ok {
		every := rate.Every(window / time.Duration(limit))
		l = &keyLimiter{limiter: rate.NewLimiter(every, limit)}
		rl.limiters[key] = l
	}
	l.lastSeen = now
	rl.mu.Unlock()

	return l.limiter.AllowN(now, 1), nil
}

// Run evicts idle buckets until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-idleTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, l := range rl.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
