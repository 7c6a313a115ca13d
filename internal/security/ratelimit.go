// Package security provides the per-user rate limiter and input validation
// applied to every incoming Telegram update before command dispatch.
package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter pairs a token bucket with its last access time so idle
// entries can be evicted.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter enforces a per-user request budget. Each Telegram user gets
// an independent token bucket; buckets idle longer than idleTTL are evicted
// by a background cleanup loop.
type RateLimiter struct {
	perMinute int
	idleTTL   time.Duration

	mu       sync.Mutex
	limiters map[int64]*userLimiter
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter allowing perMinute requests per user
// with a burst of the same size, and starts the cleanup loop.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	rl := &RateLimiter{
		perMinute: perMinute,
		idleTTL:   10 * time.Minute,
		limiters:  make(map[int64]*userLimiter),
		stopCh:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether the user may proceed, consuming one token.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.perMinute),
		}
		rl.limiters[userID] = ul
	}
	ul.lastAccess = time.Now()
	rl.mu.Unlock()

	return ul.limiter.Allow()
}

// Stop terminates the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	cutoff := time.Now().Add(-rl.idleTTL)
	rl.mu.Lock()
	for id, ul := range rl.limiters {
		if ul.lastAccess.Before(cutoff) {
			delete(rl.limiters, id)
		}
	}
	rl.mu.Unlock()
}
