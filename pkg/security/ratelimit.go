package security

import (
	"sync"
	"time"
)

// RateLimiter applies a per-user token bucket to inbound messages. Tokens
// refill at the sustained rate; the bucket capacity is the burst allowance.
// Buckets are created lazily and idle buckets are dropped by Sweep.
type RateLimiter struct {
	capacity   int64
	refillRate float64 // tokens per second

	mu      sync.Mutex
	buckets map[int64]*bucket
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing ratePerMinute sustained messages
// per user with the given burst capacity.
func NewRateLimiter(ratePerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		capacity:   int64(burst),
		refillRate: float64(ratePerMinute) / 60.0,
		buckets:    make(map[int64]*bucket),
	}
}

// Allow reports whether a message from the given user may be processed,
// consuming one token when it may.
func (rl *RateLimiter) Allow(userID int64) bool {
	return rl.allowAt(userID, time.Now())
}

// allowAt is the clock-injectable core of Allow.
func (rl *RateLimiter) allowAt(userID int64, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[userID]
	if !ok {
		b = &bucket{tokens: float64(rl.capacity), lastRefill: now}
		rl.buckets[userID] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * rl.refillRate
		if b.tokens > float64(rl.capacity) {
			b.tokens = float64(rl.capacity)
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Sweep removes buckets that have been idle long enough to be full again.
// Called by the periodic cache janitor to keep the map bounded.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	idle := time.Duration(float64(rl.capacity)/rl.refillRate) * time.Second
	now := time.Now()

	removed := 0
	for id, b := range rl.buckets {
		if now.Sub(b.lastRefill) > idle {
			delete(rl.buckets, id)
			removed++
		}
	}
	return removed
}

// TrackedUsers returns the number of users with live buckets.
func (rl *RateLimiter) TrackedUsers() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
