package ratelimit

import (
	"sync"
	"time"
)

// Limiter gates requests against the source platform's API budget.
type Limiter interface {
	// Allow reports whether a request may proceed right now.
	Allow() bool
	// Wait blocks until the limiter admits another request.
	Wait()
}

// TokenBucket is a simple token bucket: the bucket refills to capacity once
// per period.
type TokenBucket struct {
	capacity   int
	tokens     int
	period     time.Duration
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a token bucket admitting capacity requests per
// period.
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		period:     period,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available.
func (tb *TokenBucket) Wait() {
	for !tb.Allow() {
		tb.mu.Lock()
		untilRefill := tb.period - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if untilRefill > 0 {
			time.Sleep(untilRefill)
		} else {
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (tb *TokenBucket) refillLocked() {
	if time.Since(tb.lastRefill) >= tb.period {
		tb.tokens = tb.capacity
		tb.lastRefill = time.Now()
	}
}
