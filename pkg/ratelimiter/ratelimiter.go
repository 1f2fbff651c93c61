// Package ratelimiter provides a token bucket limiter used to pace calls to
// external publishing platforms.
package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Limiter is the interface for rate limiting strategies.
type Limiter interface {
	// Allow reports whether a request may proceed right now.
	Allow() bool
	// Wait blocks until a request may proceed or the context is done.
	Wait(ctx context.Context) error
}

// TokenBucket implements Limiter using the token bucket algorithm, allowing
// bursts up to the bucket's capacity.
type TokenBucket struct {
	rate     float64 // tokens generated per second
	capacity float64
	tokens   float64
	last     time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a TokenBucket generating rate tokens per second with
// the given burst capacity. The bucket starts full.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		last:     time.Now(),
	}
}

// Allow refills the bucket for the elapsed time and consumes one token if
// available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait polls until a token becomes available. It returns the context error if
// the caller gives up first.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tb.retryInterval()):
		}
	}
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.last)
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed.Seconds() * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.last = now
}

// retryInterval is the time one token takes to generate, capped to keep Wait
// responsive to cancellation.
func (tb *TokenBucket) retryInterval() time.Duration {
	if tb.rate <= 0 {
		return 50 * time.Millisecond
	}
	d := time.Duration(float64(time.Second) / tb.rate)
	if d > 250*time.Millisecond {
		d = 250 * time.Millisecond
	}
	return d
}
