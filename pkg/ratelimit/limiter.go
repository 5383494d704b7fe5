package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces asset downloads against the CDN
type Limiter interface {
	// Allow takes a token if one is available
	Allow() bool
	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the limiter
	Reset()
}

// TokenBucket refills continuously at rate tokens per period, holding at
// most capacity tokens.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	rate       float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket. perPeriod tokens become available
// every period once the initial burst is spent.
func NewTokenBucket(capacity, perPeriod int, period time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if perPeriod < 1 {
		perPeriod = 1
	}
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		rate:       float64(perPeriod) / period.Seconds(),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// PerMinute builds the bucket used for asset downloads
func PerMinute(requestsPerMinute, burst int) *TokenBucket {
	return NewTokenBucket(burst, requestsPerMinute, time.Minute)
}

// Allow checks if a request can proceed
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

// Wait blocks until a token is available or ctx is canceled
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tb.Allow() {
			return nil
		}

		timer := time.NewTimer(tb.untilNext())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// untilNext estimates how long until one whole token accrues
func (tb *TokenBucket) untilNext() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	missing := 1 - tb.tokens
	if missing <= 0 {
		return time.Millisecond
	}
	d := time.Duration(missing / tb.rate * float64(time.Second))
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}
