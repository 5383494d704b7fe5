package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBucket(capacity, perPeriod int, period time.Duration) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	tb := NewTokenBucket(capacity, perPeriod, period)
	tb.now = clock.now
	tb.lastRefill = clock.t
	return tb, clock
}

func TestTokenBucket(t *testing.T) {
	tb, clock := newTestBucket(5, 60, time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")

	clock.advance(500 * time.Millisecond)
	assert.False(t, tb.Allow(), "half a token is not enough")

	clock.advance(500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clock.advance(time.Hour)
	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow())
	}
	assert.False(t, tb.Allow(), "refill is capped at capacity")

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 100, time.Second)

	require.NoError(t, tb.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTokenBucketWaitCanceled(t *testing.T) {
	tb := PerMinute(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
