package exact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter deterministically: sleeps advance the clock
// instead of blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 8, 28, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestLimiter(clock *fakeClock) *RateLimiter {
	limiter := NewRateLimiter(nil)
	limiter.now = clock.Now
	limiter.sleep = clock.Sleep
	return limiter
}

func TestRateLimiter_SixtyCallsNoWait(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)

	for i := 0; i < maxCallsPerWindow; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
		clock.Advance(10 * time.Millisecond)
	}

	assert.Empty(t, clock.sleeps, "first 60 calls must not wait")
	assert.Equal(t, maxCallsPerWindow, limiter.Pending())
}

func TestRateLimiter_SixtyFirstCallWaits(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)

	for i := 0; i < maxCallsPerWindow; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
	}
	require.NoError(t, limiter.Acquire(context.Background()))

	require.Len(t, clock.sleeps, 1, "61st call must wait")
	assert.Greater(t, clock.sleeps[0], rateWindow-time.Second)
	assert.LessOrEqual(t, clock.sleeps[0], rateWindow+windowSlack)
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)

	for i := 0; i < maxCallsPerWindow; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
	}

	// After the window has passed, old entries are pruned and calls run
	// without waiting again.
	clock.Advance(rateWindow + time.Second)
	require.NoError(t, limiter.Acquire(context.Background()))
	assert.Empty(t, clock.sleeps)
	assert.Equal(t, 1, limiter.Pending())
}

func TestRateLimiter_CanceledContext(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)
	limiter.sleep = sleepContext

	for i := 0; i < maxCallsPerWindow; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := limiter.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
