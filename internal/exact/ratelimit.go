package exact

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// maxCallsPerWindow is the Exact Online limit: 60 calls per minute.
	maxCallsPerWindow = 60
	rateWindow        = 60 * time.Second
	// windowSlack is added to computed waits so the oldest entry is strictly
	// outside the window when the caller wakes up.
	windowSlack = 100 * time.Millisecond
)

// RateLimiter enforces the upstream sliding-window call budget. All window
// mutation happens under a single mutex so concurrent callers cannot both
// observe spare capacity and overshoot the limit.
type RateLimiter struct {
	mu     sync.Mutex
	calls  []time.Time
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// NewRateLimiter creates a limiter with the real clock.
func NewRateLimiter(logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		now:    time.Now,
		sleep:  sleepContext,
		logger: logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Acquire blocks until the window has capacity, then records the call.
// Entries older than the window are pruned lazily on each call.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	if len(r.calls) >= maxCallsPerWindow {
		wait := rateWindow - now.Sub(r.calls[0]) + windowSlack
		if wait > 0 {
			if r.logger != nil {
				r.logger.Debug("rate limit window full, waiting", "wait", wait.String())
			}
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
			now = r.now()
			r.prune(now)
		}
	}

	r.calls = append(r.calls, now)
	return nil
}

// prune drops timestamps older than the window. Callers hold r.mu.
func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rateWindow)
	kept := r.calls[:0]
	for _, t := range r.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.calls = kept
}

// Pending returns the number of calls currently inside the window.
func (r *RateLimiter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(r.now())
	return len(r.calls)
}
