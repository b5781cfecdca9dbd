package osuapi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/osuguard/osuguard/pkg/infra/metrics"
)

// RatelimitReset is how long the api takes to refresh the heavy-call budget.
const RatelimitReset = 60 * time.Second

// DefaultHeavyBudget is how many heavy calls (get_replay) fit in one window.
const DefaultHeavyBudget = 10

// RateLimiter is a sliding-window gate for heavy api calls. The window is
// anchored at the first call after any idle period longer than the reset;
// once the budget is spent, callers sleep until the window expires. The
// sleep honors context cancellation. The HTTP request itself runs outside
// the mutex.
type RateLimiter struct {
	mu          sync.Mutex
	budget      int
	used        int
	windowStart time.Time

	// now and sleep are swapped out by tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRateLimiter(budget int) *RateLimiter {
	if budget <= 0 {
		budget = DefaultHeavyBudget
	}
	return &RateLimiter{
		budget: budget,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Acquire blocks until a heavy call is allowed, consuming one token of the
// current window.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := r.now()

		// anchor a fresh window on the first call after an idle period
		if r.windowStart.IsZero() || now.Sub(r.windowStart) >= RatelimitReset {
			r.windowStart = now
			r.used = 0
		}

		if r.used < r.budget {
			r.used++
			r.mu.Unlock()
			return nil
		}

		wait := RatelimitReset - now.Sub(r.windowStart)
		r.mu.Unlock()

		slog.InfoContext(ctx, "ratelimit budget spent, waiting for window reset", "wait", wait)
		metrics.OsuApiRatelimitWaitSeconds.Observe(wait.Seconds())
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// SleepUntilReset waits out the remainder of the current window. Used when
// the api reports we are going too fast regardless of our own bookkeeping.
func (r *RateLimiter) SleepUntilReset(ctx context.Context) error {
	r.mu.Lock()
	wait := RatelimitReset
	if !r.windowStart.IsZero() {
		if elapsed := r.now().Sub(r.windowStart); elapsed < RatelimitReset {
			wait = RatelimitReset - elapsed
		}
	}
	// the server told us the budget is gone; make the local window agree
	r.used = r.budget
	r.mu.Unlock()

	metrics.OsuApiRatelimitWaitSeconds.Observe(wait.Seconds())
	return r.sleep(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
