package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy describes how often and how patiently an operation is retried.
// Waits double from Backoff up to MaxBackoff, each spread by ±Jitter.
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Jitter     float64

	// Permanent marks errors that retrying cannot fix.
	Permanent func(err error) bool
	// OnRetry runs before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 100 * time.Millisecond
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = 50 * p.Backoff
	}
	if p.Jitter <= 0 || p.Jitter >= 1 {
		p.Jitter = 0.1
	}
	return p
}

// Retry runs fn under policy p until it succeeds. It stops early on a
// permanent error or when ctx ends; the returned error wraps the last
// failure from fn.
func Retry(ctx context.Context, op string, p RetryPolicy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()
	log := slog.Default().With("component", "retry", "op", op)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				log.Info("recovered", "attempt", attempt)
			}
			return nil
		}
		if p.Permanent != nil && p.Permanent(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if attempt >= p.Attempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempt, err)
		}

		wait := p.wait(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		log.Warn("attempt failed", "attempt", attempt, "of", p.Attempts, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: abandoned after %d attempts: %w (last error: %v)", op, attempt, ctx.Err(), err)
		}
	}
}

// wait is the pause after the given failed attempt.
func (p RetryPolicy) wait(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt && d < p.MaxBackoff; i++ {
		d *= 2
	}
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	spread := float64(d) * p.Jitter
	return d + time.Duration(spread*(2*rand.Float64()-1))
}
