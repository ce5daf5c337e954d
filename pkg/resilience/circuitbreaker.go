// Package resilience keeps remote snapshot stores from stalling the index:
// a circuit breaker that fails fast while a store is down, retry with
// backoff for transient save errors, and a hard per-call deadline.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned instead of calling through an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is a breaker phase. The numeric values are exported as a gauge.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// BreakerConfig tunes a Breaker. Zero values pick defaults.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before one probe call.
	Cooldown time.Duration
	// Ignore marks errors that are answers rather than faults, such as a
	// missing record. They count as successes.
	Ignore func(err error) bool
	// OnChange is called after every transition, outside the breaker lock.
	OnChange func(name string, from, to State)
}

// Breaker fails calls fast after Threshold consecutive failures. Once the
// cooldown passes a single probe call decides whether it closes again.
type Breaker struct {
	name string
	cfg  BreakerConfig
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name: name,
		cfg:  cfg,
		log:  slog.Default().With("component", "breaker", "name", name),
	}
}

// Do calls fn unless the breaker is open. A caller's own cancellation is
// not held against the guarded store.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		b.release()
		return err
	}
	b.record(err != nil && (b.cfg.Ignore == nil || !b.cfg.Ignore(err)))
	return err
}

// State returns the current phase, reporting an open breaker whose cooldown
// has passed as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case StateOpen:
		left := b.cfg.Cooldown - time.Since(b.openedAt)
		if left > 0 {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s, retry in %v", ErrCircuitOpen, b.name, left.Round(time.Millisecond))
		}
		b.state = StateHalfOpen
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s, probe in flight", ErrCircuitOpen, b.name)
		}
		b.probing = true
	}
	to := b.state
	b.mu.Unlock()
	b.changed(from, to)
	return nil
}

// release gives back a probe slot without judging the store.
func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	from := b.state
	b.probing = false
	switch {
	case !failed:
		b.failures = 0
		b.state = StateClosed
	case b.state == StateHalfOpen:
		b.state = StateOpen
		b.openedAt = time.Now()
	default:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.state = StateOpen
			b.openedAt = time.Now()
		}
	}
	to, failures := b.state, b.failures
	b.mu.Unlock()

	if from == to {
		return
	}
	switch to {
	case StateOpen:
		b.log.Warn("circuit opened", "consecutive_failures", failures, "cooldown", b.cfg.Cooldown)
	case StateClosed:
		b.log.Info("circuit closed")
	}
	b.changed(from, to)
}

func (b *Breaker) changed(from, to State) {
	if from != to && b.cfg.OnChange != nil {
		b.cfg.OnChange(b.name, from, to)
	}
}
