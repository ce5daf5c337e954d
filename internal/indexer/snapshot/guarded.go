package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/resilience"
)

// Guarded wraps a remote Store with a per-call deadline and a circuit
// breaker. A missing record is a normal answer and never trips the breaker.
type Guarded struct {
	inner   Store
	breaker *resilience.Breaker
	timeout time.Duration
	logger  *slog.Logger
}

// NewGuarded wraps inner. A zero timeout disables the per-call deadline.
func NewGuarded(name string, inner Store, timeout time.Duration, cfg resilience.BreakerConfig) *Guarded {
	cfg.Ignore = func(err error) bool {
		return errors.Is(err, apperrors.ErrSnapshotNotFound)
	}
	return &Guarded{
		inner:   inner,
		breaker: resilience.NewBreaker(name, cfg),
		timeout: timeout,
		logger:  slog.Default().With("component", "snapshot-store", "store", name),
	}
}

// Load fetches a record through the breaker.
func (g *Guarded) Load(ctx context.Context, id int) (*Record, error) {
	var rec *Record
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		return resilience.Within(ctx, g.timeout, "snapshot load", func(ctx context.Context) error {
			r, err := g.inner.Load(ctx, id)
			if err == nil {
				rec = r
			}
			return err
		})
	})
	if err != nil {
		return nil, g.translate(err)
	}
	return rec, nil
}

// Save upserts a record through the breaker.
func (g *Guarded) Save(ctx context.Context, rec *Record) error {
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		return resilience.Within(ctx, g.timeout, "snapshot save", func(ctx context.Context) error {
			return g.inner.Save(ctx, rec)
		})
	})
	return g.translate(err)
}

// Close closes the wrapped store.
func (g *Guarded) Close() error {
	return g.inner.Close()
}

// Ping probes the wrapped store when it supports it. An open circuit
// reports unavailable without touching the server.
func (g *Guarded) Ping(ctx context.Context) error {
	p, ok := g.inner.(Pinger)
	if !ok {
		return nil
	}
	if g.breaker.State() == resilience.StateOpen {
		return apperrors.ErrStoreUnavailable
	}
	return p.Ping(ctx)
}

// State reports the breaker state.
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}

func (g *Guarded) translate(err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		g.logger.Warn("snapshot store unavailable", "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return err
}
