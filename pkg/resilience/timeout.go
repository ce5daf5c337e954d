package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

// Within runs fn under a deadline of limit and returns as soon as the
// deadline passes, even if fn has not. Overrunning yields an error wrapping
// apperrors.ErrTimeout. A limit of zero or less means no deadline.
func Within(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(callCtx) }()

	var err error
	select {
	case err = <-done:
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %v", op, apperrors.ErrTimeout, limit)
	}
	return err
}
