package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds the retries of upstream calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is used when a service is built without an explicit policy.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}

// doWithRetry runs op until it succeeds, fails with something other than
// apperrors.ErrUpstreamUnavailable, or the attempts are used up. Delays grow
// exponentially from BaseDelay with up to BaseDelay/2 of jitter.
func (p RetryPolicy) doWithRetry(ctx context.Context, logger *slog.Logger, what string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}

	b := retry.NewExponential(base)
	b = retry.WithJitter(base/2, b)
	b = retry.WithMaxRetries(uint64(attempts-1), b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, apperrors.ErrUpstreamUnavailable) && ctx.Err() == nil {
			if attempt < attempts {
				logger.Warn("Upstream call failed, retrying",
					slog.String("operation", what),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()))
			}
			return retry.RetryableError(err)
		}
		return err
	})
}
