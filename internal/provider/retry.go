package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"gym-chat-service/internal/observability"
)

// RetryPolicy bounds retries of transient provider failures. With the defaults an
// operation sleeps 1s, 2s, 4s between attempts, so a hard-dependency step blocks at
// most 7s before surfacing the failure.
type RetryPolicy struct {
	MaxRetries  uint64
	BackoffBase time.Duration
}

// DefaultRetryPolicy matches the provider call budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BackoffBase: time.Second}
}

// Do runs op, retrying only transient provider errors within the policy budget.
// Context cancellation stops the retries immediately.
func (p RetryPolicy) Do(ctx context.Context, opName string, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(p.MaxRetries, retry.NewExponential(p.BackoffBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var provErr *Error
		if errors.As(err, &provErr) && provErr.Transient {
			observability.IncProviderRetry(opName)
			return retry.RetryableError(err)
		}
		return err
	})
	return err
}
