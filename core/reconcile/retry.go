package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy bounds the attempts made for a single store call.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// InitialBackoff is the wait before the second try. Zero retries immediately.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential wait between tries.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy retries three times without waiting.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.InitialBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	if p.MaxBackoff > 0 {
		b.MaxInterval = p.MaxBackoff
	}
	return b
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs fn until it succeeds, returns a Permanent error, or the policy is exhausted.
// Every failed try is logged with its attempt number.
func Retry(ctx context.Context, log *zap.Logger, policy RetryPolicy, op string, fn func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, log, policy, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryValue is Retry for calls that produce a value.
func RetryValue[T any](ctx context.Context, log *zap.Logger, policy RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	maxAttempts := policy.attempts()
	attempt := 0
	permanent := false

	value, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			permanent = true
		} else {
			log.Warn("Store operation failed",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Error(err),
			)
		}
		return v, err
	}, backoff.WithBackOff(policy.backOff()), backoff.WithMaxTries(uint(maxAttempts)))

	if err == nil {
		return value, nil
	}

	// backoff.Retry has already stripped the Permanent wrapper
	if permanent {
		return value, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return value, err
	}
	return value, fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
}
