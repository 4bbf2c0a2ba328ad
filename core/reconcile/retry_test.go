package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRetry_StopsAfterMaxAttempts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calls := 0

	err := Retry(context.Background(), zap.New(core), DefaultRetryPolicy(), "insert", func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed after 3 attempts")
	assert.Equal(t, 3, calls)

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		for i, e := range entries {
			assert.Equal(t, int64(i+1), e.ContextMap()["attempt"])
		}
	}
}

func TestRetry_SucceedsEventually(t *testing.T) {
	calls := 0
	v, err := RetryValue(context.Background(), zap.NewNop(), DefaultRetryPolicy(), "read", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("timeout")
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentIsNotRetried(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), zap.NewNop(), DefaultRetryPolicy(), "fetch", func(ctx context.Context) error {
		calls++
		return Permanent(ErrRowNotFound)
	})

	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.Equal(t, ErrRowNotFound, err, "the permanent wrapper is removed")
	assert.Equal(t, 1, calls)
}

func TestRetryValue_PermanentReturnsCauseUnchanged(t *testing.T) {
	calls := 0
	_, err := RetryValue(context.Background(), zap.NewNop(), DefaultRetryPolicy(), "update record", func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(ErrRecordFinalized)
	})

	require.Error(t, err)
	assert.Equal(t, ErrRecordFinalized, err)
	assert.NotContains(t, err.Error(), "attempts")
	assert.Equal(t, 1, calls)
}

func TestRetry_WithBackoff(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond}
	calls := 0
	start := time.Now()

	err := Retry(context.Background(), zap.NewNop(), policy, "read", func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Second}
	calls := 0

	err := Retry(ctx, zap.NewNop(), policy, "read", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_AtLeastOneAttempt(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), zap.NewNop(), RetryPolicy{}, "op", func(ctx context.Context) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}

func TestConfig_RetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Zero(t, p.InitialBackoff)
	assert.Equal(t, 2*time.Second, p.MaxBackoff)
}
