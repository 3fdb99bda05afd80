package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := New().Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	attempts := 0
	err := New(
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
	).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	permanent := errors.New("bad input")
	attempts := 0
	err := New(WithMaxAttempts(5), WithInitialDelay(time.Millisecond)).
		Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return permanent
		})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestDoStopsOnPermanentEvenWhenRetryIfMatches(t *testing.T) {
	attempts := 0
	err := New(
		WithMaxAttempts(5),
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(error) bool { return true }),
	).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(errors.New("do not retry"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoExhaustsBudgetAndReturnsLastError(t *testing.T) {
	transient := errors.New("still locked")
	attempts := 0
	err := New(
		WithMaxAttempts(4),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
		WithRetryIf(func(error) bool { return true }),
	).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return transient
	})
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 4, attempts)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := New(
		WithMaxAttempts(10),
		WithInitialDelay(50*time.Millisecond),
		WithRetryIf(func(error) bool { return true }),
	).Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "cancellation stops the backoff wait")
}

func TestOnRetryCallbackObservesAttempts(t *testing.T) {
	var observed []int
	_ = New(
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
		WithRetryIf(func(error) bool { return true }),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			observed = append(observed, attempt)
		}),
	).Do(context.Background(), func(ctx context.Context) error {
		return errors.New("transient")
	})
	assert.Equal(t, []int{1, 2}, observed)
}

func TestDelayForBacksOffExponentially(t *testing.T) {
	r := New(
		WithInitialDelay(10*time.Millisecond),
		WithMultiplier(2),
		WithJitter(0),
		WithMaxDelay(25*time.Millisecond),
	)
	assert.Equal(t, 10*time.Millisecond, r.delayFor(1))
	assert.Equal(t, 20*time.Millisecond, r.delayFor(2))
	assert.Equal(t, 25*time.Millisecond, r.delayFor(3), "capped at max delay")
}
