package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableError(t *testing.T) {
	calls := 0
	transient := errors.New("connection reset")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(transient)
		}
		return nil
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryPlainError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("unique violation")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(fatal)
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttemptsAndUnwraps(t *testing.T) {
	calls := 0
	transient := errors.New("still failing")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(transient)
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	assert.Equal(t, transient, err)
	assert.Equal(t, 3, calls)
}

func TestDo_RetryIfOverridesDefault(t *testing.T) {
	calls := 0
	conflict := errors.New("serialization failure")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return conflict
		}
		return nil
	},
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(err error) bool { return errors.Is(err, conflict) }),
	)

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(ctx context.Context) error {
		t.Fatal("operation must not run with cancelled context")
		return nil
	})

	require.Error(t, err)
}

func TestDoWithData(t *testing.T) {
	calls := 0

	got, err := DoWithData(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, Retryable(errors.New("transient"))
		}
		return 42, nil
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCalculateDelay_CappedAtMax(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(200*time.Millisecond),
		WithMultiplier(10),
		WithJitter(0),
	)

	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(5))
}
