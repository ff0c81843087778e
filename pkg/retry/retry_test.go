package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConflict = errors.New("position conflict")

func isConflict(err error) bool { return errors.Is(err, errConflict) }

// recordingBackoff captures requested delays instead of sleeping.
func recordingBackoff(cfg Config) (*Backoff, *[]time.Duration) {
	b := NewBackoff(cfg)
	var delays []time.Duration
	b.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return b, &delays
}

func TestBackoff_SucceedsAfterRetryableFailures(t *testing.T) {
	b, delays := recordingBackoff(Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Retryable: isConflict})

	calls := 0
	err := b.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, *delays, 2)
}

func TestBackoff_StopsOnNonRetryable(t *testing.T) {
	b, delays := recordingBackoff(Config{MaxAttempts: 5, Retryable: isConflict})
	permanent := errors.New("no such table")

	calls := 0
	err := b.Execute(context.Background(), func() error {
		calls++
		return permanent
	})

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestBackoff_ExhaustedWrapsLastError(t *testing.T) {
	b, _ := recordingBackoff(Config{MaxAttempts: 4, Retryable: isConflict})

	calls := 0
	err := b.Execute(context.Background(), func() error {
		calls++
		return errConflict
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 4, calls)
}

func TestBackoff_CancelledContextStopsRetrying(t *testing.T) {
	b := NewBackoff(Config{MaxAttempts: 10, BaseDelay: time.Hour, MaxDelay: time.Hour, Retryable: isConflict})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := b.Execute(ctx, func() error {
		calls++
		cancel()
		return errConflict
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 1, calls)
}

func TestBackoff_DefaultRetryableSkipsContextErrors(t *testing.T) {
	b, _ := recordingBackoff(Config{MaxAttempts: 3})

	calls := 0
	err := b.Execute(context.Background(), func() error {
		calls++
		return context.DeadlineExceeded
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestBackoff_DelayIsCappedAndJittered(t *testing.T) {
	b := NewBackoff(Config{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond})

	for attempt := 1; attempt <= 6; attempt++ {
		window := 10 * time.Millisecond << (attempt - 1)
		if window > 40*time.Millisecond {
			window = 40 * time.Millisecond
		}
		for i := 0; i < 20; i++ {
			d := b.delay(attempt)
			assert.GreaterOrEqual(t, d, window/2)
			assert.LessOrEqual(t, d, window)
		}
	}
}
