package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy replays fn while it keeps failing with a retryable error.
type Policy interface {
	Execute(ctx context.Context, fn func() error) error
}

type Config struct {
	MaxAttempts int
	// BaseDelay doubles after every failed attempt, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retryable selects the errors worth another attempt. When nil every
	// error except a context error is retried.
	Retryable func(error) bool
}

// ExhaustedError is returned once MaxAttempts attempts have all failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Backoff is a Policy with capped exponential delays and jitter.
type Backoff struct {
	cfg   Config
	sleep func(ctx context.Context, d time.Duration) error
}

func NewBackoff(cfg Config) *Backoff {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Retryable == nil {
		cfg.Retryable = notContextError
	}
	return &Backoff{cfg: cfg, sleep: sleepContext}
}

func (b *Backoff) Execute(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !b.cfg.Retryable(err) {
			return err
		}
		if attempt >= b.cfg.MaxAttempts {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}
		if sleepErr := b.sleep(ctx, b.delay(attempt)); sleepErr != nil {
			return errors.Join(sleepErr, err)
		}
	}
}

// delay picks uniformly from the upper half of the capped window so that
// writers losing the same race spread out.
func (b *Backoff) delay(attempt int) time.Duration {
	window := b.cfg.BaseDelay
	for i := 1; i < attempt && window < b.cfg.MaxDelay; i++ {
		window *= 2
	}
	if window > b.cfg.MaxDelay {
		window = b.cfg.MaxDelay
	}
	if window <= 0 {
		return 0
	}
	half := window / 2
	return half + rand.N(window-half+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func notContextError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
