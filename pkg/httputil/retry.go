package httputil

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Policy.Do] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is wrapped with [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// ErrExhausted is wrapped by the error [Policy.Do] returns when every attempt
// failed with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError reports the last failure after all attempts were used.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return ErrExhausted.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the sentinel and the last attempt's error.
func (e *ExhaustedError) Unwrap() []error { return []error{ErrExhausted, e.Err} }

// Backoff returns the delay to wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures [Policy.Do].
type Policy struct {
	MaxAttempts int       // total attempts including the first; values < 1 mean 1
	Backoff     Backoff   // nil means no delay between attempts
	Sleep       SleepFunc // nil means [Sleep]
}

// DefaultPolicy is one request plus five retries with jittered exponential
// backoff starting at one second and capped at 30 seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 6,
		Backoff:     ExponentialJitter(time.Second, 30*time.Second),
	}
}

// Do executes fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. Only errors wrapped with [RetryableError] are
// retried. When all attempts fail, Do returns an [*ExhaustedError] carrying
// the last error; if ctx is cancelled while waiting it returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := fn(i); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts && p.Backoff != nil {
			if err := sleep(ctx, p.Backoff(i)); err != nil {
				return err
			}
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// ExponentialJitter returns a full-jitter exponential backoff: the delay
// after attempt n is uniform in [0, min(max, base*2^(n-1))].
func ExponentialJitter(base, maxDelay time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := Exponential(base, maxDelay)(attempt)
		if d <= 0 {
			return 0
		}
		return rand.N(d + 1)
	}
}

// Exponential returns a deterministic doubling backoff capped at maxDelay.
func Exponential(base, maxDelay time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt && d < maxDelay; i++ {
			d *= 2
		}
		return min(d, maxDelay)
	}
}

// Sleep waits for d, returning early with ctx.Err() if ctx is cancelled.
// Non-positive durations return immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep is a [SleepFunc] that never blocks. Useful in tests.
func NoSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }
