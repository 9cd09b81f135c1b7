// Package httputil provides retry and pacing utilities for the Enrichr client.
//
// # Retry
//
// [Policy] wraps an operation with bounded retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Callers mark transient failures with [Retryable]; anything else stops the
// loop immediately. When every attempt fails, [Policy.Do] returns an
// [ExhaustedError] so callers can tell "gave up" apart from "failed hard":
//
//	p := httputil.DefaultPolicy() // 1 request + 5 retries, jittered backoff
//	err := p.Do(ctx, func(attempt int) error {
//	    return fetch(ctx)
//	})
//	if errors.Is(err, httputil.ErrExhausted) {
//	    // all 5 attempts failed
//	}
//
// # Pacing
//
// [Sleep] is a context-aware delay used for the fixed politeness pauses
// between protocol steps. Both [Policy] and the job transport accept a
// [SleepFunc] so tests can substitute [NoSleep].
//
// # Configuration
//
// Default settings are suitable for the public Enrichr server:
//
//   - Max attempts: 5
//   - Base backoff: 1 second, doubling, capped at 30 seconds
//   - Jitter: full (uniform between zero and the capped delay)
package httputil
