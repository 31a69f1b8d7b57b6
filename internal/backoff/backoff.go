// Package backoff provides exponential backoff with context-aware retry
// helpers. The lifecycle manager uses it to bring the storage pool up
// (1s, 2s, 4s between attempts); handlers never retry on their own.
package backoff

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrAttemptsExhausted is returned when all retry attempts failed.
var ErrAttemptsExhausted = errors.New("all retry attempts exhausted")

// Policy defines the exponential backoff parameters.
type Policy struct {
	// Initial is the delay before the second attempt.
	Initial time.Duration
	// Max caps the computed delay.
	Max time.Duration
	// Factor is the multiplier applied per attempt.
	Factor float64
}

// StartupPolicy is the pool-initialization policy: 1s, 2s, 4s.
func StartupPolicy() Policy {
	return Policy{Initial: time.Second, Max: 30 * time.Second, Factor: 2}
}

// Delay computes the delay to sleep after the given failed attempt
// (1-indexed): Initial * Factor^(attempt-1), capped at Max.
func (p Policy) Delay(attempt int) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	d := time.Duration(float64(p.Initial) * math.Pow(p.Factor, exp))
	if d > p.Max {
		return p.Max
	}
	return d
}

// Sleep waits the policy delay for attempt, returning early with ctx.Err()
// on cancellation.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	d := p.Delay(attempt)
	if d <= 0 {
		return nil
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

// Retry runs fn up to maxAttempts times with policy delays between failures.
// fn receives the 1-indexed attempt number. Returns the first success, or
// ErrAttemptsExhausted joined with the last failure.
func Retry(ctx context.Context, policy Policy, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt < maxAttempts {
			if err := policy.Sleep(ctx, attempt); err != nil {
				return err
			}
		}
	}
	return errors.Join(ErrAttemptsExhausted, lastErr)
}
