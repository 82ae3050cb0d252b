// Package retry provides the retry policy value object used by every
// provider-facing operation in the provisioning workflow.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an operation is retried: how many attempts, how long
// to wait between them, and which failures are worth retrying at all.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the wait before the second attempt.
	Delay time.Duration

	// MaxDelay caps the delay when Multiplier > 1.
	MaxDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	// 1.0 (or 0) means a fixed delay.
	Multiplier float64

	// Retryable classifies failures. A nil classifier retries everything
	// except errors marked with Fatal.
	Retryable func(error) bool
}

// Fixed returns a policy with a constant inter-attempt delay.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay}
}

// Exponential returns a policy whose delay doubles after each failure,
// capped at max.
func Exponential(attempts int, initial, max time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: initial, MaxDelay: max, Multiplier: 2.0}
}

// Do runs op under the policy. It returns nil on the first success, the
// classified error as soon as it is non-retryable, and the last error wrapped
// with the attempt count once the budget is exhausted. Context cancellation
// is respected while waiting between attempts.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(err error) bool { return !IsFatal(err) }
	}

	delay := p.Delay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(delay):
		}

		if p.Multiplier > 1 {
			delay = time.Duration(float64(delay) * p.Multiplier)
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
