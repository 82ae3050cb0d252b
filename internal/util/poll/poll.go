// Package poll implements the readiness poller: bounded, side-effect-free
// observation of external state that has not yet converged.
//
// Polling differs from retrying. A retry repeats an action that may fail for
// transient reasons; a poll repeats an observation of state until it becomes
// true. Cloud provisioning APIs routinely return "accepted" long before the
// resource is functionally usable, so "created" and "ready" are distinct
// states everywhere in this workflow.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
)

// Predicate observes external state and reports whether it is ready.
// Returning a non-nil error aborts the poll immediately; transient
// observation failures should be swallowed and reported as not ready.
type Predicate func(ctx context.Context) (bool, error)

// Until polls predicate every interval until it reports ready, the attempt
// budget is exhausted, or ctx is done. The first attempt runs immediately.
// On exhaustion it returns a *provisioning.ReadinessTimeoutError carrying
// the attempt count and elapsed time.
func Until(ctx context.Context, target string, interval time.Duration, maxAttempts int, predicate Predicate) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	start := time.Now()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ready, err := predicate(ctx)
		if err != nil {
			return fmt.Errorf("polling %s: %w", target, err)
		}
		if ready {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("polling %s: %w", target, ctx.Err())
		case <-time.After(interval):
		}
	}

	return &provisioning.ReadinessTimeoutError{
		Target:   target,
		Attempts: maxAttempts,
		Elapsed:  time.Since(start),
	}
}
