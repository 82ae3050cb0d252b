// Package cmdexec runs external idempotent commands under a retry policy.
//
// Every command handed to Runner must be safe to repeat (apply semantics,
// not create-only); that is a precondition on the caller, not something the
// runner guarantees.
package cmdexec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
	"github.com/stocktrader-ops/tradectl/internal/util/retry"
)

// Runner executes external commands with bounded retries.
type Runner struct {
	policy retry.Policy

	// run is swappable for tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewRunner creates a runner with the given retry policy.
func NewRunner(policy retry.Policy) *Runner {
	return &Runner{
		policy: policy,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			var combined bytes.Buffer
			cmd.Stdout = &combined
			cmd.Stderr = &combined
			err := cmd.Run()
			return combined.Bytes(), err
		},
	}
}

// Run executes the command, retrying per the policy. On final failure it
// returns a *provisioning.CommandFailedError carrying the last observed
// output.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var output []byte
	var lastErr error
	attempts := 0

	err := r.policy.Do(ctx, func() error {
		attempts++
		out, err := r.run(ctx, name, args...)
		output = out
		lastErr = err
		return err
	})
	if err == nil {
		return output, nil
	}

	return output, &provisioning.CommandFailedError{
		Command:  strings.Join(append([]string{name}, args...), " "),
		Attempts: attempts,
		Output:   strings.TrimSpace(string(output)),
		Err:      lastErr,
	}
}

// LookPath reports whether a tool is present on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
