package provisioning

import (
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/util/retry"
)

// InvalidConfigurationError indicates the supplied configuration failed
// validation before any external call was attempted. Never retried. Defined
// in internal/config (where validation constructs it) and aliased here so the
// full error taxonomy remains addressable from this package.
type InvalidConfigurationError = config.InvalidConfigurationError

// NameCollisionError indicates a to-be-created resource name is already taken
// by a resource we do not own. The operator must pick a different name.
type NameCollisionError struct {
	Resource string
	Name     string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("%s name %q is not available, choose a different name", e.Resource, e.Name)
}

// PermissionDeniedError indicates the credential lacks rights for an
// operation. Never retried; surfaced to the operator directly.
type PermissionDeniedError struct {
	Resource string
	Err      error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s: %v", e.Resource, e.Err)
}

func (e *PermissionDeniedError) Unwrap() error { return e.Err }

// TransientProviderError indicates a provider-side failure that is expected
// to clear on its own (throttling, 5xx, network blip). Retryable.
type TransientProviderError struct {
	Resource string
	Err      error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("transient provider error for %s: %v", e.Resource, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// ReadinessTimeoutError indicates a readiness poll exhausted its attempt
// budget without the observed state converging.
type ReadinessTimeoutError struct {
	Target   string
	Attempts int
	Elapsed  time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("%s not ready after %d attempts (%v elapsed)",
		e.Target, e.Attempts, e.Elapsed.Round(time.Second))
}

// CommandFailedError indicates an external command exhausted its retry budget.
// Output carries the last observed error output for diagnosis.
type CommandFailedError struct {
	Command  string
	Attempts int
	Output   string
	Err      error
}

func (e *CommandFailedError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("command %q failed after %d attempts: %v: %s",
			e.Command, e.Attempts, e.Err, e.Output)
	}
	return fmt.Sprintf("command %q failed after %d attempts: %v", e.Command, e.Attempts, e.Err)
}

func (e *CommandFailedError) Unwrap() error { return e.Err }

// DependencyFailedError marks a node that never ran because a transitive
// predecessor failed. Dependency names the originally failed node; Cause
// carries its terminal error.
type DependencyFailedError struct {
	Node       string
	Dependency string
	Cause      error
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("node %q not run: dependency %q failed", e.Node, e.Dependency)
}

func (e *DependencyFailedError) Unwrap() error { return e.Cause }

// StageFailedError wraps the terminal error of a node after its retry policy
// was exhausted or a fatal error class surfaced.
type StageFailedError struct {
	Node string
	Err  error
}

func (e *StageFailedError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Node, e.Err)
}

func (e *StageFailedError) Unwrap() error { return e.Err }

// IsFatal reports whether err belongs to an error class that must never be
// retried: invalid input, name collisions, missing permissions, or anything
// explicitly marked fatal.
func IsFatal(err error) bool {
	var (
		invalid    *InvalidConfigurationError
		collision  *NameCollisionError
		permission *PermissionDeniedError
	)
	if errors.As(err, &invalid) || errors.As(err, &collision) || errors.As(err, &permission) {
		return true
	}
	return retry.IsFatal(err)
}

// Retryable is the classification function handed to retry policies for
// provider-facing operations. Everything not known to be fatal is assumed
// transient.
func Retryable(err error) bool {
	return !IsFatal(err)
}

// ClassifyProviderError maps an Azure control-plane error onto the workflow
// taxonomy. Unrecognized errors pass through unchanged and are treated as
// transient by Retryable.
func ClassifyProviderError(resource string, err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch {
	case respErr.StatusCode == 401 || respErr.StatusCode == 403:
		return &PermissionDeniedError{Resource: resource, Err: err}
	case respErr.StatusCode == 409 || respErr.ErrorCode == "NameNotAvailable" || respErr.ErrorCode == "VaultAlreadyExists":
		return &NameCollisionError{Resource: resource, Name: nameFromResource(resource)}
	case respErr.StatusCode == 429 || respErr.StatusCode >= 500:
		return &TransientProviderError{Resource: resource, Err: err}
	case respErr.StatusCode == 400:
		return retry.Fatal(err)
	}
	return err
}

// nameFromResource extracts the trailing name from a "kind/name" label.
func nameFromResource(resource string) string {
	for i := len(resource) - 1; i >= 0; i-- {
		if resource[i] == '/' {
			return resource[i+1:]
		}
	}
	return resource
}
