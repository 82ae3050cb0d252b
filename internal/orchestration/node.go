// Package orchestration schedules the provisioning workflow: a dependency
// graph of idempotent nodes executed with bounded parallelism, halting on
// the first failure while in-flight work completes, and recording a
// per-node audit of what ran, what was skipped, and what was blocked.
package orchestration

import (
	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
)

// Status is the terminal or in-progress state of one graph node.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"

	// StatusSkipped means the node's guard evaluated false. A skipped node
	// satisfies its dependents.
	StatusSkipped Status = "skipped"

	// StatusDependencyFailed means the node never ran because something it
	// requires failed.
	StatusDependencyFailed Status = "dependency-failed"
)

// Node is one unit of work in the workflow graph.
type Node struct {
	// ID is the unique node name, used in dependency edges and audit output.
	ID string

	// Requires lists the IDs this node depends on.
	Requires []string

	// Guard, when set, is evaluated once before scheduling. A false result
	// skips the node without running it.
	Guard func(cfg *config.Config) bool

	// Run performs the node's work. It must be idempotent: re-running a
	// node against already-provisioned state converges instead of failing.
	Run func(pctx *provisioning.Context) error
}
