package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stocktrader-ops/tradectl/internal/config"
	"github.com/stocktrader-ops/tradectl/internal/dag"
	"github.com/stocktrader-ops/tradectl/internal/provisioning"
)

// Executor runs a node graph with bounded parallelism.
//
// Scheduling is indegree driven: a node becomes ready when every node it
// requires is succeeded or skipped. Under the default halt-on-failure
// policy the first failure stops new work; nodes already running finish,
// transitive dependents of the failure are recorded dependency-failed, and
// everything else stays pending. With halt disabled, independent subtrees
// keep executing and only the failure's dependents are blocked.
type Executor struct {
	graph       *dag.Graph
	nodes       map[string]*Node
	parallelism int
	halt        bool
}

// NewExecutor builds and validates the graph for the given nodes. Edge
// declaration errors (unknown or cyclic dependencies) surface here, before
// anything runs.
func NewExecutor(nodes []*Node, parallelism int, haltOnFailure bool) (*Executor, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	g := dag.New()
	byID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		if err := g.AddNode(n.ID); err != nil {
			return nil, err
		}
		byID[n.ID] = n
	}
	for _, n := range nodes {
		if len(n.Requires) > 0 {
			if err := g.AddDependency(n.ID, n.Requires...); err != nil {
				return nil, err
			}
		}
	}
	if _, err := g.TopologicalSort(); err != nil {
		return nil, err
	}

	return &Executor{graph: g, nodes: byID, parallelism: parallelism, halt: haltOnFailure}, nil
}

// PlanStep is one entry of the dry-run execution plan.
type PlanStep struct {
	ID       string
	Requires []string
	Skipped  bool
}

// Plan returns the topological execution order with guard-pruned nodes
// annotated, without running anything.
func (e *Executor) Plan(cfg *config.Config) ([]PlanStep, error) {
	order, err := e.graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	steps := make([]PlanStep, 0, len(order))
	for _, id := range order {
		n := e.nodes[id]
		steps = append(steps, PlanStep{
			ID:       id,
			Requires: e.graph.DependenciesOf(id),
			Skipped:  n.Guard != nil && !n.Guard(cfg),
		})
	}
	return steps, nil
}

// NodeResult is the terminal record of one node.
type NodeResult struct {
	ID       string
	Status   Status
	Err      error
	Duration time.Duration
}

// Result is the audit of a whole run.
type Result struct {
	// Nodes lists every node in graph declaration order.
	Nodes []NodeResult

	// DeadlineExceeded marks a run cut short by the whole-run timeout,
	// distinct from any node-level failure.
	DeadlineExceeded bool
}

// Succeeded reports whether every node either succeeded or was skipped.
func (r *Result) Succeeded() bool {
	if r.DeadlineExceeded {
		return false
	}
	for _, n := range r.Nodes {
		if n.Status != StatusSucceeded && n.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// FirstFailure returns the first node that failed, or nil.
func (r *Result) FirstFailure() *NodeResult {
	for i := range r.Nodes {
		if r.Nodes[i].Status == StatusFailed {
			return &r.Nodes[i]
		}
	}
	return nil
}

// Status returns the recorded status of a node, or pending if unknown.
func (r *Result) Status(id string) Status {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n.Status
		}
	}
	return StatusPending
}

type completion struct {
	id      string
	err     error
	elapsed time.Duration
}

// Run executes the graph. The returned error summarizes the run outcome;
// the Result carries the full per-node audit either way.
func (e *Executor) Run(pctx *provisioning.Context) (*Result, error) {
	order, err := e.graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]Status, len(order))
	errs := make(map[string]error)
	durations := make(map[string]time.Duration)
	for _, id := range order {
		statuses[id] = StatusPending
	}

	completions := make(chan completion)
	running := 0
	remaining := len(order)
	halted := false
	deadline := false

	depsSatisfied := func(id string) bool {
		for _, dep := range e.graph.DependenciesOf(id) {
			if s := statuses[dep]; s != StatusSucceeded && s != StatusSkipped {
				return false
			}
		}
		return true
	}

	markBlocked := func(id string) {
		for _, dep := range e.graph.TransitiveDependentsOf(id) {
			if statuses[dep] == StatusPending {
				statuses[dep] = StatusDependencyFailed
				errs[dep] = &provisioning.DependencyFailedError{Node: dep, Dependency: id, Cause: errs[id]}
				remaining--
				pctx.Observer.Event(provisioning.Event{
					Type: provisioning.EventNodeBlocked, Node: dep,
					Message: "dependency " + id + " failed",
				})
			}
		}
	}

	start := func(n *Node) {
		statuses[n.ID] = StatusRunning
		running++
		pctx.Observer.Event(provisioning.Event{Type: provisioning.EventNodeStarted, Node: n.ID})
		go func() {
			began := time.Now()
			completions <- completion{id: n.ID, err: n.Run(pctx), elapsed: time.Since(began)}
		}()
	}

	// scheduleReady launches every runnable node up to the parallelism
	// bound and resolves guard skips and blocked nodes without launching.
	scheduleReady := func() {
		progress := true
		for progress {
			progress = false
			for _, id := range order {
				if statuses[id] != StatusPending {
					continue
				}
				if !depsSatisfied(id) {
					continue
				}
				n := e.nodes[id]
				if n.Guard != nil && !n.Guard(pctx.Config) {
					statuses[id] = StatusSkipped
					remaining--
					progress = true
					pctx.Observer.Event(provisioning.Event{Type: provisioning.EventNodeSkipped, Node: id})
					continue
				}
				if halted || running >= e.parallelism {
					continue
				}
				start(n)
			}
		}
	}

	for remaining > 0 {
		if !deadline {
			scheduleReady()
		}
		if running == 0 {
			// Nothing in flight and nothing newly runnable: the run has
			// halted or every remaining node is unreachable.
			break
		}

		select {
		case <-pctx.Done():
			deadline = true
			halted = true
			// Drain in-flight nodes; their contexts are already cancelled.
			for running > 0 {
				c := <-completions
				running--
				remaining--
				e.record(pctx, statuses, errs, durations, c)
			}
		case c := <-completions:
			running--
			remaining--
			e.record(pctx, statuses, errs, durations, c)
			if c.err != nil {
				if e.halt {
					halted = true
				}
				markBlocked(c.id)
			}
		}
	}

	// A run whose surrounding deadline expired is classified as such even
	// when the last completion arrived before the timer fired.
	if errors.Is(pctx.Err(), context.DeadlineExceeded) {
		deadline = true
	}

	// On a halted run, dependents of failures that were never scheduled
	// still need their blocked status recorded.
	for _, id := range order {
		if statuses[id] == StatusFailed {
			markBlocked(id)
		}
	}

	result := &Result{DeadlineExceeded: deadline}
	for _, id := range e.graph.Nodes() {
		result.Nodes = append(result.Nodes, NodeResult{
			ID: id, Status: statuses[id], Err: errs[id], Duration: durations[id],
		})
	}

	return result, e.summarize(pctx, result)
}

func (e *Executor) record(pctx *provisioning.Context, statuses map[string]Status, errs map[string]error, durations map[string]time.Duration, c completion) {
	durations[c.id] = c.elapsed
	if c.err != nil {
		statuses[c.id] = StatusFailed
		errs[c.id] = c.err
		pctx.Observer.Event(provisioning.Event{
			Type: provisioning.EventNodeFailed, Node: c.id, Message: c.err.Error(),
		})
		return
	}
	statuses[c.id] = StatusSucceeded
	pctx.Observer.Event(provisioning.Event{Type: provisioning.EventNodeSucceeded, Node: c.id})
}

func (e *Executor) summarize(pctx *provisioning.Context, result *Result) error {
	if result.DeadlineExceeded {
		pctx.Observer.Event(provisioning.Event{
			Type: provisioning.EventRunFailed, Message: "run deadline exceeded",
		})
		return fmt.Errorf("run deadline exceeded: %w", context.DeadlineExceeded)
	}
	if failure := result.FirstFailure(); failure != nil {
		pctx.Observer.Event(provisioning.Event{
			Type: provisioning.EventRunFailed, Node: failure.ID, Message: failure.Err.Error(),
		})
		return &provisioning.StageFailedError{Node: failure.ID, Err: failure.Err}
	}
	pctx.Observer.Event(provisioning.Event{Type: provisioning.EventRunCompleted})
	return nil
}
