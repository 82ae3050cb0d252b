// Package dag provides the directed acyclic graph underlying the
// provisioning orchestrator. Nodes are units of provisioning work,
// edges are explicit dependency declarations.
package dag

import (
	"fmt"
	"sort"
	"strings"
)

type node struct {
	id        string
	order     int
	dependsOn map[string]struct{}
}

// Graph is a DAG of string-identified nodes. It rejects duplicate nodes,
// unresolved dependency references, self references, and cycles at
// construction time, so execution can assume a valid partial order.
type Graph struct {
	nodes map[string]*node
	next  int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph contains a cycle: %s", strings.Join(e.Path, " -> "))
}

// AddNode declares a node. Node identifiers must be unique.
func (g *Graph) AddNode(id string) error {
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node %q already declared", id)
	}
	g.nodes[id] = &node{
		id:        id,
		order:     g.next,
		dependsOn: make(map[string]struct{}),
	}
	g.next++
	return nil
}

// AddDependency declares that id runs only after every node in deps.
// Both sides must already be declared; a dependency that would close a
// cycle is rejected.
func (g *Graph) AddDependency(id string, deps ...string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("node %q not declared", id)
	}
	for _, dep := range deps {
		if dep == id {
			return fmt.Errorf("node %q cannot depend on itself", id)
		}
		if _, ok := g.nodes[dep]; !ok {
			return fmt.Errorf("node %q depends on undeclared node %q", id, dep)
		}
		n.dependsOn[dep] = struct{}{}
	}
	if path, cyclic := g.findCycle(); cyclic {
		for _, dep := range deps {
			delete(n.dependsOn, dep)
		}
		return &CycleError{Path: path}
	}
	return nil
}

// Len returns the number of declared nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Has reports whether id is declared.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all node identifiers in declaration order.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return g.nodes[ids[i]].order < g.nodes[ids[j]].order
	})
	return ids
}

// DependenciesOf returns the direct predecessors of id.
func (g *Graph) DependenciesOf(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(n.dependsOn))
	for dep := range n.dependsOn {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// DependentsOf returns the direct successors of id.
func (g *Graph) DependentsOf(id string) []string {
	var out []string
	for _, n := range g.nodes {
		if _, ok := n.dependsOn[id]; ok {
			out = append(out, n.id)
		}
	}
	sort.Strings(out)
	return out
}

// TransitiveDependentsOf returns every node reachable from id via
// dependency edges, i.e. all nodes that must not run if id fails.
func (g *Graph) TransitiveDependentsOf(id string) []string {
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(cur string) {
		for _, dep := range g.DependentsOf(cur) {
			if !seen[dep] {
				seen[dep] = true
				visit(dep)
			}
		}
	}
	visit(id)

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// TopologicalSort returns the nodes in an order where every node appears
// after all of its dependencies. Among ready nodes, declaration order wins,
// making the result deterministic.
func (g *Graph) TopologicalSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.dependsOn)
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return g.nodes[ready[i]].order < g.nodes[ready[j]].order
		})
		id := ready[0]
		ready = ready[1:]
		sorted = append(sorted, id)

		for _, dep := range g.DependentsOf(id) {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		path, _ := g.findCycle()
		return nil, &CycleError{Path: path}
	}
	return sorted, nil
}

// findCycle runs a depth-first search and returns one cycle path if any.
func (g *Graph) findCycle() ([]string, bool) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(string) bool
	visit = func(id string) bool {
		state[id] = visiting
		stack = append(stack, id)
		for dep := range g.nodes[id].dependsOn {
			switch state[dep] {
			case visiting:
				// Found it: slice the stack from dep onward.
				for i, s := range stack {
					if s == dep {
						cycle = append(append([]string{}, stack[i:]...), dep)
						break
					}
				}
				return true
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}

	for id := range g.nodes {
		if state[id] == unvisited && visit(id) {
			return cycle, true
		}
	}
	return nil, false
}
