// SPDX-License-Identifier: MPL-2.0

// Package dag provides the recipe dependency graph and build-order resolution.
// Nodes are recipe names; an edge from a recipe to a dependency means the
// dependency must be built first.
package dag

import (
	"fmt"
	"sort"
	"strings"
)

type (
	// CycleError indicates that the graph contains a dependency cycle,
	// preventing a valid build order.
	CycleError struct {
		// Cycle contains the nodes forming the cycle, in traversal order,
		// starting and ending at the same node.
		Cycle []string
	}

	// Graph is a directed dependency graph over recipe names.
	// Dependencies are iterated in lexicographic order so that resolution
	// output is reproducible across runs.
	Graph struct {
		// deps maps each node to its dependency names.
		deps map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}

	color uint8
)

const (
	colorWhite color = iota // not yet visited
	colorGrey               // on the current recursion stack
	colorBlack              // fully processed
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		deps:    make(map[string][]string),
		nodeSet: make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddDependency records that node depends on dep, i.e. dep must be built
// before node. Both nodes are implicitly added if they don't exist.
// Duplicate edges are ignored.
func (g *Graph) AddDependency(node, dep string) {
	g.AddNode(node)
	g.AddNode(dep)
	for _, existing := range g.deps[node] {
		if existing == dep {
			return
		}
	}
	g.deps[node] = append(g.deps[node], dep)
}

// Has reports whether name is a node in the graph.
func (g *Graph) Has(name string) bool {
	return g.nodeSet[name]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Dependencies returns the dependencies of node in lexicographic order.
func (g *Graph) Dependencies(node string) []string {
	deps := make([]string, len(g.deps[node]))
	copy(deps, g.deps[node])
	sort.Strings(deps)
	return deps
}

// ResolveOrder returns a build order for the given targets: a sequence in
// which every known recipe appears strictly after all of its dependencies.
// If targets is empty, all known nodes are targets. Target names unknown to
// the graph are kept in the output so the caller can report them individually
// rather than aborting the whole run.
//
// Traversal is a depth-first post-order walk: targets in input order, each
// node's dependencies in lexicographic order. Returns CycleError if the
// reachable subgraph contains a cycle.
func (g *Graph) ResolveOrder(targets []string) ([]string, error) {
	if len(targets) == 0 {
		targets = g.nodes
	}

	colors := make(map[string]color, len(g.nodes))
	var stack []string
	var order []string

	var visit func(node string) error
	visit = func(node string) error {
		switch colors[node] {
		case colorBlack:
			return nil
		case colorGrey:
			return cycleFrom(stack, node)
		}
		colors[node] = colorGrey
		stack = append(stack, node)
		for _, dep := range g.Dependencies(node) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		colors[node] = colorBlack
		order = append(order, node)
		return nil
	}

	for _, target := range targets {
		if err := visit(target); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cycleFrom extracts the cycle path from the recursion stack, from the first
// occurrence of node through the stack top and back to node.
func cycleFrom(stack []string, node string) *CycleError {
	start := 0
	for i, name := range stack {
		if name == node {
			start = i
			break
		}
	}
	cycle := append([]string{}, stack[start:]...)
	cycle = append(cycle, node)
	return &CycleError{Cycle: cycle}
}
