// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestResolveOrder_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.ResolveOrder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestResolveOrder_SingleNode(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("base")
	order, err := g.ResolveOrder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"base"}) {
		t.Errorf("expected [base], got %v", order)
	}
}

func TestResolveOrder_DependencyBeforeDependent(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("base")
	g.AddNode("lib")
	g.AddDependency("lib", "base")

	// base must come first regardless of target order.
	for _, targets := range [][]string{{"lib", "base"}, {"base", "lib"}} {
		order, err := g.ResolveOrder(targets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(order, []string{"base", "lib"}) {
			t.Errorf("targets %v: expected [base lib], got %v", targets, order)
		}
	}
}

func TestResolveOrder_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	// top depends on left and right, both depend on bottom.
	g.AddDependency("left", "bottom")
	g.AddDependency("right", "bottom")
	g.AddDependency("top", "left")
	g.AddDependency("top", "right")

	order, err := g.ResolveOrder([]string{"top"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 nodes, got %d: %v", len(order), order)
	}
	if order[0] != "bottom" {
		t.Errorf("expected bottom first, got %v", order)
	}
	if order[len(order)-1] != "top" {
		t.Errorf("expected top last, got %v", order)
	}
}

func TestResolveOrder_TopologicalValidity(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddDependency("usd", "tbb")
	g.AddDependency("usd", "boost")
	g.AddDependency("boost", "zlib")
	g.AddDependency("tbb", "zlib")
	g.AddDependency("openexr", "zlib")
	g.AddNode("standalone")

	order, err := g.ResolveOrder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	for _, node := range g.Nodes() {
		for _, dep := range g.Dependencies(node) {
			if pos[dep] >= pos[node] {
				t.Errorf("%s appears before its dependency %s: %v", node, dep, order)
			}
		}
	}
}

func TestResolveOrder_Idempotent(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddDependency("usd", "boost")
	g.AddDependency("usd", "tbb")
	g.AddDependency("boost", "zlib")

	first, err := g.ResolveOrder([]string{"usd", "boost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := g.ResolveOrder([]string{"usd", "boost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(first, second) {
		t.Errorf("orders differ: %v vs %v", first, second)
	}
}

func TestResolveOrder_TargetSubset(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddDependency("lib", "base")
	g.AddNode("unrelated")

	order, err := g.ResolveOrder([]string{"lib"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"base", "lib"}) {
		t.Errorf("expected [base lib], got %v", order)
	}
}

func TestResolveOrder_UnknownTargetKept(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("base")

	order, err := g.ResolveOrder([]string{"missing", "base"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"missing", "base"}) {
		t.Errorf("expected unknown target kept in order, got %v", order)
	}
}

func TestResolveOrder_SimpleCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")

	_, err := g.ResolveOrder(nil)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Cycle) < 3 {
		t.Errorf("expected cycle path with closing node, got %v", cycleErr.Cycle)
	}
	if cycleErr.Cycle[0] != cycleErr.Cycle[len(cycleErr.Cycle)-1] {
		t.Errorf("cycle should start and end at the same node: %v", cycleErr.Cycle)
	}
}

func TestResolveOrder_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddDependency("a", "a")

	_, err := g.ResolveOrder(nil)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestAddDependency_Duplicate(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddDependency("lib", "base")
	g.AddDependency("lib", "base")
	if deps := g.Dependencies("lib"); !slices.Equal(deps, []string{"base"}) {
		t.Errorf("expected single dependency, got %v", deps)
	}
}
