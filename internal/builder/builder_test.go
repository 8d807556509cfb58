// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/vfxbootstrap/vfxb/internal/cache"
	"github.com/vfxbootstrap/vfxb/internal/dag"
	"github.com/vfxbootstrap/vfxb/internal/recipe"
)

// fakeInvoker satisfies Invoker without spawning processes. It records the
// recipes invoked, optionally fails selected recipes, and can run a hook to
// simulate output production.
type fakeInvoker struct {
	calls    []string
	failOn   map[string]bool
	onInvoke func(inv Invocation)
}

func (f *fakeInvoker) Invoke(_ context.Context, inv Invocation) (int, error) {
	f.calls = append(f.calls, inv.Recipe)
	if f.onInvoke != nil {
		f.onInvoke(inv)
	}
	if f.failOn[inv.Recipe] {
		return 1, nil
	}
	return 0, nil
}

func newRecipeSet(t *testing.T, metas map[string]string) *recipe.Set {
	t.Helper()
	root := t.TempDir()
	for name, meta := range metas {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, recipe.MetadataFileName), []byte(meta), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	set, err := recipe.Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

// writeFakeOutput makes the fake invoker behave like a real build by placing
// a package file in the shared output directory.
func writeFakeOutput(t *testing.T) func(inv Invocation) {
	t.Helper()
	return func(inv Invocation) {
		dir := filepath.Join(inv.OutputDir, "linux-64")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		name := inv.Recipe + "-1.0-0.conda"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(inv.Recipe), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newOrchestrator(t *testing.T, set *recipe.Set, store *cache.Store, inv Invoker) *Orchestrator {
	t.Helper()
	o, err := New(Options{
		Recipes:   set,
		Cache:     store,
		Invoker:   inv,
		OutputDir: t.TempDir(),
		Platform:  "vfx2024",
		Channels:  []string{"conda-forge"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestBuild_NotFound(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{"base": "package:\n  name: base\n"})
	o := newOrchestrator(t, set, nil, &fakeInvoker{})

	result := o.Build(context.Background(), "missing")
	if result.Success {
		t.Error("expected failure for unknown recipe")
	}
	if !strings.Contains(result.Err, "not found") {
		t.Errorf("expected not-found error, got %q", result.Err)
	}
}

func TestBuild_Success(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{"base": "package:\n  name: base\n"})
	inv := &fakeInvoker{onInvoke: writeFakeOutput(t)}
	o := newOrchestrator(t, set, nil, inv)

	result := o.Build(context.Background(), "base")
	if !result.Success || result.Cached {
		t.Fatalf("expected built result, got %+v", result)
	}
	if len(result.Outputs) != 1 || !strings.HasSuffix(result.Outputs[0], "base-1.0-0.conda") {
		t.Errorf("expected discovered output, got %v", result.Outputs)
	}
	if result.Status() != "built" {
		t.Errorf("expected status built, got %s", result.Status())
	}
}

func TestBuild_CachedShortCircuit(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{"base": "package:\n  name: base\n"})
	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inv := &fakeInvoker{onInvoke: writeFakeOutput(t)}
	o := newOrchestrator(t, set, store, inv)

	first := o.Build(context.Background(), "base")
	if !first.Success || first.Cached {
		t.Fatalf("expected fresh build, got %+v", first)
	}
	if len(inv.calls) != 1 {
		t.Fatalf("expected one invocation, got %v", inv.calls)
	}

	second := o.Build(context.Background(), "base")
	if !second.Success || !second.Cached {
		t.Fatalf("expected cached result, got %+v", second)
	}
	if len(inv.calls) != 1 {
		t.Errorf("expected no further invocations, got %v", inv.calls)
	}
	if len(second.Outputs) != 1 {
		t.Errorf("expected cached artifact paths, got %v", second.Outputs)
	}
}

func TestBuildAll_DependencyOrder(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{
		"base": "package:\n  name: base\n",
		"lib":  "requirements:\n  host:\n    - base\n",
	})
	inv := &fakeInvoker{}
	o := newOrchestrator(t, set, nil, inv)

	results, err := o.BuildAll(context.Background(), []string{"lib", "base"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !slices.Equal(inv.calls, []string{"base", "lib"}) {
		t.Errorf("expected base built before lib, got %v", inv.calls)
	}
}

func TestBuildAll_StopOnFirstFailure(t *testing.T) {
	t.Parallel()
	metas := map[string]string{
		"a": "package:\n  name: a\n",
		"b": "package:\n  name: b\n",
		"c": "package:\n  name: c\n",
	}

	t.Run("stop", func(t *testing.T) {
		t.Parallel()
		inv := &fakeInvoker{failOn: map[string]bool{"b": true}}
		o := newOrchestrator(t, newRecipeSet(t, metas), nil, inv)
		results, err := o.BuildAll(context.Background(), []string{"a", "b", "c"}, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected results for [a b] only, got %d", len(results))
		}
		if results[1].Success {
			t.Error("expected b to fail")
		}
	})

	t.Run("continue", func(t *testing.T) {
		t.Parallel()
		inv := &fakeInvoker{failOn: map[string]bool{"b": true}}
		o := newOrchestrator(t, newRecipeSet(t, metas), nil, inv)
		results, err := o.BuildAll(context.Background(), []string{"a", "b", "c"}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected results for all recipes, got %d", len(results))
		}
		summary := Summarize(results)
		if summary.Succeeded != 2 || len(summary.Failed) != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})
}

func TestBuildAll_CycleError(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{
		"a": "requirements:\n  host:\n    - b\n",
		"b": "requirements:\n  host:\n    - a\n",
	})
	o := newOrchestrator(t, set, nil, &fakeInvoker{})

	_, err := o.BuildAll(context.Background(), nil, false)
	var cycleErr *dag.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *dag.CycleError, got %T: %v", err, err)
	}
}

func TestBuild_CacheKeyCyclePath(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{
		"a": "requirements:\n  host:\n    - b\n",
		"b": "requirements:\n  host:\n    - a\n",
	})
	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	o := newOrchestrator(t, set, store, &fakeInvoker{})

	result := o.Build(context.Background(), "a")
	if result.Success {
		t.Fatal("expected cyclic recipe declarations to fail the build")
	}
	// The failure message carries the full cycle path, not just one name.
	if !strings.Contains(result.Err, "a -> b -> a") {
		t.Errorf("expected cycle path in %q", result.Err)
	}
}

func TestBuildAll_Cancellation(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{"base": "package:\n  name: base\n"})
	inv := &fakeInvoker{}
	o := newOrchestrator(t, set, nil, inv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := o.BuildAll(ctx, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no builds after cancellation, got %v", results)
	}
	if len(inv.calls) != 0 {
		t.Errorf("expected no invocations, got %v", inv.calls)
	}
}

func TestBuildAll_UnknownTargetReported(t *testing.T) {
	t.Parallel()
	set := newRecipeSet(t, map[string]string{"base": "package:\n  name: base\n"})
	o := newOrchestrator(t, set, nil, &fakeInvoker{})

	results, err := o.BuildAll(context.Background(), []string{"missing"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected single failed result, got %+v", results)
	}
}

func TestCondaInvoker_Args(t *testing.T) {
	t.Parallel()
	inv := NewCondaInvoker()
	args := inv.Args(Invocation{
		RecipeDir:         "/recipes/zlib",
		OutputDir:         "/builds",
		Channels:          []string{"conda-forge", "local"},
		VariantConfigPath: "/recipes/conda_build_config.yaml",
	})
	want := []string{
		"build", "/recipes/zlib",
		"-c", "conda-forge",
		"-c", "local",
		"-c", "/builds",
		"--override-channels",
		"--output-folder", "/builds",
		"--variant-config-files", "/recipes/conda_build_config.yaml",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args mismatch:\n got %v\nwant %v", args, want)
	}
}

func TestCondaInvoker_Preflight(t *testing.T) {
	t.Parallel()
	binary := filepath.Join(t.TempDir(), "conda")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := NewCondaInvoker(WithCondaBinary(binary)).Preflight(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := NewCondaInvoker(WithCondaBinary("definitely-not-a-real-conda")).Preflight()
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("expected exec.ErrNotFound, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	results := []BuildResult{
		{Recipe: "a", Success: true, Cached: true},
		{Recipe: "b", Success: true},
		{Recipe: "c", Err: "boom"},
	}
	s := Summarize(results)
	if s.Total != 3 || s.Succeeded != 2 || s.Cached != 1 || len(s.Failed) != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Failed[0].Recipe != "c" {
		t.Errorf("expected c failed, got %v", s.Failed)
	}
}
