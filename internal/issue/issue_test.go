// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()
	err := NewErrorContext().
		WithOperation("build recipe").
		WithResource("openexr").
		Wrap(errors.New("exit code 1")).
		Build()
	want := "failed to build recipe: openexr: exit code 1"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()
	inner := errors.New("permission denied")
	err := NewErrorContext().
		WithOperation("open cache").
		WithResource("/var/cache/vfxb").
		WithSuggestion("Check directory permissions").
		WithSuggestion("Use --cache-dir to relocate the cache").
		Wrap(inner).
		Build()

	short := err.Format(false)
	if !strings.Contains(short, "• Check directory permissions") {
		t.Errorf("expected suggestions in output, got:\n%s", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Error("non-verbose output must not include the error chain")
	}

	long := err.Format(true)
	if !strings.Contains(long, "Error chain:") || !strings.Contains(long, "1. permission denied") {
		t.Errorf("expected error chain in verbose output, got:\n%s", long)
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("boom")
	err := WrapWithOperation(sentinel, "compute cache key")
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to reach the cause")
	}
	if WrapWithOperation(nil, "anything") != nil {
		t.Error("wrapping nil must yield nil")
	}
}

func TestErrorContext_RequiresOperation(t *testing.T) {
	t.Parallel()
	if got := NewErrorContext().WithResource("x").BuildError(); got != nil {
		t.Errorf("expected nil without operation, got %v", got)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	iss := Lookup(DependencyCycleId)
	if iss == nil {
		t.Fatal("expected catalogued issue")
	}
	if iss.Id() != DependencyCycleId {
		t.Errorf("unexpected id: %d", iss.Id())
	}
	if !strings.Contains(string(iss.MarkdownMsg()), "cycle") {
		t.Error("expected cycle guidance in message")
	}
	if Lookup(Id(9999)) != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestAll(t *testing.T) {
	t.Parallel()
	all := All()
	if len(all) != len(issues) {
		t.Errorf("expected %d issues, got %d", len(issues), len(all))
	}
}

func TestIssueRender(t *testing.T) {
	t.Parallel()
	restore := render
	render = func(in, _ string) (string, error) { return in, nil }
	t.Cleanup(func() { render = restore })

	out, err := condaNotFoundIssue.Render("dark")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "See also:") {
		t.Errorf("expected doc links section, got:\n%s", out)
	}
}
