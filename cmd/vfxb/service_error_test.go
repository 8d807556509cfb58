// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/vfxbootstrap/vfxb/internal/config"
	"github.com/vfxbootstrap/vfxb/internal/container"
	"github.com/vfxbootstrap/vfxb/internal/dag"
	"github.com/vfxbootstrap/vfxb/internal/issue"
	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

func TestClassifyIssue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{
			name: "dependency cycle maps to cycle issue",
			err:  &dag.CycleError{Cycle: []string{"a", "b", "a"}},
			want: issue.DependencyCycleId,
		},
		{
			name: "wrapped cycle preserves classification",
			err:  fmt.Errorf("resolve build order: %w", &dag.CycleError{Cycle: []string{"a", "a"}}),
			want: issue.DependencyCycleId,
		},
		{
			name: "missing container engine maps to engine issue",
			err:  &container.ErrEngineNotAvailable{Engine: "podman", Reason: "not installed"},
			want: issue.ContainerEngineNotFoundId,
		},
		{
			name: "missing conda binary maps to conda issue",
			err:  fmt.Errorf("locate conda: %w", exec.ErrNotFound),
			want: issue.CondaNotFoundId,
		},
		{
			name: "invalid configuration maps to config issue",
			err:  fmt.Errorf("load config: %w", config.ErrInvalidConfig),
			want: issue.ConfigLoadFailedId,
		},
		{
			name: "invalid manifest maps to manifest issue",
			err:  fmt.Errorf("load package manifest: %w", manifest.ErrInvalid),
			want: issue.ManifestInvalidId,
		},
		{
			name: "recipe discovery failure maps to recipes dir issue",
			err: issue.NewErrorContext().
				WithOperation("discover recipes").
				WithResource("/missing/recipes").
				Wrap(errors.New("no such directory")).
				BuildError(),
			want: issue.RecipesDirNotFoundId,
		},
		{
			name: "uncatalogued error stays unclassified",
			err:  errors.New("disk on fire"),
			want: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyIssue(tc.err); got != tc.want {
				t.Errorf("classifyIssue() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRenderIssueHelp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderIssueHelp(&buf, &dag.CycleError{Cycle: []string{"a", "b", "a"}})
	if !strings.Contains(buf.String(), "cycle") {
		t.Errorf("expected rendered cycle guidance, got %q", buf.String())
	}

	buf.Reset()
	renderIssueHelp(&buf, errors.New("disk on fire"))
	if buf.Len() != 0 {
		t.Errorf("expected no guidance for uncatalogued error, got %q", buf.String())
	}
}
