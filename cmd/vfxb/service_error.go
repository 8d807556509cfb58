// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/vfxbootstrap/vfxb/internal/config"
	"github.com/vfxbootstrap/vfxb/internal/container"
	"github.com/vfxbootstrap/vfxb/internal/dag"
	"github.com/vfxbootstrap/vfxb/internal/issue"
	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

// classifyIssue maps a failure to its issue catalogue ID, or 0 when the
// catalogue has no guidance for it.
func classifyIssue(err error) issue.Id {
	var (
		cycleErr  *dag.CycleError
		engineErr *container.ErrEngineNotAvailable
		ae        *issue.ActionableError
	)
	switch {
	case errors.As(err, &cycleErr):
		return issue.DependencyCycleId
	case errors.As(err, &engineErr):
		return issue.ContainerEngineNotFoundId
	case errors.Is(err, exec.ErrNotFound):
		return issue.CondaNotFoundId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, manifest.ErrInvalid):
		return issue.ManifestInvalidId
	}
	if errors.As(err, &ae) && ae.Operation == "discover recipes" {
		return issue.RecipesDirNotFoundId
	}
	return 0
}

// renderIssueHelp writes the catalogued guidance for err to w, after the
// error itself has been reported. Errors the catalogue does not cover
// produce no output.
func renderIssueHelp(w io.Writer, err error) {
	id := classifyIssue(err)
	if id == 0 {
		return
	}
	entry := issue.Lookup(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render("dark")
	if renderErr != nil {
		log.Warn("could not render issue guidance", "issue", int(id), "err", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}
