// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/manifest"
	"github.com/vfxbootstrap/vfxb/internal/recipe"
)

var validateCmd = &cobra.Command{
	Use:   "validate [recipe...]",
	Short: "Validate recipes without building them",
	Long: `Check the named recipes (or all recipes when none are given): the
build.sh script must parse as bash, declared dependencies on local
recipes must resolve, and a package.yaml next to the recipe, if
present, must pass manifest schema validation.`,
	RunE: func(_ *cobra.Command, args []string) error {
		set, err := loadRecipes()
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			names = set.Names()
		}

		failures := 0
		for _, name := range names {
			r, ok := set.Get(name)
			if !ok {
				fmt.Printf("%s %s: not found in %s\n", ErrorStyle.Render("✗"), name, set.Root())
				failures++
				continue
			}

			var problems []string
			if err := recipe.LintBuildScript(r.Dir); err != nil {
				problems = append(problems, err.Error())
			}
			for _, dep := range r.Depends {
				if !set.Has(dep) {
					problems = append(problems, fmt.Sprintf("dependency %q is not a local recipe", dep))
				}
			}
			manifestPath := filepath.Join(r.Dir, manifest.FileName)
			if _, err := os.Stat(manifestPath); err == nil {
				if _, err := manifest.Load(manifestPath); err != nil {
					problems = append(problems, err.Error())
				}
			}

			if len(problems) > 0 {
				fmt.Printf("%s %s: %s\n", ErrorStyle.Render("✗"), name, strings.Join(problems, "; "))
				failures++
			} else {
				fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), name)
			}
		}

		if failures > 0 {
			return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d recipes failed validation", failures, len(names))}
		}
		return nil
	},
}
