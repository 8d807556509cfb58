// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/recipe"
)

var infoCmd = &cobra.Command{
	Use:   "info <recipe>",
	Short: "Show details of one recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		set, err := loadRecipes()
		if err != nil {
			return err
		}

		name := args[0]
		r, ok := set.Get(name)
		if !ok {
			return &ExitError{Code: 1, Err: fmt.Errorf("recipe %q not found in %s", name, set.Root())}
		}

		fmt.Println(TitleStyle.Render(name))
		fmt.Printf("  %s %s\n", SubtitleStyle.Render("directory:"), r.Dir)
		fmt.Printf("  %s %s\n", SubtitleStyle.Render("metadata:"), filepath.Join(r.Dir, recipe.MetadataFileName))
		if len(r.Depends) > 0 {
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("depends on:"), strings.Join(r.Depends, ", "))
		} else {
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("depends on:"), "(no local recipes)")
		}

		if err := recipe.LintBuildScript(r.Dir); err != nil {
			fmt.Printf("  %s %v\n", WarningStyle.Render("build script:"), err)
		}
		return nil
	},
}
