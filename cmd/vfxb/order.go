// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/issue"
)

var orderCmd = &cobra.Command{
	Use:   "order [recipe...]",
	Short: "Show the resolved build order",
	Long: `Resolve and print the dependency-ordered build plan for the named
recipes (or all recipes when none are given), without building anything.`,
	RunE: func(_ *cobra.Command, args []string) error {
		set, err := loadRecipes()
		if err != nil {
			return err
		}

		order, err := set.Graph().ResolveOrder(args)
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("resolve build order").
				WithSuggestion("Run 'vfxb info <name>' on the recipes in the reported cycle").
				Wrap(err).
				BuildError()
		}

		fmt.Println(TitleStyle.Render("Build order:"))
		for i, name := range order {
			fmt.Printf("  %2d. %s\n", i+1, CmdStyle.Render(name))
		}
		return nil
	},
}
