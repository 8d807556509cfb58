// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered recipes",
	RunE: func(_ *cobra.Command, _ []string) error {
		set, err := loadRecipes()
		if err != nil {
			return err
		}

		names := set.Names()
		fmt.Printf("%s (%d):\n", TitleStyle.Render("Available recipes"), len(names))
		for _, name := range names {
			r, _ := set.Get(name)
			if len(r.Depends) > 0 {
				fmt.Printf("  %s %s\n", CmdStyle.Render(name),
					SubtitleStyle.Render("(depends on: "+strings.Join(r.Depends, ", ")+")"))
			} else {
				fmt.Printf("  %s\n", CmdStyle.Render(name))
			}
		}
		return nil
	},
}
