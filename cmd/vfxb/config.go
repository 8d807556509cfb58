// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Print the effective configuration as TOML, after merging defaults,
the config file, environment variables and command-line flags.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			rendered, err := cfg.Render()
			if err != nil {
				return err
			}
			fmt.Print(rendered)
			return nil
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(_ *cobra.Command, _ []string) error {
			if cfgFile != "" {
				fmt.Println(cfgFile)
				return nil
			}
			fmt.Println(config.DefaultConfigFilePath())
			return nil
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the built-in defaults",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := cfgFile
			if path == "" {
				path = config.DefaultConfigFilePath()
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Printf("%s wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}
