// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/config"
	"github.com/vfxbootstrap/vfxb/internal/container"
	"github.com/vfxbootstrap/vfxb/internal/issue"
)

var (
	shellVolumes []string
	shellWorkdir string

	containerCmd = &cobra.Command{
		Use:   "container",
		Short: "Manage the container build environment",
	}

	containerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show detected container runtime and default image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Detection failure is a reportable status here, not an error.
			engine, _ := container.NewEngine(container.EngineType(cfg.Container.Engine))
			status := container.EngineStatus(cmd.Context(), engine, cfg.Container.Image)

			fmt.Println(TitleStyle.Render("Container runtime"))
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("runtime:"), status.Runtime)
			if status.Available {
				fmt.Printf("  %s %s\n", SubtitleStyle.Render("available:"), SuccessStyle.Render("yes"))
				fmt.Printf("  %s %s\n", SubtitleStyle.Render("version:"), status.Version)
			} else {
				fmt.Printf("  %s %s\n", SubtitleStyle.Render("available:"), ErrorStyle.Render("no"))
			}
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("default image:"), status.DefaultImage)
			return nil
		},
	}

	containerPullCmd = &cobra.Command{
		Use:   "pull [image]",
		Short: "Pull a build image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := requireEngine()
			if err != nil {
				return err
			}
			image := cfg.Container.Image
			if len(args) == 1 {
				image = args[0]
			}
			resolved := container.ResolveImage(image)
			fmt.Printf("Pulling %s with %s...\n", CmdStyle.Render(resolved), engine.Name())
			if err := engine.Pull(cmd.Context(), resolved); err != nil {
				return err
			}
			fmt.Printf("%s pulled %s\n", SuccessStyle.Render("✓"), resolved)
			return nil
		},
	}

	containerShellCmd = &cobra.Command{
		Use:   "shell [image]",
		Short: "Start an interactive shell in a build image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := requireEngine()
			if err != nil {
				return err
			}
			image := cfg.Container.Image
			if len(args) == 1 {
				image = args[0]
			}
			code, err := container.Shell(cmd.Context(), engine, image, shellVolumes, shellWorkdir)
			if err != nil {
				return err
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
)

func init() {
	containerShellCmd.Flags().StringArrayVar(&shellVolumes, "volume", nil, "extra volume mounts (host:container[:mode], repeatable)")
	containerShellCmd.Flags().StringVar(&shellWorkdir, "workdir", "", "working directory inside the container")

	containerCmd.AddCommand(containerStatusCmd)
	containerCmd.AddCommand(containerPullCmd)
	containerCmd.AddCommand(containerShellCmd)
}

func requireEngine() (container.Engine, error) {
	engine, err := container.NewEngine(container.EngineType(cfg.Container.Engine))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("select container engine").
			WithSuggestion("Install podman or docker").
			WithSuggestion("Or set [container] engine in " + config.DefaultConfigFilePath()).
			Wrap(err).
			BuildError()
	}
	return engine, nil
}
