// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/builder"
	"github.com/vfxbootstrap/vfxb/internal/cache"
	"github.com/vfxbootstrap/vfxb/internal/config"
	"github.com/vfxbootstrap/vfxb/internal/container"
	"github.com/vfxbootstrap/vfxb/internal/issue"
	"github.com/vfxbootstrap/vfxb/internal/recipe"
)

var (
	buildNoCache         bool
	buildContinueOnError bool
	buildInContainer     bool
	buildImage           string

	buildCmd = &cobra.Command{
		Use:   "build [recipe...]",
		Short: "Build recipes in dependency order",
		Long: `Build the named recipes and their local dependencies, in dependency
order. With no arguments, every discovered recipe is built.

Builds that are already in the content-addressed cache are restored
instead of rebuilt. Pass --container to run conda-build inside a
container instead of on the host.`,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "bypass the build cache entirely")
	buildCmd.Flags().BoolVar(&buildContinueOnError, "continue-on-error", false, "keep building remaining recipes after a failure")
	buildCmd.Flags().BoolVar(&buildInContainer, "container", false, "run builds inside a container")
	buildCmd.Flags().StringVar(&buildImage, "image", "", "container image for --container (alias or full reference)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	set, err := loadRecipes()
	if err != nil {
		return err
	}

	var store *cache.Store
	if !buildNoCache {
		store, err = cache.Open(cfg.CacheDir)
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("open build cache").
				WithResource(cfg.CacheDir).
				WithSuggestion("Check directory permissions").
				WithSuggestion("Use --cache-dir to relocate the cache").
				Wrap(err).
				BuildError()
		}
	}

	invoker, err := newInvoker()
	if err != nil {
		return err
	}

	variant, err := recipe.LoadVariantConfig(set.Root())
	if err != nil {
		return err
	}

	orchestrator, err := builder.New(builder.Options{
		Recipes:           set,
		Cache:             store,
		Invoker:           invoker,
		OutputDir:         cfg.OutputDir,
		LogDir:            cfg.LogDir,
		Platform:          cfg.Platform,
		Channels:          cfg.Channels,
		VariantConfig:     variant,
		VariantConfigPath: recipe.VariantConfigPath(set.Root()),
	})
	if err != nil {
		return err
	}

	plan, err := orchestrator.ResolveOrder(args)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("resolve build order").
			WithSuggestion("Run 'vfxb info <name>' on the recipes in the reported cycle").
			Wrap(err).
			BuildError()
	}
	fmt.Printf("%s %s\n", TitleStyle.Render("Build plan:"), CmdStyle.Render(strings.Join(plan, " → ")))

	results, err := orchestrator.BuildAll(cmd.Context(), args, buildContinueOnError)
	if err != nil {
		return err
	}

	printSummary(results)
	if summary := builder.Summarize(results); len(summary.Failed) > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d builds failed", len(summary.Failed), summary.Total)}
	}
	return nil
}

// newInvoker picks the build backend: native conda-build, or a containerized
// run when --container is set.
func newInvoker() (builder.Invoker, error) {
	if !buildInContainer {
		invoker := builder.NewCondaInvoker()
		if err := invoker.Preflight(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("find conda").
				WithSuggestion("Install conda-build (conda install conda-build)").
				WithSuggestion("Or pass --container to build inside a container").
				Wrap(err).
				BuildError()
		}
		return invoker, nil
	}

	engine, err := container.NewEngine(container.EngineType(cfg.Container.Engine))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("select container engine").
			WithSuggestion("Install podman or docker").
			WithSuggestion("Or set [container] engine in " + config.DefaultConfigFilePath()).
			Wrap(err).
			BuildError()
	}

	image := buildImage
	if image == "" {
		image = cfg.Container.Image
	}
	return container.NewBuildInvoker(engine, image), nil
}

func printSummary(results []builder.BuildResult) {
	summary := builder.Summarize(results)
	fmt.Println()
	fmt.Println(TitleStyle.Render("Build summary"))
	for _, result := range results {
		switch {
		case !result.Success:
			fmt.Printf("  %s %s: %s\n", ErrorStyle.Render("✗"), result.Recipe, result.Err)
			if result.LogPath != "" {
				fmt.Printf("    %s\n", SubtitleStyle.Render("log: "+result.LogPath))
			}
		case result.Cached:
			fmt.Printf("  %s %s %s\n", SuccessStyle.Render("✓"), result.Recipe, SubtitleStyle.Render("(cached)"))
		default:
			fmt.Printf("  %s %s\n", SuccessStyle.Render("✓"), result.Recipe)
		}
	}
	fmt.Printf("\n%d total, %d succeeded (%d cached), %d failed\n",
		summary.Total, summary.Succeeded, summary.Cached, len(summary.Failed))
}
