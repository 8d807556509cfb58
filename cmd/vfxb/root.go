// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for vfxb.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/config"
	"github.com/vfxbootstrap/vfxb/internal/issue"
	"github.com/vfxbootstrap/vfxb/internal/recipe"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// flag overrides for config values
	flagRecipesDir string
	flagOutputDir  string
	flagCacheDir   string
	flagLogDir     string
	flagPlatform   string
	flagChannels   []string

	// cfg is the effective configuration, resolved in initRootConfig.
	cfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "vfxb",
		Short: "Build and package VFX-Platform software",
		Long: TitleStyle.Render("vfxb") + SubtitleStyle.Render(" - Build and package VFX-Platform software") + `

vfxb wraps conda-build with a content-addressed build cache,
dependency-ordered build orchestration, and optional container
isolation (Docker/Podman). A packaging layer exports built software
to distributable formats (tarball, zip, conda).

Recipes are conda-build recipe directories: each subdirectory of the
recipes tree containing a meta.yaml is a buildable recipe.

` + SubtitleStyle.Render("Examples:") + `
  vfxb list                 List discovered recipes
  vfxb build openexr        Build one recipe and its dependencies
  vfxb build                Build every recipe in dependency order
  vfxb order                Show the resolved build order
  vfxb cache status         Show build cache statistics
  vfxb package export package.yaml --source ./stage`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/vfxb/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagRecipesDir, "recipes", "", "recipes directory")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output", "", "output directory for built packages")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "build cache directory")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "build log directory (default is <output>/logs)")
	rootCmd.PersistentFlags().StringVarP(&flagPlatform, "platform", "p", "", "VFX Platform target (e.g. vfx2024)")
	rootCmd.PersistentFlags().StringArrayVarP(&flagChannels, "channel", "c", nil, "additional conda channels (repeatable)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(containerCmd)
	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		renderIssueHelp(os.Stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig resolves the effective configuration: file and env values
// first, then command-line flag overrides on top.
func initRootConfig() {
	loaded, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		renderIssueHelp(os.Stderr, err)
	} else {
		cfg = loaded
	}

	if flagRecipesDir != "" {
		cfg.RecipesDir = flagRecipesDir
	}
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if flagCacheDir != "" {
		cfg.CacheDir = flagCacheDir
	}
	if flagLogDir != "" {
		cfg.LogDir = flagLogDir
	}
	if flagPlatform != "" {
		cfg.Platform = flagPlatform
	}
	cfg.Channels = append(cfg.Channels, flagChannels...)

	if !verbose {
		verbose = cfg.UI.Verbose
	}
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// loadRecipes discovers the recipe set from the configured recipes directory.
func loadRecipes() (*recipe.Set, error) {
	set, err := recipe.Discover(cfg.RecipesDir)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("discover recipes").
			WithResource(cfg.RecipesDir).
			WithSuggestion("Pass --recipes to point at your recipe tree").
			WithSuggestion("Or set recipes_dir in " + config.DefaultConfigFilePath()).
			Wrap(err).
			BuildError()
	}
	return set, nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
