// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/cache"
	"github.com/vfxbootstrap/vfxb/internal/issue"
)

var (
	cacheClearForce bool

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the build cache",
	}

	cacheStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show build cache statistics",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openCache()
			if err != nil {
				return err
			}
			stats, err := store.Status()
			if err != nil {
				return err
			}
			fmt.Println(TitleStyle.Render("Build cache"))
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("directory:"), stats.Root)
			fmt.Printf("  %s %d\n", SubtitleStyle.Render("entries:"), stats.Entries)
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("size:"), formatBytes(stats.TotalBytes))
			return nil
		},
	}

	cacheListCmd = &cobra.Command{
		Use:   "list",
		Short: "List cached builds",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openCache()
			if err != nil {
				return err
			}
			entries := store.ListEntries()
			if len(entries) == 0 {
				fmt.Println("Cache is empty.")
				return nil
			}
			fmt.Printf("%s (%d):\n", TitleStyle.Render("Cached builds"), len(entries))
			for _, entry := range entries {
				recipe := entry.Extra["recipe"]
				if recipe == "" {
					recipe = "(unknown)"
				}
				fmt.Printf("  %s %s %s\n", CmdStyle.Render(shortKey(entry.Key)), recipe,
					SubtitleStyle.Render(fmt.Sprintf("(%d artifacts)", len(entry.Packages))))
			}
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached build",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openCache()
			if err != nil {
				return err
			}

			if !cacheClearForce {
				fmt.Printf("%s remove all cached builds under %s? [y/N] ",
					WarningStyle.Render("Really"), store.Root())
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			removed, err := store.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("%s removed %d entries\n", SuccessStyle.Render("✓"), removed)
			return nil
		},
	}
)

func init() {
	cacheClearCmd.Flags().BoolVarP(&cacheClearForce, "force", "f", false, "clear without confirmation")

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openCache() (*cache.Store, error) {
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open build cache").
			WithResource(cfg.CacheDir).
			WithSuggestion("Check directory permissions").
			WithSuggestion("Use --cache-dir to relocate the cache").
			Wrap(err).
			BuildError()
	}
	return store, nil
}

// shortKey abbreviates a cache key for display. Keys are opaque strings as
// far as the store is concerned, so a foreign or hand-edited metadata record
// may carry one shorter than a digest; those are shown in full.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
