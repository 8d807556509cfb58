// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vfxbootstrap/vfxb/internal/export"
	"github.com/vfxbootstrap/vfxb/internal/issue"
	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

var (
	exportSourceDir  string
	exportOutputDir  string
	exportFormat     string
	exportComponents []string

	initName    string
	initVersion string
	initOutput  string

	packageCmd = &cobra.Command{
		Use:   "package",
		Short: "Export built software to distributable formats",
	}

	packageExportCmd = &cobra.Command{
		Use:   "export <manifest>",
		Short: "Export a package described by a manifest",
		Long: `Export the files a manifest describes into a distributable archive.

Formats: ` + strings.Join(export.Formats(), ", ") + `. With no --component
flags, every non-optional component is included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}

			formats := []string{exportFormat}
			if exportFormat == "all" {
				formats = export.Formats()
			}
			for _, format := range formats {
				exporter, err := export.New(format, m)
				if err != nil {
					return err
				}
				path, err := exporter.Export(exportSourceDir, exportOutputDir, exportComponents...)
				if err != nil {
					return issue.NewErrorContext().
						WithOperation("export package").
						WithResource(args[0]).
						WithSuggestion("Check that --source points at the staged build output").
						Wrap(err).
						BuildError()
				}
				fmt.Printf("%s exported %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			}
			return nil
		},
	}

	packageValidateCmd = &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a package manifest against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if _, err := loadManifest(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s %s is valid\n", SuccessStyle.Render("✓"), args[0])
			return nil
		},
	}

	packageShowCmd = &cobra.Command{
		Use:   "show <manifest>",
		Short: "Show the contents of a package manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s %s\n", TitleStyle.Render(m.Name), SubtitleStyle.Render(m.Version))
			if m.Description != "" {
				fmt.Printf("  %s\n", m.Description)
			}
			if m.License != "" {
				fmt.Printf("  %s %s\n", SubtitleStyle.Render("license:"), m.License)
			}
			fmt.Printf("\n%s\n", TitleStyle.Render("Components"))
			for _, comp := range m.Components {
				marker := ""
				if comp.Optional {
					marker = SubtitleStyle.Render(" (optional)")
				}
				fmt.Printf("  %s%s\n", CmdStyle.Render(comp.Name), marker)
				for _, file := range comp.Files {
					fmt.Printf("    %s -> %s\n", file.Src, file.Dst)
				}
				if len(comp.Dependencies) > 0 {
					fmt.Printf("    %s %s\n", SubtitleStyle.Render("depends:"), strings.Join(comp.Dependencies, ", "))
				}
			}
			return nil
		},
	}

	packageInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a skeleton package manifest",
		RunE: func(_ *cobra.Command, _ []string) error {
			m := manifest.Skeleton(initName, initVersion)
			if err := m.Validate(); err != nil {
				return err
			}
			if err := m.Save(initOutput); err != nil {
				return err
			}
			fmt.Printf("%s wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(initOutput))
			return nil
		},
	}
)

func init() {
	packageExportCmd.Flags().StringVar(&exportSourceDir, "source", ".", "directory containing the staged files to package")
	packageExportCmd.Flags().StringVarP(&exportOutputDir, "output", "o", ".", "directory the archive is written to")
	packageExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "tarball", "export format ("+strings.Join(export.Formats(), ", ")+", all)")
	packageExportCmd.Flags().StringArrayVar(&exportComponents, "component", nil, "components to include (repeatable)")

	packageInitCmd.Flags().StringVar(&initName, "name", "mypackage", "package name")
	packageInitCmd.Flags().StringVar(&initVersion, "version", "1.0.0", "package version")
	packageInitCmd.Flags().StringVarP(&initOutput, "output", "o", manifest.FileName, "manifest path to write")

	packageCmd.AddCommand(packageExportCmd)
	packageCmd.AddCommand(packageValidateCmd)
	packageCmd.AddCommand(packageShowCmd)
	packageCmd.AddCommand(packageInitCmd)
}

func loadManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load package manifest").
			WithResource(path).
			WithSuggestion("Run 'vfxb package init' to generate a skeleton to compare against").
			Wrap(err).
			BuildError()
	}
	return m, nil
}
