// SPDX-License-Identifier: MPL-2.0

package export

import (
	"archive/tar"
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

// condaBuildString is the build string baked into exported conda packages.
// Exports are not tied to a specific interpreter build, so a plain serial
// build string is used.
const condaBuildString = "0"

// condaIndex is the info/index.json payload conda reads from a package.
type condaIndex struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build"`
	BuildNumber int      `json:"build_number"`
	Depends     []string `json:"depends"`
	License     string   `json:"license"`
	Subdir      string   `json:"subdir"`
	Timestamp   int64    `json:"timestamp"`
}

// condaAbout is the info/about.json payload.
type condaAbout struct {
	Description string `json:"description"`
	Home        string `json:"home"`
	License     string `json:"license"`
}

// CondaExporter produces packages in the .conda format (format version 2):
// a zip container holding zstd-compressed payload and metadata tarballs.
// Output lands in a platform subdirectory so the result can be indexed as a
// conda channel directly.
type CondaExporter struct {
	manifest *manifest.Manifest
	now      func() time.Time
}

// NewCondaExporter creates a conda exporter for m.
func NewCondaExporter(m *manifest.Manifest) *CondaExporter {
	return &CondaExporter{manifest: m, now: time.Now}
}

func (e *CondaExporter) FormatName() string { return "conda" }

func (e *CondaExporter) FileExtension() string { return ".conda" }

// Export writes <subdir>/<name>-<version>-<build>.conda into outputDir.
func (e *CondaExporter) Export(sourceDir, outputDir string, components ...string) (string, error) {
	mappings, err := e.manifest.Files(components...)
	if err != nil {
		return "", err
	}
	files, err := resolveFiles(sourceDir, mappings)
	if err != nil {
		return "", err
	}

	subdir := condaSubdir(runtime.GOOS, runtime.GOARCH)
	pkgID := fmt.Sprintf("%s-%s-%s", e.manifest.Name, e.manifest.Version, condaBuildString)
	outDir := filepath.Join(outputDir, subdir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	outputPath := filepath.Join(outDir, pkgID+e.FileExtension())
	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create package: %w", err)
	}
	defer out.Close()

	// The outer container is a plain zip; compression happens inside the
	// zstd tar members, so the zip entries are stored.
	zw := zip.NewWriter(out)

	metadata, err := json.Marshal(map[string]int{"conda_pkg_format_version": 2})
	if err != nil {
		return "", err
	}
	if err := writeStoredZipBytes(zw, "metadata.json", metadata); err != nil {
		return "", err
	}

	if err := e.writeTarZst(zw, "pkg-"+pkgID+".tar.zst", func(tw *tar.Writer) error {
		for _, file := range files {
			if err := addTarFile(tw, file, file.ArcPath); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := e.writeTarZst(zw, "info-"+pkgID+".tar.zst", func(tw *tar.Writer) error {
		return e.addInfoFiles(tw, subdir, components)
	}); err != nil {
		return "", err
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize package: %w", err)
	}
	return outputPath, nil
}

// writeTarZst writes one zstd-compressed tar member into the zip container.
func (e *CondaExporter) writeTarZst(zw *zip.Writer, name string, fill func(*tar.Writer) error) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create package member %s: %w", name, err)
	}
	zst, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zst)
	if err := fill(tw); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalize tar member %s: %w", name, err)
	}
	if err := zst.Close(); err != nil {
		return fmt.Errorf("finalize zstd member %s: %w", name, err)
	}
	return nil
}

func (e *CondaExporter) addInfoFiles(tw *tar.Writer, subdir string, components []string) error {
	deps, err := e.manifest.AllDependencies(components...)
	if err != nil {
		return err
	}
	index := condaIndex{
		Name:        e.manifest.Name,
		Version:     e.manifest.Version,
		Build:       condaBuildString,
		BuildNumber: 0,
		Depends:     deps,
		License:     e.manifest.License,
		Subdir:      subdir,
		Timestamp:   e.now().UnixMilli(),
	}
	indexJSON, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index.json: %w", err)
	}
	if err := writeTarBytes(tw, "info/index.json", indexJSON, 0o644); err != nil {
		return err
	}

	about := condaAbout{
		Description: e.manifest.Description,
		Home:        e.manifest.Homepage,
		License:     e.manifest.License,
	}
	aboutJSON, err := json.MarshalIndent(about, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal about.json: %w", err)
	}
	return writeTarBytes(tw, "info/about.json", aboutJSON, 0o644)
}

// condaSubdir maps the build host to a conda platform subdirectory.
func condaSubdir(goos, goarch string) string {
	switch goos {
	case "linux":
		if goarch == "amd64" {
			return "linux-64"
		}
		if goarch == "arm64" {
			return "linux-aarch64"
		}
		return "linux-" + goarch
	case "darwin":
		if goarch == "arm64" {
			return "osx-arm64"
		}
		return "osx-64"
	default:
		return "noarch"
	}
}

func writeStoredZipBytes(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create package member %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write package member %s: %w", name, err)
	}
	return nil
}
