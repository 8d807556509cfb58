// SPDX-License-Identifier: MPL-2.0

package export

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

// tarballFormatMarker identifies the embedded manifest schema of tarball and
// zip exports.
const tarballFormatMarker = "vfx-bootstrap-tarball-v1"

// archiveManifest is the manifest.json embedded in tarball and zip exports,
// recording what the archive contains for version tracking.
type archiveManifest struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	License      string   `json:"license"`
	Homepage     string   `json:"homepage"`
	Dependencies []string `json:"dependencies"`
	Files        []string `json:"files"`
	Created      string   `json:"created"`
	Format       string   `json:"format"`
}

// TarballExporter produces portable .tar.gz archives with an embedded
// manifest.json.
type TarballExporter struct {
	manifest *manifest.Manifest
	now      func() time.Time
}

// NewTarballExporter creates a tarball exporter for m.
func NewTarballExporter(m *manifest.Manifest) *TarballExporter {
	return &TarballExporter{manifest: m, now: time.Now}
}

func (e *TarballExporter) FormatName() string { return "tarball" }

func (e *TarballExporter) FileExtension() string { return ".tar.gz" }

// Export writes <name>-<version>.tar.gz into outputDir. All content lives
// under a <name>-<version>/ top-level directory.
func (e *TarballExporter) Export(sourceDir, outputDir string, components ...string) (string, error) {
	mappings, err := e.manifest.Files(components...)
	if err != nil {
		return "", err
	}
	files, err := resolveFiles(sourceDir, mappings)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	outputPath := filepath.Join(outputDir, outputFileName(e.manifest, e.FileExtension()))
	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	root := rootDirName(e.manifest)
	arcPaths := make([]string, 0, len(files))
	for _, file := range files {
		arcPath := root + "/" + file.ArcPath
		if err := addTarFile(tw, file, arcPath); err != nil {
			return "", err
		}
		arcPaths = append(arcPaths, arcPath)
	}

	if err := e.addManifest(tw, root, arcPaths, components); err != nil {
		return "", err
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("finalize tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("finalize gzip: %w", err)
	}
	return outputPath, nil
}

func (e *TarballExporter) addManifest(tw *tar.Writer, root string, arcPaths []string, components []string) error {
	deps, err := e.manifest.AllDependencies(components...)
	if err != nil {
		return err
	}
	meta := archiveManifest{
		Name:         e.manifest.Name,
		Version:      e.manifest.Version,
		Description:  e.manifest.Description,
		License:      e.manifest.License,
		Homepage:     e.manifest.Homepage,
		Dependencies: deps,
		Files:        arcPaths,
		Created:      e.now().UTC().Format(time.RFC3339),
		Format:       tarballFormatMarker,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive manifest: %w", err)
	}
	return writeTarBytes(tw, root+"/manifest.json", data, 0o644)
}

// addTarFile streams one resolved file into the tar stream.
func addTarFile(tw *tar.Writer, file resolvedFile, arcPath string) error {
	info, err := os.Stat(file.SrcPath)
	if err != nil {
		return err
	}
	mode := int64(0o644)
	if file.Executable {
		mode = 0o755
	}
	header := &tar.Header{
		Name:    arcPath,
		Mode:    mode,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header %s: %w", arcPath, err)
	}
	src, err := os.Open(file.SrcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := io.Copy(tw, src); err != nil {
		return fmt.Errorf("write tar entry %s: %w", arcPath, err)
	}
	return nil
}

// writeTarBytes writes an in-memory file into the tar stream.
func writeTarBytes(tw *tar.Writer, arcPath string, data []byte, mode int64) error {
	header := &tar.Header{
		Name:    arcPath,
		Mode:    mode,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header %s: %w", arcPath, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write tar entry %s: %w", arcPath, err)
	}
	return nil
}
