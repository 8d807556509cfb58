// SPDX-License-Identifier: MPL-2.0

package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

// ZipExporter produces .zip archives, convenient for Windows distribution
// and manual extraction. Same layout as the tarball exporter plus a README.
type ZipExporter struct {
	manifest *manifest.Manifest
	now      func() time.Time
}

// NewZipExporter creates a zip exporter for m.
func NewZipExporter(m *manifest.Manifest) *ZipExporter {
	return &ZipExporter{manifest: m, now: time.Now}
}

func (e *ZipExporter) FormatName() string { return "zip" }

func (e *ZipExporter) FileExtension() string { return ".zip" }

// Export writes <name>-<version>.zip into outputDir.
func (e *ZipExporter) Export(sourceDir, outputDir string, components ...string) (string, error) {
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

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	root := rootDirName(e.manifest)
	arcPaths := make([]string, 0, len(files))
	for _, file := range files {
		arcPath := root + "/" + file.ArcPath
		if err := addZipFile(zw, file, arcPath); err != nil {
			return "", err
		}
		arcPaths = append(arcPaths, arcPath)
	}

	if err := e.addManifest(zw, root, arcPaths, components); err != nil {
		return "", err
	}
	if err := e.addReadme(zw, root); err != nil {
		return "", err
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize zip: %w", err)
	}
	return outputPath, nil
}

func (e *ZipExporter) addManifest(zw *zip.Writer, root string, arcPaths []string, components []string) error {
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
	return writeZipBytes(zw, root+"/manifest.json", data)
}

func (e *ZipExporter) addReadme(zw *zip.Writer, root string) error {
	readme := fmt.Sprintf("%s %s\n\n%s\n\nLicense: %s\nHomepage: %s\n",
		e.manifest.Name, e.manifest.Version, e.manifest.Description,
		e.manifest.License, e.manifest.Homepage)
	return writeZipBytes(zw, root+"/README.txt", []byte(readme))
}

func addZipFile(zw *zip.Writer, file resolvedFile, arcPath string) error {
	info, err := os.Stat(file.SrcPath)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = arcPath
	header.Method = zip.Deflate
	if file.Executable {
		header.SetMode(0o755)
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", arcPath, err)
	}
	src, err := os.Open(file.SrcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write zip entry %s: %w", arcPath, err)
	}
	return nil
}

func writeZipBytes(zw *zip.Writer, arcPath string, data []byte) error {
	w, err := zw.Create(arcPath)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", arcPath, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", arcPath, err)
	}
	return nil
}
