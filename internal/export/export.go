// SPDX-License-Identifier: MPL-2.0

// Package export turns validated package manifests into distributable
// archives. Each exporter consumes the same resolved file set; only the
// container format differs.
package export

import (
	"fmt"
	"sort"

	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

// Exporter converts a manifest plus a source tree into one archive format.
type Exporter interface {
	// FormatName is the user-facing format identifier.
	FormatName() string
	// FileExtension is the extension of produced archives, with leading dot.
	FileExtension() string
	// Export writes the package assembled from sourceDir into outputDir and
	// returns the path of the produced archive. An empty component selection
	// exports every non-optional component.
	Export(sourceDir, outputDir string, components ...string) (string, error)
}

// factories maps format names to exporter constructors.
var factories = map[string]func(*manifest.Manifest) Exporter{
	"tarball": func(m *manifest.Manifest) Exporter { return NewTarballExporter(m) },
	"zip":     func(m *manifest.Manifest) Exporter { return NewZipExporter(m) },
	"conda":   func(m *manifest.Manifest) Exporter { return NewCondaExporter(m) },
}

// New creates the exporter for the named format.
func New(format string, m *manifest.Manifest) (Exporter, error) {
	factory, ok := factories[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (available: %v)", format, Formats())
	}
	return factory(m), nil
}

// Formats returns the supported format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// outputFileName is the conventional <name>-<version><ext> archive name.
func outputFileName(m *manifest.Manifest, ext string) string {
	return m.Name + "-" + m.Version + ext
}

// rootDirName is the top-level directory inside user-extractable archives.
func rootDirName(m *manifest.Manifest) string {
	return m.Name + "-" + m.Version
}
