// SPDX-License-Identifier: MPL-2.0

// Package manifest defines the format-agnostic package description that the
// exporters consume. Manifests are YAML on disk and validated against an
// embedded CUE schema before use.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// FileName is the conventional manifest file name.
const FileName = "package.yaml"

//go:embed schema.cue
var schemaBytes []byte

var (
	// ErrUnknownComponent is returned when a requested component does not exist.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrInvalid is wrapped by every schema validation failure so callers can
	// classify manifest problems without inspecting CUE error details.
	ErrInvalid = errors.New("invalid manifest")
)

type (
	// FileMapping maps a source file or glob to a destination inside the
	// exported package.
	FileMapping struct {
		Src        string `yaml:"src" json:"src"`
		Dst        string `yaml:"dst" json:"dst"`
		Executable bool   `yaml:"executable,omitempty" json:"executable,omitempty"`
		Optional   bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	}

	// Component is a named, independently selectable part of a package.
	// Optional components are excluded from default exports.
	Component struct {
		Name         string        `yaml:"name" json:"name"`
		Description  string        `yaml:"description,omitempty" json:"description,omitempty"`
		Optional     bool          `yaml:"optional,omitempty" json:"optional,omitempty"`
		Files        []FileMapping `yaml:"files,omitempty" json:"files,omitempty"`
		Dependencies []string      `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	}

	// Manifest describes a distributable package: identity metadata plus
	// the components it is assembled from.
	Manifest struct {
		Name        string            `yaml:"name" json:"name"`
		Version     string            `yaml:"version" json:"version"`
		Description string            `yaml:"description,omitempty" json:"description,omitempty"`
		License     string            `yaml:"license,omitempty" json:"license,omitempty"`
		Homepage    string            `yaml:"homepage,omitempty" json:"homepage,omitempty"`
		Components  []Component       `yaml:"components" json:"components"`
		Metadata    map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	}
)

// Parse decodes and validates a YAML manifest.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// Validate checks the manifest against the embedded CUE schema.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return fmt.Errorf("internal error: compile manifest schema: %w", schema.Err())
	}
	root := schema.LookupPath(cue.ParsePath("#Manifest"))
	if root.Err() != nil {
		return fmt.Errorf("internal error: schema definition #Manifest not found: %w", root.Err())
	}

	value := ctx.Encode(m)
	if value.Err() != nil {
		return fmt.Errorf("encode manifest: %w", value.Err())
	}

	if err := root.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Component returns the named component, or nil if absent.
func (m *Manifest) Component(name string) *Component {
	for i := range m.Components {
		if m.Components[i].Name == name {
			return &m.Components[i]
		}
	}
	return nil
}

// selectComponents resolves the component selection rule shared by Files and
// AllDependencies: no names means every non-optional component; explicit
// names select exactly those, optional or not.
func (m *Manifest) selectComponents(names []string) ([]*Component, error) {
	if len(names) == 0 {
		var selected []*Component
		for i := range m.Components {
			if !m.Components[i].Optional {
				selected = append(selected, &m.Components[i])
			}
		}
		return selected, nil
	}

	selected := make([]*Component, 0, len(names))
	for _, name := range names {
		comp := m.Component(name)
		if comp == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
		}
		selected = append(selected, comp)
	}
	return selected, nil
}

// Files returns the file mappings of the selected components, in component
// declaration order.
func (m *Manifest) Files(names ...string) ([]FileMapping, error) {
	selected, err := m.selectComponents(names)
	if err != nil {
		return nil, err
	}
	var files []FileMapping
	for _, comp := range selected {
		files = append(files, comp.Files...)
	}
	return files, nil
}

// AllDependencies returns the sorted unique runtime dependencies of the
// selected components.
func (m *Manifest) AllDependencies(names ...string) ([]string, error) {
	selected, err := m.selectComponents(names)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var deps []string
	for _, comp := range selected {
		for _, dep := range comp.Dependencies {
			if !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
			}
		}
	}
	sort.Strings(deps)
	return deps, nil
}

// Skeleton returns a minimal valid manifest for `package init`.
func Skeleton(name, version string) *Manifest {
	return &Manifest{
		Name:    name,
		Version: version,
		Components: []Component{
			{
				Name:        "core",
				Description: "Core files",
				Files: []FileMapping{
					{Src: "bin/*", Dst: "bin/", Executable: true},
				},
			},
		},
	}
}
