// SPDX-License-Identifier: MPL-2.0

// Package recipe handles discovering build recipes on disk and extracting
// their dependency declarations.
//
// A recipe is a directory under the recipes root containing a meta.yaml
// metadata file. Dependency extraction is a best-effort line-oriented scan
// matching declared package names against the set of known local recipes; it
// is not a full render of the metadata format.
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/vfxbootstrap/vfxb/internal/dag"
)

// MetadataFileName is the per-recipe metadata file looked for during discovery.
const MetadataFileName = "meta.yaml"

// VariantConfigFileName is the shared variant configuration file at the
// recipes root, pinning VFX Platform dependency versions.
const VariantConfigFileName = "conda_build_config.yaml"

type (
	// Recipe is a named build unit with a source directory and the subset of
	// its declared dependencies that match known local recipes. Immutable
	// once the Set is built.
	Recipe struct {
		Name string
		Dir  string
		// Depends holds dependency recipe names, sorted. Only names that
		// resolve to known local recipes appear here; external dependencies
		// are resolved by the package channels at build time instead.
		Depends []string
	}

	// Set is the collection of recipes discovered under one root.
	Set struct {
		root    string
		recipes map[string]Recipe
	}
)

// Discover scans root for recipe directories, parses each recipe's
// dependencies, and returns the finalized Set. Dependency names that do not
// match a discovered recipe are dropped before the set is returned.
func Discover(root string) (*Set, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve recipes dir: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read recipes dir %s: %w", abs, err)
	}

	set := &Set{root: abs, recipes: make(map[string]Recipe)}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(abs, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, MetadataFileName)); err != nil {
			continue
		}
		set.recipes[entry.Name()] = Recipe{Name: entry.Name(), Dir: dir}
	}

	logger := log.Default().With("component", "recipe")
	for name, r := range set.recipes {
		scan, err := ScanMetadata(filepath.Join(r.Dir, MetadataFileName), set.Has)
		if err != nil {
			// A recipe whose metadata cannot be read still participates in
			// ordering, just without local edges.
			logger.Warn("could not scan recipe metadata", "recipe", name, "err", err)
			continue
		}
		r.Depends = scan.Depends
		set.recipes[name] = r
	}
	logger.Debug("discovered recipes", "root", abs, "count", len(set.recipes))
	return set, nil
}

// Root returns the recipes root directory.
func (s *Set) Root() string {
	return s.root
}

// Has reports whether name is a known recipe.
func (s *Set) Has(name string) bool {
	_, ok := s.recipes[name]
	return ok
}

// Get returns the recipe with the given name.
func (s *Set) Get(name string) (Recipe, bool) {
	r, ok := s.recipes[name]
	return r, ok
}

// Names returns all recipe names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.recipes))
	for name := range s.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of known recipes.
func (s *Set) Len() int {
	return len(s.recipes)
}

// Graph builds the dependency graph over the set. Nodes are added in sorted
// name order so graph traversal is reproducible.
func (s *Set) Graph() *dag.Graph {
	g := dag.New()
	for _, name := range s.Names() {
		g.AddNode(name)
		for _, dep := range s.recipes[name].Depends {
			g.AddDependency(name, dep)
		}
	}
	return g
}

// LoadVariantConfig reads the shared variant configuration from the recipes
// root. A missing file yields an empty configuration, not an error.
func LoadVariantConfig(root string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(root, VariantConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read variant config: %w", err)
	}
	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", VariantConfigFileName, err)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return cfg, nil
}

// VariantConfigPath returns the path to the variant configuration file under
// root, or "" if the file does not exist.
func VariantConfigPath(root string) string {
	path := filepath.Join(root, VariantConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
