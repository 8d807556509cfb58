// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"
)

// ComputeKey derives a deterministic cache key from a recipe's build inputs:
// every file under recipeDir (relative slash path + raw bytes, sorted by
// path), a canonical key-sorted serialization of buildConfig, and the
// name:key pairs of upstream dependencies sorted by name.
//
// Identical file trees, config, and upstream keys always produce the same key,
// regardless of filesystem iteration order or process. Any change to any
// input yields a different key, which invalidates downstream keys transitively
// when callers recompute dependency keys bottom-up in build order.
func ComputeKey(recipeDir string, buildConfig map[string]any, depKeys map[string]string) (string, error) {
	digester := digest.SHA256.Digester()
	h := digester.Hash()

	if err := hashRecipeFiles(h, recipeDir); err != nil {
		return "", err
	}

	// encoding/json serializes map keys in sorted order, which gives the
	// canonical config representation the key contract requires.
	cfg, err := json.Marshal(buildConfig)
	if err != nil {
		return "", fmt.Errorf("serialize build config: %w", err)
	}
	h.Write(cfg)

	names := make([]string, 0, len(depKeys))
	for name := range depKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "%s:%s", name, depKeys[name])
	}

	return digester.Digest().Encoded(), nil
}

// hashRecipeFiles feeds every regular file under root into h, sorted by
// slash-separated relative path for determinism.
func hashRecipeFiles(h io.Writer, root string) error {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk recipe dir %s: %w", root, err)
	}

	rels := make(map[string]string, len(paths))
	sorted := make([]string, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		rels[rel] = path
		sorted = append(sorted, rel)
	}
	sort.Strings(sorted)

	for _, rel := range sorted {
		io.WriteString(h, rel)
		f, err := os.Open(rels[rel])
		if err != nil {
			return fmt.Errorf("read recipe file %s: %w", rels[rel], err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("hash recipe file %s: %w", rels[rel], err)
		}
	}
	return nil
}
