// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// DependencyScan is the result of a best-effort dependency scan of a recipe
// metadata file. Depends holds the declared names that matched known local
// recipes; Ignored holds the declaration lines that did not, so callers can
// inspect what the scan skipped.
type DependencyScan struct {
	Depends []string
	Ignored []string
}

// ScanMetadata reads the metadata file at path and extracts local dependency
// names via ScanDependencies.
func ScanMetadata(path string, known func(string) bool) (DependencyScan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DependencyScan{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ScanDependencies(string(data), known), nil
}

// ScanDependencies scans metadata content line by line for dependency
// declarations of the form "- <name> [version spec]". A declared name is kept
// as a dependency only when known reports it as a local recipe; all other
// declaration lines are collected as ignored. Template expressions
// ("- {{ ... }}") are never treated as declarations.
//
// The result is deterministic: dependencies are sorted and deduplicated,
// ignored lines appear in file order.
func ScanDependencies(content string, known func(string) bool) DependencyScan {
	var scan DependencyScan
	seen := make(map[string]bool)

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "- {{") {
			continue
		}
		name := packageName(line[2:])
		if name == "" {
			continue
		}
		if !known(name) {
			scan.Ignored = append(scan.Ignored, line)
			continue
		}
		if !seen[name] {
			seen[name] = true
			scan.Depends = append(scan.Depends, name)
		}
	}

	sort.Strings(scan.Depends)
	return scan
}

// packageName extracts the bare package name from a dependency declaration,
// stripping whitespace-separated and inline version specifiers
// (e.g. "zlib >=1.2", "zlib>=1.2,<2", "python=3.11").
func packageName(decl string) string {
	name := strings.Fields(decl)
	if len(name) == 0 {
		return ""
	}
	out := name[0]
	for _, sep := range []string{">", "<", "="} {
		if idx := strings.Index(out, sep); idx >= 0 {
			out = out[:idx]
		}
	}
	return out
}
