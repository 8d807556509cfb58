// SPDX-License-Identifier: MPL-2.0

package export

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vfxbootstrap/vfxb/internal/manifest"
)

// resolvedFile is one concrete file selected by a mapping: the absolute
// source path and the slash-separated archive path it maps to.
type resolvedFile struct {
	SrcPath    string
	ArcPath    string
	Executable bool
}

// MissingFilesError reports non-optional mappings that matched nothing.
type MissingFilesError struct {
	Sources []string
}

func (e *MissingFilesError) Error() string {
	return fmt.Sprintf("missing source files: %s", strings.Join(e.Sources, ", "))
}

// resolveFiles expands the mappings against sourceDir. Globs expand to their
// matches, directories are walked recursively, and plain files map directly.
// A destination ending in "/" is a directory the source name is appended to;
// otherwise it is the exact archive path. Non-optional mappings that match
// nothing fail the whole resolution.
func resolveFiles(sourceDir string, mappings []manifest.FileMapping) ([]resolvedFile, error) {
	var resolved []resolvedFile
	var missing []string

	for _, mapping := range mappings {
		files, err := resolveMapping(sourceDir, mapping)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			if !mapping.Optional {
				missing = append(missing, mapping.Src)
			}
			continue
		}
		resolved = append(resolved, files...)
	}

	if len(missing) > 0 {
		return nil, &MissingFilesError{Sources: missing}
	}
	return resolved, nil
}

func resolveMapping(sourceDir string, mapping manifest.FileMapping) ([]resolvedFile, error) {
	if strings.Contains(mapping.Src, "*") {
		matches, err := filepath.Glob(filepath.Join(sourceDir, mapping.Src))
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", mapping.Src, err)
		}
		var files []resolvedFile
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				continue
			}
			files = append(files, resolvedFile{
				SrcPath:    match,
				ArcPath:    destPath(mapping.Dst, filepath.Base(match), true),
				Executable: mapping.Executable,
			})
		}
		return files, nil
	}

	srcPath := filepath.Join(sourceDir, mapping.Src)
	info, err := os.Stat(srcPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []resolvedFile{{
			SrcPath:    srcPath,
			ArcPath:    destPath(mapping.Dst, filepath.Base(srcPath), false),
			Executable: mapping.Executable,
		}}, nil
	}

	var files []resolvedFile
	err = filepath.WalkDir(srcPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcPath, p)
		if err != nil {
			return err
		}
		files = append(files, resolvedFile{
			SrcPath:    p,
			ArcPath:    destPath(mapping.Dst, filepath.ToSlash(rel), true),
			Executable: mapping.Executable,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", srcPath, err)
	}
	return files, nil
}

// destPath joins a mapping destination with a resolved name. forceDir treats
// the destination as a directory even without a trailing slash (globs and
// directory walks, where one destination receives many files).
func destPath(dst, name string, forceDir bool) string {
	if forceDir || strings.HasSuffix(dst, "/") {
		return path.Join(strings.TrimSuffix(dst, "/"), name)
	}
	return path.Clean(dst)
}
