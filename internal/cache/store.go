// SPDX-License-Identifier: MPL-2.0

// Package cache implements the content-addressed build cache: deterministic
// cache keys computed from build inputs, and a durable store of built
// artifacts keyed by them.
//
// On-disk layout under the cache root:
//
//	packages/<key>/     copied artifact files for one entry
//	metadata/<key>.json complete metadata record, written last
//
// No state is held in memory; every call re-reads the filesystem, so one
// cache root can be shared by multiple processes. Concurrent writers of the
// same key are not coordinated beyond atomic metadata replacement (the last
// rename wins).
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/opencontainers/go-digest"
)

type (
	// ArtifactInfo describes one cached artifact file.
	ArtifactInfo struct {
		Filename string        `json:"filename"`
		Size     int64         `json:"size"`
		Digest   digest.Digest `json:"digest"`
	}

	// Entry is the persisted metadata record for one cache entry.
	Entry struct {
		Key      string            `json:"key"`
		Packages []ArtifactInfo    `json:"packages"`
		Extra    map[string]string `json:"extra,omitempty"`
	}

	// Stats summarizes the cache contents.
	Stats struct {
		Root       string
		Entries    int
		TotalBytes int64
	}

	// Store is a content-addressed artifact store rooted at a directory.
	Store struct {
		root     string
		packages string
		metadata string
		logger   *log.Logger
	}
)

// Open creates a Store at root, creating the directory layout if needed.
func Open(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	s := &Store{
		root:     abs,
		packages: filepath.Join(abs, "packages"),
		metadata: filepath.Join(abs, "metadata"),
		logger:   log.Default().With("component", "cache"),
	}
	for _, dir := range []string{s.packages, s.metadata} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Get returns the artifact paths for key, or ok=false on a miss. The lookup
// fails closed: a missing entry directory, a missing or corrupt metadata
// record, or any missing artifact file all count as a miss. Get never returns
// a partial artifact list.
func (s *Store) Get(key string) ([]string, bool) {
	entryDir := filepath.Join(s.packages, key)
	if _, err := os.Stat(entryDir); err != nil {
		return nil, false
	}

	entry, err := s.readEntry(key)
	if err != nil {
		s.logger.Debug("discarding unreadable cache entry", "key", key, "err", err)
		return nil, false
	}

	paths := make([]string, 0, len(entry.Packages))
	for _, pkg := range entry.Packages {
		path := filepath.Join(entryDir, pkg.Filename)
		if _, err := os.Stat(path); err != nil {
			// Incomplete entry: treat the whole entry as absent.
			s.logger.Debug("cache entry missing artifact", "key", key, "artifact", pkg.Filename)
			return nil, false
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, false
	}
	return paths, true
}

// Put copies the artifact files into the entry directory for key, then writes
// the metadata record. The record is written to a temp file and renamed into
// place so a concurrent Get observes either no record or a complete one.
func (s *Store) Put(key string, artifacts []string, extra map[string]string) error {
	entryDir := filepath.Join(s.packages, key)
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return fmt.Errorf("create cache entry %s: %w", key, err)
	}

	infos := make([]ArtifactInfo, 0, len(artifacts))
	for _, src := range artifacts {
		info, err := s.copyArtifact(src, entryDir)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}

	entry := Entry{Key: key, Packages: infos, Extra: extra}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache metadata for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.metadata, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cache metadata for %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache metadata for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache metadata for %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.metadataPath(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit cache metadata for %s: %w", key, err)
	}

	s.logger.Debug("stored cache entry", "key", key, "artifacts", len(infos))
	return nil
}

// Delete removes the entry for key. It reports whether anything was removed.
func (s *Store) Delete(key string) bool {
	deleted := false
	entryDir := filepath.Join(s.packages, key)
	if _, err := os.Stat(entryDir); err == nil {
		if err := os.RemoveAll(entryDir); err == nil {
			deleted = true
		}
	}
	if err := os.Remove(s.metadataPath(key)); err == nil {
		deleted = true
	}
	return deleted
}

// Clear removes all entries and returns how many entry directories were removed.
func (s *Store) Clear() (int, error) {
	entries, err := os.ReadDir(s.packages)
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.packages, entry.Name())); err != nil {
			return count, fmt.Errorf("remove cache entry %s: %w", entry.Name(), err)
		}
		count++
	}
	metas, err := os.ReadDir(s.metadata)
	if err != nil {
		return count, fmt.Errorf("list cache metadata: %w", err)
	}
	for _, meta := range metas {
		if strings.HasSuffix(meta.Name(), ".json") {
			os.Remove(filepath.Join(s.metadata, meta.Name()))
		}
	}
	return count, nil
}

// Status reports the cache root, entry count, and total artifact bytes.
func (s *Store) Status() (Stats, error) {
	stats := Stats{Root: s.root}
	entries, err := os.ReadDir(s.packages)
	if err != nil {
		return stats, fmt.Errorf("list cache entries: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stats.Entries++
		err := filepath.WalkDir(filepath.Join(s.packages, entry.Name()), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				info, err := d.Info()
				if err != nil {
					return err
				}
				stats.TotalBytes += info.Size()
			}
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("scan cache entry %s: %w", entry.Name(), err)
		}
	}
	return stats, nil
}

// ListEntries returns all parseable metadata records sorted by key. Records
// that fail to parse are skipped, not fatal.
func (s *Store) ListEntries() []Entry {
	metas, err := os.ReadDir(s.metadata)
	if err != nil {
		return nil
	}
	var out []Entry
	for _, meta := range metas {
		name := meta.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		entry, err := s.readEntry(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.logger.Debug("skipping corrupt cache metadata", "file", name, "err", err)
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *Store) metadataPath(key string) string {
	return filepath.Join(s.metadata, key+".json")
}

func (s *Store) readEntry(key string) (Entry, error) {
	data, err := os.ReadFile(s.metadataPath(key))
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("parse cache metadata %s.json: %w", key, err)
	}
	if entry.Key == "" {
		return Entry{}, errors.New("cache metadata record has no key")
	}
	return entry, nil
}

// copyArtifact copies src into dir, computing the content digest and size in
// the same pass.
func (s *Store) copyArtifact(src, dir string) (ArtifactInfo, error) {
	in, err := os.Open(src)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("open artifact %s: %w", src, err)
	}
	defer in.Close()

	name := filepath.Base(src)
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("create cached artifact %s: %w", name, err)
	}
	defer out.Close()

	digester := digest.SHA256.Digester()
	size, err := io.Copy(io.MultiWriter(out, digester.Hash()), in)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("copy artifact %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return ArtifactInfo{}, fmt.Errorf("flush cached artifact %s: %w", name, err)
	}

	return ArtifactInfo{Filename: name, Size: size, Digest: digester.Digest()}, nil
}
