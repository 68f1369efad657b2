/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package manager is the import map facade a web framework talks to.
// It reads precomputed results from the public directory when a build
// step has dumped them, and computes them from the entry store otherwise.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	pfs "bennypowers.dev/pinmap/fs"
	"bennypowers.dev/pinmap/importmap"
	"bennypowers.dev/pinmap/pin"
	"bennypowers.dev/pinmap/resolve"
)

// ImportMapFile is the cached raw import map inside the public directory.
const ImportMapFile = "importmap.json"

// GraphResolver computes import maps from an entry set.
type GraphResolver interface {
	RawMap(entries *importmap.EntrySet) (*importmap.Data, error)
	EntrypointKeys(entries *importmap.EntrySet, name string) ([]string, error)
}

// Lifecycle adds, removes, updates and repairs package entries.
type Lifecycle interface {
	Require(ctx context.Context, requests []pin.Request) ([]importmap.Entry, error)
	Remove(ctx context.Context, names []string) error
	Update(ctx context.Context, names []string) ([]importmap.Entry, error)
	DownloadMissing(ctx context.Context) ([]importmap.Entry, error)
}

// Manager serves import maps for a project, preferring the files
// written by Dump, and forwards package changes to the lifecycle.
type Manager struct {
	fs          pfs.FileSystem
	store       pin.EntryStore
	resolver    GraphResolver
	coordinator Lifecycle
	publicDir   string
	logger      resolve.Logger
}

// New returns a Manager whose cache files live in publicDir.
func New(fsys pfs.FileSystem, store pin.EntryStore, resolver GraphResolver, coordinator Lifecycle, publicDir string) *Manager {
	return &Manager{
		fs:          fsys,
		store:       store,
		resolver:    resolver,
		coordinator: coordinator,
		publicDir:   publicDir,
	}
}

// WithLogger returns a copy that logs to logger.
func (m *Manager) WithLogger(logger resolve.Logger) *Manager {
	cp := *m
	cp.logger = logger
	return &cp
}

// EntrypointFile is the cached preload list of one entrypoint.
func EntrypointFile(name string) string {
	return "entrypoint." + strings.ReplaceAll(name, "/", "--") + ".json"
}

// Entries returns the declared entries.
func (m *Manager) Entries() (*importmap.EntrySet, error) {
	return m.store.Read()
}

// RawImportMap returns every key the project knows about, without
// preload flags.
func (m *Manager) RawImportMap() (*importmap.Data, error) {
	cached, err := m.readCache(ImportMapFile)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		m.debug("Using cached import map", "path", path.Join(m.publicDir, ImportMapFile))
		data, err := importmap.Parse(cached)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ImportMapFile, err)
		}
		return data, nil
	}

	entries, err := m.store.Read()
	if err != nil {
		return nil, err
	}
	return m.resolver.RawMap(entries)
}

// EntrypointKeys returns the keys the named entrypoint eagerly loads.
func (m *Manager) EntrypointKeys(name string) ([]string, error) {
	file := EntrypointFile(name)
	cached, err := m.readCache(file)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		keys, err := importmap.ParseEntrypointKeys(cached)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		return keys, nil
	}

	entries, err := m.store.Read()
	if err != nil {
		return nil, err
	}
	return m.resolver.EntrypointKeys(entries, name)
}

// ImportMapData returns the import map for a page loading the given
// entrypoints, with their eager dependencies first and marked for preload.
func (m *Manager) ImportMapData(names []string) (*importmap.Data, error) {
	raw, err := m.RawImportMap()
	if err != nil {
		return nil, err
	}
	return resolve.Compose(raw, names, m.EntrypointKeys, m.logger)
}

// Require adds or replaces entries.
func (m *Manager) Require(ctx context.Context, requests []pin.Request) ([]importmap.Entry, error) {
	return m.coordinator.Require(ctx, requests)
}

// Remove deletes entries and their vendored files.
func (m *Manager) Remove(ctx context.Context, names []string) error {
	return m.coordinator.Remove(ctx, names)
}

// Update re-resolves remote entries at their latest version.
func (m *Manager) Update(ctx context.Context, names []string) ([]importmap.Entry, error) {
	return m.coordinator.Update(ctx, names)
}

// DownloadMissing restores vendored files that went missing.
func (m *Manager) DownloadMissing(ctx context.Context) ([]importmap.Entry, error) {
	return m.coordinator.DownloadMissing(ctx)
}

// Dump computes the raw import map and the preload list of every
// flagged entrypoint, and writes them to the public directory. Cache
// files of entries no longer flagged are removed. It returns the
// written paths.
func (m *Manager) Dump() ([]string, error) {
	entries, err := m.store.Read()
	if err != nil {
		return nil, err
	}
	raw, err := m.resolver.RawMap(entries)
	if err != nil {
		return nil, err
	}

	if err := m.fs.MkdirAll(m.publicDir, 0755); err != nil {
		return nil, err
	}

	var written []string
	p, err := m.writeJSON(ImportMapFile, raw)
	if err != nil {
		return nil, err
	}
	written = append(written, p)

	keep := map[string]bool{ImportMapFile: true}
	for entry := range entries.All() {
		if !entry.Entrypoint {
			continue
		}
		keys, err := m.resolver.EntrypointKeys(entries, entry.ImportName)
		if err != nil {
			return written, fmt.Errorf("entrypoint %s: %w", entry.ImportName, err)
		}
		file := EntrypointFile(entry.ImportName)
		p, err := m.writeJSON(file, keys)
		if err != nil {
			return written, err
		}
		keep[file] = true
		written = append(written, p)
	}

	m.removeStale(keep)
	return written, nil
}

func (m *Manager) writeJSON(file string, v any) (string, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", file, err)
	}
	p := path.Join(m.publicDir, file)
	if err := m.fs.WriteFile(p, append(content, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", p, err)
	}
	m.debug("Wrote cache file", "path", p)
	return p, nil
}

func (m *Manager) removeStale(keep map[string]bool) {
	dirEntries, err := m.fs.ReadDir(m.publicDir)
	if err != nil {
		return
	}
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || keep[name] || !strings.HasPrefix(name, "entrypoint.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		p := path.Join(m.publicDir, name)
		if err := m.fs.Remove(p); err != nil {
			m.warn("Failed to remove stale cache file", "path", p, "error", err)
		}
	}
}

// readCache returns nil when the cache file does not exist.
func (m *Manager) readCache(file string) ([]byte, error) {
	if m.publicDir == "" {
		return nil, nil
	}
	content, err := m.fs.ReadFile(path.Join(m.publicDir, file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return content, nil
}

func (m *Manager) debug(msg string, keyvals ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, keyvals...)
	}
}

func (m *Manager) warn(msg string, keyvals ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keyvals...)
	}
}
