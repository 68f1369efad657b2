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
package resolve

import (
	"fmt"
	"path"
	"strings"

	"bennypowers.dev/pinmap/asset"
	"bennypowers.dev/pinmap/importmap"
)

// Resolver turns an entry set into import map data. It holds no
// per-call state, so one Resolver may serve concurrent calls.
type Resolver struct {
	lookup  asset.Lookup
	rootDir string
	logger  Logger
}

// New creates a Resolver that resolves relative entry paths against rootDir.
func New(lookup asset.Lookup, rootDir string) *Resolver {
	return &Resolver{lookup: lookup, rootDir: rootDir}
}

// WithLogger returns a copy of the resolver that logs to logger.
func (r *Resolver) WithLogger(logger Logger) *Resolver {
	return &Resolver{lookup: r.lookup, rootDir: r.rootDir, logger: logger}
}

// RawMap returns every entry followed by its implicit dependencies,
// depth-first, in entry set order. No key is marked for preload.
func (r *Resolver) RawMap(entries *importmap.EntrySet) (*importmap.Data, error) {
	data := importmap.NewData()
	visited := make(map[string]bool)

	for entry := range entries.All() {
		if entry.IsRemoteOnly() {
			data.Set(entry.ImportName, importmap.Item{Path: entry.URL, Type: entry.EntryType()})
			continue
		}

		a, err := r.entryAsset(entry)
		if err != nil {
			return nil, err
		}
		data.Set(entry.ImportName, importmap.Item{Path: a.PublicPath, Type: entry.EntryType()})

		if visited[a.LogicalPath] {
			continue
		}
		visited[a.LogicalPath] = true
		if entry.EntryType() == importmap.JS {
			addImplicit(data, visited, entries, a)
		}
	}

	return data, nil
}

// addImplicit emits the implicit dependencies of a, depth-first.
// Emission is decided by the keys already in data, so a file that is
// also a top-level entry still gets its implicit key. visited only
// stops re-traversal. Imports resolved through a declared entry are
// traversed but not emitted.
func addImplicit(data *importmap.Data, visited map[string]bool, entries *importmap.EntrySet, a *asset.Asset) {
	for _, imp := range a.Imports {
		target := imp.Asset
		if target == nil {
			continue
		}
		if imp.AddImplicitly && !entries.Has(imp.Target) && !data.Has(target.DigestlessPath) {
			data.Set(target.DigestlessPath, importmap.Item{Path: target.PublicPath, Type: target.Type})
		}

		if visited[target.LogicalPath] {
			continue
		}
		visited[target.LogicalPath] = true
		if target.Type != importmap.CSS {
			addImplicit(data, visited, entries, target)
		}
	}
}

// EntrypointKeys returns the keys an entrypoint eagerly depends on, in
// depth-first pre-order, excluding the entrypoint itself. Lazy imports
// and everything only reachable through them are left out.
func (r *Resolver) EntrypointKeys(entries *importmap.EntrySet, name string) ([]string, error) {
	entry, ok := entries.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", importmap.ErrUnknownEntry, name)
	}
	if !entry.Entrypoint {
		r.debug("Entry is not flagged as an entrypoint", "name", name)
	}
	if entry.IsRemoteOnly() {
		return []string{}, nil
	}

	a, err := r.entryAsset(entry)
	if err != nil {
		return nil, err
	}

	keys := []string{}
	seen := map[string]bool{name: true}
	visited := map[string]bool{a.LogicalPath: true}
	collectEager(&keys, seen, visited, a)
	return keys, nil
}

func collectEager(keys *[]string, seen, visited map[string]bool, a *asset.Asset) {
	for _, imp := range a.Imports {
		if imp.Lazy {
			continue
		}

		target := imp.Asset
		if target == nil {
			// declared entry without a local file
			if !imp.AddImplicitly && !seen[imp.Target] {
				seen[imp.Target] = true
				*keys = append(*keys, imp.Target)
			}
			continue
		}
		if visited[target.LogicalPath] {
			continue
		}
		visited[target.LogicalPath] = true

		key := imp.Target
		if imp.AddImplicitly {
			key = target.DigestlessPath
		}
		if !seen[key] {
			seen[key] = true
			*keys = append(*keys, key)
		}
		if target.Type != importmap.CSS {
			collectEager(keys, seen, visited, target)
		}
	}
}

// ImportMapData returns the import map for the given entrypoints:
// each entrypoint and its eager dependencies first, marked for preload,
// then every other key.
func (r *Resolver) ImportMapData(entries *importmap.EntrySet, names []string) (*importmap.Data, error) {
	raw, err := r.RawMap(entries)
	if err != nil {
		return nil, err
	}
	return Compose(raw, names, func(name string) ([]string, error) {
		return r.EntrypointKeys(entries, name)
	}, r.logger)
}

// Compose orders raw for the given entrypoints. eager returns an
// entrypoint's eager keys. A key keeps the position it was first
// placed at; later mentions only mark it for preload. Eager keys absent
// from raw are skipped. logger may be nil.
func Compose(raw *importmap.Data, names []string, eager func(name string) ([]string, error), logger Logger) (*importmap.Data, error) {
	out := importmap.NewData()

	place := func(key string) bool {
		if out.Has(key) {
			out.MarkPreload(key)
			return true
		}
		item, ok := raw.Get(key)
		if !ok {
			return false
		}
		item.Preload = true
		out.Set(key, item)
		return true
	}

	for _, name := range names {
		if !raw.Has(name) {
			return nil, fmt.Errorf("%w: %s", importmap.ErrUnknownEntry, name)
		}
		place(name)

		keys, err := eager(name)
		if err != nil {
			return nil, fmt.Errorf("entrypoint %s: %w", name, err)
		}
		for _, key := range keys {
			if !place(key) && logger != nil {
				logger.Debug("Skipping preload key missing from import map", "entrypoint", name, "key", key)
			}
		}
	}

	for _, key := range raw.Keys() {
		if out.Has(key) {
			continue
		}
		item, _ := raw.Get(key)
		item.Preload = false
		out.Set(key, item)
	}

	return out, nil
}

// entryAsset resolves the local file of an entry.
func (r *Resolver) entryAsset(entry importmap.Entry) (*asset.Asset, error) {
	p := entry.Path
	if !path.IsAbs(p) {
		p = path.Join(r.rootDir, p)
	}
	if a := r.lookup.BySourcePath(p); a != nil {
		return a, nil
	}
	if !path.IsAbs(entry.Path) {
		logical := strings.TrimPrefix(path.Clean(entry.Path), "./")
		if a := r.lookup.ByLogicalPath(logical); a != nil {
			return a, nil
		}
	}
	return nil, &AssetNotFoundError{ImportName: entry.ImportName, Path: entry.Path}
}

func (r *Resolver) debug(msg string, keyvals ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, keyvals...)
	}
}
