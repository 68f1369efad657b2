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
package asset

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"bennypowers.dev/pinmap/fs"
	"bennypowers.dev/pinmap/importmap"
	"bennypowers.dev/pinmap/trace"
)

// Dir is a directory of assets. Files below it get logical paths
// prefixed with Namespace, when set.
type Dir struct {
	Path      string
	Namespace string
}

// ParseDir parses "path" or "namespace=path".
func ParseDir(s string) Dir {
	if ns, p, ok := strings.Cut(s, "="); ok {
		return Dir{Path: p, Namespace: strings.Trim(ns, "/")}
	}
	return Dir{Path: s}
}

// Mapper is a Lookup over directories on a FileSystem. Resolved assets
// are cached for the Mapper's lifetime; lookups are serialized.
type Mapper struct {
	fs       fs.FileSystem
	rootDir  string
	prefix   string
	dirs     []Dir
	excludes []string
	entries  *importmap.EntrySet
	logger   Logger

	mu    sync.Mutex
	cache map[string]*Asset
}

var _ Lookup = (*Mapper)(nil)

// NewMapper creates a Mapper for dirs below rootDir whose public URLs
// start with publicPrefix.
func NewMapper(fsys fs.FileSystem, rootDir, publicPrefix string, dirs ...Dir) *Mapper {
	prefix := "/" + strings.Trim(publicPrefix, "/") + "/"
	if prefix == "//" {
		prefix = "/"
	}
	return &Mapper{
		fs:      fsys,
		rootDir: path.Clean(rootDir),
		prefix:  prefix,
		dirs:    dirs,
		cache:   make(map[string]*Asset),
	}
}

// WithExcludes returns a copy that ignores files whose logical path
// matches any of the doublestar patterns.
func (m *Mapper) WithExcludes(patterns ...string) *Mapper {
	c := m.clone()
	c.excludes = append(append([]string(nil), m.excludes...), patterns...)
	return c
}

// WithEntries returns a copy that resolves bare imports naming entries
// of set through those entries.
func (m *Mapper) WithEntries(set *importmap.EntrySet) *Mapper {
	c := m.clone()
	c.entries = set
	return c
}

// WithLogger returns a copy that logs to logger.
func (m *Mapper) WithLogger(logger Logger) *Mapper {
	c := m.clone()
	c.logger = logger
	return c
}

func (m *Mapper) clone() *Mapper {
	return &Mapper{
		fs:       m.fs,
		rootDir:  m.rootDir,
		prefix:   m.prefix,
		dirs:     m.dirs,
		excludes: m.excludes,
		entries:  m.entries,
		logger:   m.logger,
		cache:    make(map[string]*Asset),
	}
}

// Reset drops every cached asset.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.cache)
}

// ByLogicalPath implements Lookup.
func (m *Mapper) ByLogicalPath(logicalPath string) *Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byLogical(strings.TrimPrefix(path.Clean(logicalPath), "/"))
}

// BySourcePath implements Lookup.
func (m *Mapper) BySourcePath(sourcePath string) *Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bySource(sourcePath)
}

// Logical path for a source file, or "" when it lies outside every dir.
func (m *Mapper) logicalPathFor(sourcePath string) string {
	sourcePath = path.Clean(sourcePath)
	for _, dir := range m.dirs {
		base := path.Join(m.rootDir, dir.Path)
		rel, ok := strings.CutPrefix(sourcePath, base+"/")
		if !ok {
			continue
		}
		if dir.Namespace == "" {
			return rel
		}
		return dir.Namespace + "/" + rel
	}
	return ""
}

func (m *Mapper) bySource(sourcePath string) *Asset {
	logical := m.logicalPathFor(sourcePath)
	if logical == "" {
		return nil
	}
	return m.byLogical(logical)
}

func (m *Mapper) byLogical(logical string) *Asset {
	if a, ok := m.cache[logical]; ok {
		return a
	}
	if m.excluded(logical) {
		return nil
	}
	source := m.sourcePathFor(logical)
	if source == "" {
		return nil
	}
	a, err := m.load(logical, source)
	if err != nil {
		m.warn("Failed to load asset", "path", source, "error", err)
		return nil
	}
	return a
}

// sourcePathFor finds the first dir containing logical.
func (m *Mapper) sourcePathFor(logical string) string {
	for _, dir := range m.dirs {
		rel := logical
		if dir.Namespace != "" {
			var ok bool
			rel, ok = strings.CutPrefix(logical, dir.Namespace+"/")
			if !ok {
				continue
			}
		}
		source := path.Join(m.rootDir, dir.Path, rel)
		if info, err := m.fs.Stat(source); err == nil && !info.IsDir() {
			return source
		}
	}
	return ""
}

func (m *Mapper) excluded(logical string) bool {
	if strings.HasPrefix(path.Base(logical), ".") {
		return true
	}
	for _, pattern := range m.excludes {
		if ok, _ := doublestar.Match(pattern, logical); ok {
			return true
		}
	}
	return false
}

// load builds and caches the asset. The asset is cached before its
// imports are resolved so import cycles terminate.
func (m *Mapper) load(logical, source string) (*Asset, error) {
	content, err := m.fs.ReadFile(source)
	if err != nil {
		return nil, err
	}

	digest := Digest(content)
	a := &Asset{
		LogicalPath:    logical,
		SourcePath:     source,
		PublicPath:     m.prefix + DigestedPath(logical, digest),
		DigestlessPath: m.prefix + logical,
		Type:           importmap.TypeForPath(logical),
		Digest:         digest,
	}
	m.cache[logical] = a

	if a.Type == importmap.JS {
		a.Imports = m.imports(a, content)
	}
	return a, nil
}

func (m *Mapper) imports(a *Asset, content []byte) []Import {
	found, err := trace.ExtractImports(content)
	if err != nil {
		m.warn("Failed to parse imports", "path", a.SourcePath, "error", err)
		return nil
	}

	var imports []Import
	index := make(map[string]int)
	for _, mi := range found {
		if i, seen := index[mi.Specifier]; seen {
			// a static import of the same module makes it eager
			if !mi.IsDynamic {
				imports[i].Lazy = false
			}
			continue
		}

		imp, ok := m.resolveImport(a, mi)
		if !ok {
			continue
		}
		index[mi.Specifier] = len(imports)
		imports = append(imports, imp)
	}
	return imports
}

func (m *Mapper) resolveImport(from *Asset, mi trace.ModuleImport) (Import, bool) {
	switch {
	case trace.IsRelativeSpecifier(mi.Specifier):
		logical := path.Join(path.Dir(from.LogicalPath), stripQuery(mi.Specifier))
		var target *Asset
		if !strings.HasPrefix(logical, "../") {
			target = m.byLogical(logical)
		}
		if target == nil {
			m.debug("Skipping unresolved import", "from", from.LogicalPath, "import", mi.Specifier)
			return Import{}, false
		}
		return Import{
			Target:        target.LogicalPath,
			Lazy:          mi.IsDynamic,
			Asset:         target,
			AddImplicitly: true,
		}, true

	case trace.IsBareSpecifier(mi.Specifier):
		entry, ok := m.entries.Get(mi.Specifier)
		if !ok {
			m.debug("Skipping import of undeclared module", "from", from.LogicalPath, "import", mi.Specifier)
			return Import{}, false
		}
		imp := Import{Target: entry.ImportName, Lazy: mi.IsDynamic}
		if entry.HasLocalFile() {
			imp.Asset = m.entryAsset(entry)
		}
		return imp, true
	}
	return Import{}, false
}

// entryAsset resolves a declared entry's local path the way the import
// map generator does: root-relative source path first, logical path second.
func (m *Mapper) entryAsset(entry importmap.Entry) *Asset {
	p := entry.Path
	if !path.IsAbs(p) {
		p = path.Join(m.rootDir, p)
	}
	if a := m.bySource(p); a != nil {
		return a
	}
	return m.byLogical(strings.TrimPrefix(path.Clean(entry.Path), "/"))
}

func (m *Mapper) debug(msg string, keyvals ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, keyvals...)
	}
}

func (m *Mapper) warn(msg string, keyvals ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keyvals...)
	}
}

// Digest returns the content digest used in public file names.
func Digest(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))[:8]
}

// DigestedPath inserts digest before the extension of logical:
// "app.js" -> "app-<digest>.js".
func DigestedPath(logical, digest string) string {
	ext := path.Ext(logical)
	return strings.TrimSuffix(logical, ext) + "-" + digest + ext
}

func stripQuery(spec string) string {
	if i := strings.IndexAny(spec, "?#"); i >= 0 {
		return spec[:i]
	}
	return spec
}
