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
// Package pin adds, removes, updates and repairs package entries,
// keeping the entry file and vendored files consistent.
package pin

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"bennypowers.dev/pinmap/asset"
	"bennypowers.dev/pinmap/cdn"
	"bennypowers.dev/pinmap/fs"
	"bennypowers.dev/pinmap/importmap"
	"bennypowers.dev/pinmap/resolve"
)

var (
	// ErrRegistry wraps failures of the package registry.
	ErrRegistry = errors.New("package registry failure")
	// ErrDownload is matched by every *DownloadError.
	ErrDownload = errors.New("download failure")
	// ErrLocalPathNotFound is returned when a local request names a
	// file that does not exist.
	ErrLocalPathNotFound = errors.New("local path not found")
)

// DownloadError is a failure to fetch or store a vendored file.
type DownloadError struct {
	ImportName string
	URL        string
	Path       string
	Err        error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s from %s to %s: %v", e.ImportName, e.URL, e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDownload) match.
func (e *DownloadError) Is(target error) bool {
	return target == ErrDownload
}

// EntryStore reads and replaces the persisted entry set.
type EntryStore interface {
	Read() (*importmap.EntrySet, error)
	Write(*importmap.EntrySet) error
	// RootDirectory is the base of relative entry paths.
	RootDirectory() string
}

// RegistryResolver resolves a batch of package requests.
type RegistryResolver interface {
	Resolve(ctx context.Context, requests []cdn.PackageRequest) ([]cdn.ResolvedPackage, error)
}

// Request asks for one entry.
type Request struct {
	// Package is the module specifier, e.g. "lodash" or "lit/decorators.js".
	Package string
	// Version is a version constraint. Empty means latest.
	Version string
	// ImportName overrides the import map key. Empty means Package.
	ImportName string
	// Path makes the request a local entry for that file.
	Path string
	// Download vendors the package into the vendor directory.
	Download   bool
	Entrypoint bool
}

func (r Request) importName() string {
	if r.ImportName != "" {
		return r.ImportName
	}
	return r.Package
}

// DefaultVendorDir is where vendored files go, relative to the store root.
const DefaultVendorDir = "vendor"

// Coordinator runs the entry lifecycle operations. Each operation reads
// the store once and writes it at most once, at the end.
type Coordinator struct {
	fs        fs.FileSystem
	store     EntryStore
	registry  RegistryResolver
	fetcher   cdn.Fetcher
	lookup    asset.Lookup
	vendorDir string
	logger    resolve.Logger
}

// New creates a Coordinator.
func New(fsys fs.FileSystem, store EntryStore, registry RegistryResolver, fetcher cdn.Fetcher, lookup asset.Lookup) *Coordinator {
	return &Coordinator{
		fs:        fsys,
		store:     store,
		registry:  registry,
		fetcher:   fetcher,
		lookup:    lookup,
		vendorDir: DefaultVendorDir,
	}
}

// WithLogger returns a copy that logs to logger.
func (c *Coordinator) WithLogger(logger resolve.Logger) *Coordinator {
	cp := *c
	cp.logger = logger
	return &cp
}

// WithVendorDir returns a copy that vendors into dir, relative to the
// store root.
func (c *Coordinator) WithVendorDir(dir string) *Coordinator {
	cp := *c
	cp.vendorDir = strings.Trim(path.Clean(dir), "/")
	return &cp
}

// VendorPath returns the vendored location of a package specifier,
// relative to the store root. The subpath is kept: "vendor/lodash.js",
// "vendor/@scope/name/sub.js", "vendor/bootstrap/dist/css/bootstrap.min.css".
func (c *Coordinator) VendorPath(pkg string, typ importmap.Type) string {
	name := strings.TrimPrefix(path.Clean("/"+pkg), "/")
	switch path.Ext(name) {
	case ".js", ".mjs", ".css":
	default:
		if typ == importmap.CSS {
			name += ".css"
		} else {
			name += ".js"
		}
	}
	return path.Join(c.vendorDir, name)
}

// abs joins a store-relative path to the store root.
func (c *Coordinator) abs(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(c.store.RootDirectory(), p)
}

// vendoredAsset finds the vendored file of an entry, or nil.
func (c *Coordinator) vendoredAsset(entry importmap.Entry) *asset.Asset {
	if a := c.lookup.BySourcePath(c.abs(entry.Path)); a != nil {
		return a
	}
	if path.IsAbs(entry.Path) {
		return nil
	}
	return c.lookup.ByLogicalPath(strings.TrimPrefix(path.Clean(entry.Path), "./"))
}

func (c *Coordinator) debug(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func (c *Coordinator) info(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keyvals...)
	}
}

func (c *Coordinator) warn(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keyvals...)
	}
}
