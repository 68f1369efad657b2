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
package importmap

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnknownEntry is returned when an operation names an import that is
// not declared in the entry set.
var ErrUnknownEntry = errors.New("unknown import map entry")

// ErrInvalidEntry is returned by Entry.Validate.
var ErrInvalidEntry = errors.New("invalid import map entry")

// Type is the kind of module an entry points at.
type Type string

const (
	// JS is an ES module. It is the default type.
	JS Type = "js"
	// CSS is a stylesheet. CSS entries are leaves in the dependency graph.
	CSS Type = "css"
)

// ParseType converts a configuration string into a Type.
// An empty string yields JS.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "js":
		return JS, nil
	case "css":
		return CSS, nil
	default:
		return "", fmt.Errorf("unknown entry type %q: must be js or css", s)
	}
}

// TypeForPath guesses an entry type from a file or URL path.
func TypeForPath(p string) Type {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if strings.EqualFold(path.Ext(p), ".css") {
		return CSS
	}
	return JS
}

// Entry is one import map line as declared by configuration.
type Entry struct {
	// ImportName is the module specifier, unique within an EntrySet.
	ImportName string
	// Path is a local file path, relative to the project root or absolute.
	Path string
	// URL is the remote location of a package.
	URL string
	// Type defaults to JS when empty.
	Type Type
	// Entrypoint marks modules loaded directly by a page.
	Entrypoint bool
	// Downloaded is set once a remote package has been vendored to Path.
	Downloaded bool
	// Package is the package module specifier the entry was required from
	// (e.g. "lodash/fp"). Empty means ImportName.
	Package string
	// Version is the version the registry pinned, if known.
	Version string
}

// EntryType returns the entry type, defaulting to JS.
func (e Entry) EntryType() Type {
	if e.Type == "" {
		return JS
	}
	return e.Type
}

// PackageSpecifier returns the package the entry resolves through the registry.
func (e Entry) PackageSpecifier() string {
	if e.Package != "" {
		return e.Package
	}
	return e.ImportName
}

// IsRemote reports whether the entry came from a package registry.
func (e Entry) IsRemote() bool {
	return e.URL != ""
}

// IsRemoteOnly reports whether the entry is served straight from its URL.
func (e Entry) IsRemoteOnly() bool {
	return e.URL != "" && !e.Downloaded
}

// HasLocalFile reports whether the entry resolves through the asset pipeline.
func (e Entry) HasLocalFile() bool {
	return e.Path != "" && !e.IsRemoteOnly()
}

// Validate checks the entry invariants.
func (e Entry) Validate() error {
	if e.ImportName == "" {
		return fmt.Errorf("%w: missing import name", ErrInvalidEntry)
	}
	if e.Path == "" && e.URL == "" {
		return fmt.Errorf("%w: %q needs a path or a url", ErrInvalidEntry, e.ImportName)
	}
	if e.Downloaded && (e.Path == "" || e.URL == "") {
		return fmt.Errorf("%w: downloaded entry %q needs both a path and a url", ErrInvalidEntry, e.ImportName)
	}
	if e.Type != "" && e.Type != JS && e.Type != CSS {
		return fmt.Errorf("%w: %q has unknown type %q", ErrInvalidEntry, e.ImportName, e.Type)
	}
	return nil
}
