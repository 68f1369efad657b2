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
// Package asset maps source files to public, digest-stamped URLs and
// records the modules each file imports.
package asset

import "bennypowers.dev/pinmap/importmap"

// Asset is a resolved file in the asset tree.
type Asset struct {
	// LogicalPath is the namespaced path inside the asset tree, e.g. "app.js"
	// or "vendor/lodash.js".
	LogicalPath string
	// SourcePath is the file's location on disk.
	SourcePath string
	// PublicPath is the digest-stamped URL, e.g. "/assets/app-3f2a9c1b.js".
	PublicPath string
	// DigestlessPath is PublicPath without the digest, e.g. "/assets/app.js".
	DigestlessPath string
	Type           importmap.Type
	Digest         string
	// Imports are the modules this asset imports, in source order.
	Imports []Import
}

// Import is one module imported by an asset.
type Import struct {
	// Target is the logical path of a relative import, or the bare module
	// name of an import that resolves through a declared entry.
	Target string
	// Lazy is set for dynamic import() calls.
	Lazy bool
	// Asset is the imported file. It is nil when the target is a declared
	// entry with no local file.
	Asset *Asset
	// AddImplicitly marks imports that need their own import map key.
	AddImplicitly bool
}

// Lookup finds assets. Both methods return nil when the path does not
// resolve to an asset.
type Lookup interface {
	ByLogicalPath(logicalPath string) *Asset
	BySourcePath(sourcePath string) *Asset
}

// Logger receives diagnostics from the Mapper.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}
