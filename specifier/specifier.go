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
// Package specifier parses package specifier strings of the form
// [registry:]package[@version][=alias].
package specifier

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidSpecifier is returned for empty or malformed specifiers.
var ErrInvalidSpecifier = errors.New("invalid package specifier")

// InvalidSpecifierError describes why a specifier was rejected.
type InvalidSpecifierError struct {
	Input  string
	Reason string
}

func (e *InvalidSpecifierError) Error() string {
	return fmt.Sprintf("invalid package specifier %q: %s", e.Input, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidSpecifier) match.
func (e *InvalidSpecifierError) Is(target error) bool {
	return target == ErrInvalidSpecifier
}

// PackageSpec is a parsed package specifier.
// Version and Alias are empty when absent.
type PackageSpec struct {
	Registry string
	Package  string
	Version  string
	Alias    string
}

// Parse parses a package specifier.
//
//	lodash                      -> {Package: "lodash"}
//	lodash@^4.17                -> {Package: "lodash", Version: "^4.17"}
//	npm:@scope/name@^1.2.3=alias -> {Registry: "npm", Package: "@scope/name", Version: "^1.2.3", Alias: "alias"}
//	bootstrap/dist/css/bootstrap.min.css
func Parse(spec string) (*PackageSpec, error) {
	fail := func(reason string) (*PackageSpec, error) {
		return nil, &InvalidSpecifierError{Input: spec, Reason: reason}
	}

	s := strings.TrimSpace(spec)
	if s == "" {
		return fail("empty")
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return fail("contains whitespace")
	}

	result := &PackageSpec{}

	// Registry: everything before the first unescaped colon
	if i := unescapedIndex(s, ':'); i >= 0 {
		result.Registry = s[:i]
		s = s[i+1:]
		if result.Registry == "" {
			return fail("empty registry")
		}
	}
	s = strings.ReplaceAll(s, `\:`, ":")

	// Alias: everything after the last '='
	if i := strings.LastIndex(s, "="); i >= 0 {
		result.Alias = s[i+1:]
		s = s[:i]
		if result.Alias == "" {
			return fail("empty alias")
		}
		if strings.Contains(s, "=") {
			return fail("more than one '='")
		}
	}

	// Version: the first '@' that is not the scope marker
	start := 0
	if strings.HasPrefix(s, "@") {
		start = 1
	}
	if i := strings.Index(s[start:], "@"); i >= 0 {
		at := start + i
		result.Version = s[at+1:]
		s = s[:at]
		if result.Version == "" {
			return fail("empty version")
		}
	}

	result.Package = s
	if result.Package == "" || result.Package == "@" {
		return fail("empty package name")
	}
	if strings.HasPrefix(result.Package, "@") {
		scope, name, ok := strings.Cut(result.Package[1:], "/")
		if !ok || scope == "" || name == "" {
			return fail("scoped packages must look like @scope/name")
		}
	}
	if strings.HasPrefix(result.Package, "/") || strings.HasPrefix(result.Package, ".") {
		return fail("package name must not be a path")
	}

	return result, nil
}

// Name returns the package name without any subpath.
// For "@scope/name/sub.js" returns "@scope/name"; for "lodash/fp" returns "lodash".
func (p *PackageSpec) Name() string {
	name, _ := splitSubpath(p.Package)
	return name
}

// Subpath returns the path inside the package, without a leading slash.
// It is empty when the specifier names the package itself.
func (p *PackageSpec) Subpath() string {
	_, sub := splitSubpath(p.Package)
	return sub
}

// ImportName returns the alias, or the package when there is none.
func (p *PackageSpec) ImportName() string {
	if p.Alias != "" {
		return p.Alias
	}
	return p.Package
}

// String reassembles the specifier.
func (p *PackageSpec) String() string {
	var b strings.Builder
	if p.Registry != "" {
		b.WriteString(p.Registry)
		b.WriteByte(':')
	}
	b.WriteString(p.Package)
	if p.Version != "" {
		b.WriteByte('@')
		b.WriteString(p.Version)
	}
	if p.Alias != "" {
		b.WriteByte('=')
		b.WriteString(p.Alias)
	}
	return b.String()
}

// SplitPackage splits a module specifier into package name and subpath.
// "lit/decorators.js" -> ("lit", "decorators.js").
func SplitPackage(module string) (name, subpath string) {
	return splitSubpath(module)
}

func splitSubpath(pkg string) (string, string) {
	parts := strings.SplitN(pkg, "/", 3)
	if strings.HasPrefix(pkg, "@") {
		if len(parts) < 3 {
			return pkg, ""
		}
		return parts[0] + "/" + parts[1], parts[2]
	}
	name, sub, _ := strings.Cut(pkg, "/")
	return name, sub
}

// unescapedIndex returns the index of the first c not preceded by a backslash.
func unescapedIndex(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == c {
			return i
		}
	}
	return -1
}
