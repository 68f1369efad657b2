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
package cdn

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Template is a URL pattern with placeholders:
//   - {package} full package name, "@scope/name" or "name"
//   - {name} package name without scope
//   - {scope} scope without "@", empty for unscoped packages
//   - {version} resolved version
//   - {path} file path inside the package
type Template struct {
	pattern   string
	variables []string
}

var variablePattern = regexp.MustCompile(`\{(\w+)\}`)

var knownVariables = []string{"package", "name", "scope", "version", "path"}

// ParseTemplate parses a URL template pattern.
func ParseTemplate(pattern string) (*Template, error) {
	if pattern == "" {
		return nil, fmt.Errorf("template pattern cannot be empty")
	}

	var variables []string
	for _, match := range variablePattern.FindAllStringSubmatch(pattern, -1) {
		if !slices.Contains(knownVariables, match[1]) {
			return nil, fmt.Errorf("unknown template variable: {%s}", match[1])
		}
		variables = append(variables, match[1])
	}
	if !slices.Contains(variables, "package") && !slices.Contains(variables, "name") {
		return nil, fmt.Errorf("template %q must reference {package} or {name}", pattern)
	}

	return &Template{pattern: pattern, variables: variables}, nil
}

// Expand fills the template for a file of pkg at version.
func (t *Template) Expand(pkg, version, file string) string {
	name, scope := SplitPackageName(pkg)
	return strings.NewReplacer(
		"{package}", pkg,
		"{name}", name,
		"{scope}", scope,
		"{version}", version,
		"{path}", strings.TrimPrefix(file, "/"),
	).Replace(t.pattern)
}

// Pattern returns the original pattern.
func (t *Template) Pattern() string {
	return t.pattern
}

// HasVersion reports whether the template pins a {version}.
func (t *Template) HasVersion() bool {
	return slices.Contains(t.variables, "version")
}

// SplitPackageName splits "@scope/name" into ("name", "scope").
// Unscoped names return an empty scope.
func SplitPackageName(pkg string) (name, scope string) {
	if rest, ok := strings.CutPrefix(pkg, "@"); ok {
		if s, n, ok := strings.Cut(rest, "/"); ok {
			return n, s
		}
	}
	return pkg, ""
}
