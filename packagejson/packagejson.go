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
// Package packagejson parses package.json manifests and resolves the
// file a module specifier points at inside a package.
package packagejson

import (
	"encoding/json"
	"errors"
	"path"
	"strings"
)

// ErrNotExported is returned when a subpath is not exported by the package.
var ErrNotExported = errors.New("not exported by package.json")

// DefaultConditions is the export condition priority for browsers.
var DefaultConditions = []string{"browser", "import", "module", "default"}

// PackageJSON is the subset of package.json pinmap reads.
type PackageJSON struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Main             string            `json:"main,omitempty"`
	Module           string            `json:"module,omitempty"`
	Browser          any               `json:"browser,omitempty"`
	Style            string            `json:"style,omitempty"`
	Exports          any               `json:"exports,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// DependencyRange returns the version range the package declares for
// dep in dependencies or peerDependencies.
func (pkg *PackageJSON) DependencyRange(dep string) (string, bool) {
	if r, ok := pkg.Dependencies[dep]; ok {
		return r, true
	}
	r, ok := pkg.PeerDependencies[dep]
	return r, ok
}

// ResolveExport resolves an exports subpath ("." or "./sub") to a file
// path without a leading "./". Conditions are tried in order; nil means
// DefaultConditions.
func (pkg *PackageJSON) ResolveExport(subpath string, conditions []string) (string, error) {
	if len(conditions) == 0 {
		conditions = DefaultConditions
	}

	switch exports := pkg.Exports.(type) {
	case nil:
		return "", ErrNotExported
	case string:
		if subpath == "." {
			return trimDotSlash(exports), nil
		}
		return "", ErrNotExported
	case map[string]any:
		if !hasSubpathKeys(exports) {
			if subpath == "." {
				return resolveConditions(exports, conditions)
			}
			return "", ErrNotExported
		}
		if value, ok := exports[subpath]; ok {
			return resolveValue(value, conditions)
		}
		return resolvePattern(exports, subpath, conditions)
	}
	return "", ErrNotExported
}

// ResolveEntry returns the file a specifier subpath ("" for the package
// itself) resolves to. Packages without exports fall back to the
// module, browser and main fields, then index.js.
func (pkg *PackageJSON) ResolveEntry(subpath string, conditions []string) (string, error) {
	exportPath := "."
	if subpath != "" {
		exportPath = "./" + subpath
	}
	if pkg.Exports != nil {
		return pkg.ResolveExport(exportPath, conditions)
	}

	if subpath != "" {
		if path.Ext(subpath) == "" {
			return subpath + ".js", nil
		}
		return subpath, nil
	}
	if pkg.Module != "" {
		return trimDotSlash(pkg.Module), nil
	}
	if browser, ok := pkg.Browser.(string); ok && browser != "" {
		return trimDotSlash(browser), nil
	}
	if pkg.Main != "" {
		return trimDotSlash(pkg.Main), nil
	}
	return "index.js", nil
}

func hasSubpathKeys(m map[string]any) bool {
	for key := range m {
		if strings.HasPrefix(key, ".") {
			return true
		}
	}
	return false
}

// resolvePattern matches subpath against "./prefix/*" export keys,
// preferring the longest prefix.
func resolvePattern(exports map[string]any, subpath string, conditions []string) (string, error) {
	bestKey, bestMatch, bestLen := "", "", -1
	for key := range exports {
		prefix, suffix, ok := strings.Cut(key, "*")
		if !ok || !strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, suffix) {
			continue
		}
		if len(subpath) < len(prefix)+len(suffix) {
			continue
		}
		if len(prefix) > bestLen {
			bestKey, bestLen = key, len(prefix)
			bestMatch = subpath[len(prefix) : len(subpath)-len(suffix)]
		}
	}
	if bestKey == "" {
		return "", ErrNotExported
	}
	target, err := resolveValue(exports[bestKey], conditions)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(target, "*", bestMatch), nil
}

func resolveValue(value any, conditions []string) (string, error) {
	switch v := value.(type) {
	case string:
		return trimDotSlash(v), nil
	case map[string]any:
		return resolveConditions(v, conditions)
	case []any:
		for _, alt := range v {
			if target, err := resolveValue(alt, conditions); err == nil {
				return target, nil
			}
		}
	}
	return "", ErrNotExported
}

// resolveConditions tries each condition in order, recursing into
// nested condition maps.
func resolveConditions(m map[string]any, conditions []string) (string, error) {
	for _, cond := range conditions {
		if value, ok := m[cond]; ok {
			if target, err := resolveValue(value, conditions); err == nil {
				return target, nil
			}
		}
	}
	return "", ErrNotExported
}

func trimDotSlash(p string) string {
	return strings.TrimPrefix(p, "./")
}
