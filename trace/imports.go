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
// Package trace discovers the module specifiers a JavaScript source imports.
package trace

import (
	"errors"
	"slices"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// ErrParse is returned when tree-sitter cannot produce a syntax tree.
var ErrParse = errors.New("failed to parse module source")

// ModuleImport is one import found in a module.
// Static imports and re-exports are eager; import() calls are dynamic.
type ModuleImport struct {
	Specifier string
	IsDynamic bool
	Line      int // 1-indexed
	offset    uint
}

// ExtractImports returns the imports of a JavaScript or TypeScript
// source in document order. Duplicates are kept.
func ExtractImports(content []byte) ([]ModuleImport, error) {
	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}
	query, err := qm.Query("imports")
	if err != nil {
		return nil, err
	}

	parser := getTSParser()
	defer putTSParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, ErrParse
	}
	defer tree.Close()

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []ModuleImport
	captureNames := query.CaptureNames()
	matches := cursor.Matches(query, tree.RootNode(), content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		for _, capture := range match.Captures {
			imp := ModuleImport{
				Specifier: capture.Node.Utf8Text(content),
				Line:      int(capture.Node.StartPosition().Row) + 1,
				offset:    capture.Node.StartByte(),
			}
			switch captureNames[capture.Index] {
			case "import.spec", "reexport.spec":
			case "dynamicImport.spec":
				imp.IsDynamic = true
			default:
				continue
			}
			imports = append(imports, imp)
		}
	}

	slices.SortStableFunc(imports, func(a, b ModuleImport) int {
		return int(a.offset) - int(b.offset)
	})
	return imports, nil
}

// IsBareSpecifier reports whether specifier must be resolved through an
// import map: not relative, not root-absolute and not a URL.
func IsBareSpecifier(specifier string) bool {
	switch {
	case specifier == "":
		return false
	case strings.HasPrefix(specifier, "./"), strings.HasPrefix(specifier, "../"):
		return false
	case strings.HasPrefix(specifier, "/"):
		return false
	case strings.Contains(specifier, "://"), strings.HasPrefix(specifier, "data:"):
		return false
	}
	return true
}

// IsRelativeSpecifier reports whether specifier starts with ./ or ../.
func IsRelativeSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
