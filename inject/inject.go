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
// Package inject writes import maps into HTML files in place.
package inject

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"bennypowers.dev/pinmap/fs"
	"bennypowers.dev/pinmap/importmap"
	"bennypowers.dev/pinmap/trace"
)

// Generator returns the import map for a page loading the given entrypoints.
type Generator func(entrypoints []string) (*importmap.Data, error)

// Options configures an injection run.
type Options struct {
	// Entrypoints are loaded by every page, in addition to the declared
	// entries a page's inline module scripts import.
	Entrypoints []string
	// Entries are the declared entries; bare imports of inline module
	// scripts naming one of them make it an entrypoint of the page.
	Entries *importmap.EntrySet
	// Parallel is the number of parallel workers for batch mode.
	Parallel int
	// DryRun prevents writing files when true.
	DryRun bool
}

// Result holds the result of injecting into a single file.
type Result struct {
	File        string   `json:"file"`
	Entrypoints []string `json:"entrypoints,omitempty"`
	Modified    bool     `json:"modified"`
	Inserted    bool     `json:"inserted,omitempty"` // true if new import map, false if replaced
	Error       string   `json:"error,omitempty"`
}

// Stats holds aggregate statistics from an inject operation.
type Stats struct {
	Total    int   `json:"total"`
	Updated  int   `json:"updated"`
	Inserted int   `json:"inserted"`
	Skipped  int   `json:"skipped"`
	Errors   int   `json:"errors"`
	Duration int64 `json:"duration_ms"`
}

// Add counts r.
func (s *Stats) Add(r Result) {
	switch {
	case r.Error != "":
		s.Errors++
	case !r.Modified:
		s.Skipped++
	case r.Inserted:
		s.Inserted++
	default:
		s.Updated++
	}
}

// Batch injects import maps into multiple HTML files in parallel.
// Results arrive in completion order.
func Batch(fsys fs.FileSystem, files []string, generate Generator, opts Options) <-chan Result {
	results := make(chan Result, len(files))

	go func() {
		defer close(results)

		parallel := opts.Parallel
		if parallel <= 0 {
			parallel = runtime.NumCPU()
		}

		jobs := make(chan string, len(files))

		var wg sync.WaitGroup
		for range parallel {
			wg.Go(func() {
				for file := range jobs {
					results <- File(fsys, file, generate, opts)
				}
			})
		}

		for _, file := range files {
			jobs <- file
		}
		close(jobs)

		wg.Wait()
	}()

	return results
}

// File injects the import map into one HTML file.
func File(fsys fs.FileSystem, file string, generate Generator, opts Options) Result {
	result := Result{File: file}

	content, err := fsys.ReadFile(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	p, err := scan(content)
	if err != nil {
		result.Error = fmt.Sprintf("failed to parse HTML: %v", err)
		return result
	}

	result.Entrypoints = entrypoints(p, opts)
	data, err := generate(result.Entrypoints)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	newContent, inserted, err := buildNewContent(content, p, data)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if string(newContent) == string(content) {
		return result
	}

	result.Modified = true
	result.Inserted = inserted

	if !opts.DryRun {
		if err := fsys.WriteFile(file, newContent, 0644); err != nil {
			result.Error = err.Error()
			return result
		}
	}
	return result
}

// entrypoints returns the configured entrypoints followed by the
// declared entries the page's inline module scripts import.
func entrypoints(p page, opts Options) []string {
	names := slices.Clone(opts.Entrypoints)
	for _, module := range p.modules {
		imports, err := trace.ExtractImports([]byte(module))
		if err != nil {
			continue
		}
		for _, imp := range imports {
			if imp.IsDynamic || !trace.IsBareSpecifier(imp.Specifier) {
				continue
			}
			if opts.Entries.Has(imp.Specifier) && !slices.Contains(names, imp.Specifier) {
				names = append(names, imp.Specifier)
			}
		}
	}
	return names
}

// buildNewContent generates new HTML content with the import map inserted or replaced.
func buildNewContent(content []byte, p page, data *importmap.Data) ([]byte, bool, error) {
	importMapJSON := data.BrowserJSON()

	if p.importMap {
		var newContent []byte
		newContent = append(newContent, content[:p.contentStart]...)
		newContent = append(newContent, '\n')
		newContent = append(newContent, indent(importMapJSON, p.indent)...)
		newContent = append(newContent, '\n')
		newContent = append(newContent, p.indentBefore(content)...)
		newContent = append(newContent, content[p.contentEnd:]...)
		return newContent, false, nil
	}

	if p.insertAt < 0 {
		return nil, false, fmt.Errorf("could not find insertion point (no <head> tag)")
	}

	var tag strings.Builder
	tag.WriteString("<script type=\"importmap\">\n")
	tag.WriteString(indent(importMapJSON, p.indent))
	tag.WriteString("\n")
	tag.WriteString(p.indent)
	tag.WriteString("</script>\n")
	tag.WriteString(p.indent)

	var newContent []byte
	newContent = append(newContent, content[:p.insertAt]...)
	newContent = append(newContent, tag.String()...)
	newContent = append(newContent, content[p.insertAt:]...)
	return newContent, true, nil
}

// indentBefore is the indentation of the closing tag of an existing
// import map, or "" when it shares a line with the content.
func (p page) indentBefore(content []byte) string {
	body := content[p.contentStart:p.contentEnd]
	i := strings.LastIndexByte(string(body), '\n')
	if i < 0 {
		return ""
	}
	if tail := string(body[i+1:]); strings.TrimSpace(tail) == "" {
		return tail
	}
	return ""
}

func indent(s, prefix string) string {
	if prefix == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
