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
// Package store persists the entry set as a YAML file.
//
//	app:
//	  path: ./assets/app.js
//	  entrypoint: true
//	lodash:
//	  url: https://cdn.jsdelivr.net/npm/lodash@4.17.21/lodash.js
//	  version: 4.17.21
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	pfs "bennypowers.dev/pinmap/fs"
	"bennypowers.dev/pinmap/importmap"
)

// DefaultFileName is the entry file name inside a project.
const DefaultFileName = "importmap.yaml"

// entryYAML is the on-disk form of one entry.
type entryYAML struct {
	Path       string `yaml:"path,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Type       string `yaml:"type,omitempty"`
	Entrypoint bool   `yaml:"entrypoint,omitempty"`
	Downloaded bool   `yaml:"downloaded,omitempty"`
	Package    string `yaml:"package,omitempty"`
	Version    string `yaml:"version,omitempty"`
}

// File stores entries in a YAML file. Key order in the file is entry order.
type File struct {
	fs   pfs.FileSystem
	path string
}

// NewFile returns a store for the YAML file at filePath.
func NewFile(fsys pfs.FileSystem, filePath string) *File {
	return &File{fs: fsys, path: path.Clean(filePath)}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// RootDirectory returns the directory relative entry paths are based on.
func (f *File) RootDirectory() string {
	return path.Dir(f.path)
}

// Read loads the entry set. A missing file is an empty set.
func (f *File) Read() (*importmap.EntrySet, error) {
	data, err := f.fs.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return importmap.NewEntrySet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	set, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return set, nil
}

// Write replaces the file with set. The content goes to a sibling
// temporary file first and is renamed over the target.
func (f *File) Write(set *importmap.EntrySet) error {
	data, err := Encode(set)
	if err != nil {
		return err
	}
	if err := f.fs.MkdirAll(path.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path.Dir(f.path), err)
	}
	tmp := f.path + ".tmp"
	if err := f.fs.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Decode parses entry YAML, keeping key order.
func Decode(data []byte) (*importmap.EntrySet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid entry file: %w", err)
	}

	set := importmap.NewEntrySet()
	if len(doc.Content) == 0 {
		return set, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid entry file: line %d: expected a mapping of import names", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		var raw entryYAML
		if value.Kind == yaml.ScalarNode && value.Tag != "!!null" {
			// shorthand: "name: ./path.js"
			raw.Path = value.Value
		} else if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid entry %q at line %d: %w", key.Value, key.Line, err)
		}

		typ, err := importmap.ParseType(raw.Type)
		if err != nil {
			return nil, fmt.Errorf("invalid entry %q at line %d: %w", key.Value, key.Line, err)
		}
		entry := importmap.Entry{
			ImportName: key.Value,
			Path:       raw.Path,
			URL:        raw.URL,
			Type:       typ,
			Entrypoint: raw.Entrypoint,
			Downloaded: raw.Downloaded,
			Package:    raw.Package,
			Version:    raw.Version,
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
		if set.Has(entry.ImportName) {
			return nil, fmt.Errorf("line %d: duplicate import name %q", key.Line, entry.ImportName)
		}
		set.Set(entry)
	}
	return set, nil
}

// Encode renders set as entry YAML.
func Encode(set *importmap.EntrySet) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for entry := range set.All() {
		raw := entryYAML{
			Path:       entry.Path,
			URL:        entry.URL,
			Entrypoint: entry.Entrypoint,
			Downloaded: entry.Downloaded,
			Version:    entry.Version,
		}
		if entry.EntryType() != importmap.JS {
			raw.Type = string(entry.Type)
		}
		if entry.Package != entry.ImportName {
			raw.Package = entry.Package
		}

		var value yaml.Node
		if err := value.Encode(raw); err != nil {
			return nil, fmt.Errorf("failed to encode entry %q: %w", entry.ImportName, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.ImportName},
			&value,
		)
	}
	if len(root.Content) == 0 {
		return []byte("{}\n"), nil
	}
	return yaml.Marshal(root)
}
