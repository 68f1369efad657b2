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
// Package importmap provides the entry model and the serializable import map
// body produced from it.
// See https://developer.mozilla.org/en-US/docs/Web/HTML/Element/script/type/importmap
package importmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Item is the value stored under one import map key.
type Item struct {
	Path    string `json:"path"`
	Type    Type   `json:"type"`
	Preload bool   `json:"preload,omitempty"`
}

// Data is an ordered import map body: key -> Item.
// Key order is significant because browsers process preloads in document
// order, so Data marshals and unmarshals its keys in order.
type Data struct {
	keys  []string
	items map[string]Item
}

// NewData creates an empty import map body.
func NewData() *Data {
	return &Data{items: make(map[string]Item)}
}

// Set stores item under key. A new key is appended; an existing key keeps
// its position.
func (d *Data) Set(key string, item Item) {
	if d.items == nil {
		d.items = make(map[string]Item)
	}
	if _, exists := d.items[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.items[key] = item
}

// Get returns the item stored under key.
func (d *Data) Get(key string) (Item, bool) {
	if d == nil {
		return Item{}, false
	}
	item, ok := d.items[key]
	return item, ok
}

// Has reports whether key is present.
func (d *Data) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// MarkPreload sets the preload flag on an existing key without moving it.
func (d *Data) MarkPreload(key string) {
	if item, ok := d.items[key]; ok {
		item.Preload = true
		d.items[key] = item
	}
}

// Keys returns the keys in order.
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// Len returns the number of keys.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Imports returns the browser-facing specifier -> URL mapping, in order.
func (d *Data) Imports() []Import {
	imports := make([]Import, 0, d.Len())
	for _, key := range d.Keys() {
		imports = append(imports, Import{Specifier: key, URL: d.items[key].Path})
	}
	return imports
}

// Import is one line of the browser import map.
type Import struct {
	Specifier string
	URL       string
}

// MarshalJSON implements json.Marshaler, keeping key order.
func (d *Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(d.items[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping key order.
func (d *Data) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("import map data must be a JSON object")
	}
	*d = Data{items: make(map[string]Item)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in import map data", tok)
		}
		var item Item
		if err := dec.Decode(&item); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		if item.Type == "" {
			item.Type = JS
		}
		d.Set(key, item)
	}
	_, err = dec.Token()
	return err
}

// Parse parses a previously generated import map body.
func Parse(data []byte) (*Data, error) {
	d := NewData()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseEntrypointKeys parses a previously generated entrypoint preload list.
func ParseEntrypointKeys(data []byte) ([]string, error) {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
