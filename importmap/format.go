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
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// ToJSON renders the body as indented JSON, or "" when it is empty.
func (d *Data) ToJSON() string {
	if d.Len() == 0 {
		return ""
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return ""
	}
	return out.String()
}

// BrowserJSON renders the browser import map: {"imports": {specifier: url}}.
// Only JS items belong to the browser map; CSS is linked, not imported.
func (d *Data) BrowserJSON() string {
	var b strings.Builder
	b.WriteString("{\n  \"imports\": {")
	first := true
	for _, imp := range d.Imports() {
		if item, _ := d.Get(imp.Specifier); item.Type == CSS {
			continue
		}
		k, _ := json.Marshal(imp.Specifier)
		v, _ := json.Marshal(imp.URL)
		if !first {
			b.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&b, "\n    %s: %s", k, v)
	}
	if !first {
		b.WriteString("\n  ")
	}
	b.WriteString("}\n}")
	return b.String()
}

// Format renders the body in the given format:
//   - "json": the ordered body with types and preload flags
//   - "importmap": the browser import map JSON
//   - "html": an importmap script tag followed by preload links
func (d *Data) Format(format string) string {
	switch format {
	case "html":
		return d.toHTML()
	case "importmap":
		return d.BrowserJSON()
	default:
		return d.ToJSON()
	}
}

func (d *Data) toHTML() string {
	var b strings.Builder
	b.WriteString("<script type=\"importmap\">\n")
	b.WriteString(d.BrowserJSON())
	b.WriteString("\n</script>")
	for _, key := range d.Keys() {
		item := d.items[key]
		if !item.Preload {
			continue
		}
		href := html.EscapeString(item.Path)
		if item.Type == CSS {
			fmt.Fprintf(&b, "\n<link rel=\"stylesheet\" href=\"%s\">", href)
		} else {
			fmt.Fprintf(&b, "\n<link rel=\"modulepreload\" href=\"%s\">", href)
		}
	}
	return b.String()
}
