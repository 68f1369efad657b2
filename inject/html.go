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
package inject

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// page is what injection needs to know about an HTML document.
type page struct {
	// importMap is set when the document has an import map script.
	importMap    bool
	contentStart int
	contentEnd   int
	// insertAt is the offset a new import map goes to: before the first
	// script or modulepreload link in <head>, else before </head>.
	// -1 when the document has no head.
	insertAt int
	indent   string
	// modules holds the bodies of inline module scripts.
	modules []string
}

func scan(content []byte) (page, error) {
	p := page{insertAt: -1}
	z := html.NewTokenizer(bytes.NewReader(content))

	var (
		offset    int
		inHead    bool
		inScript  bool
		scriptTyp string
		textStart int
	)
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return p, nil
			}
			return p, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := attributes(z, hasAttr)
			switch string(name) {
			case "head":
				inHead = true
			case "script":
				scriptTyp = attrs["type"]
				if scriptTyp == "importmap" && p.importMap {
					// browsers only honour the first import map
					scriptTyp = ""
				}
				if inHead && p.insertAt < 0 && !p.importMap {
					p.setInsert(content, start)
				}
				inScript = tt == html.StartTagToken
				textStart = offset
			case "link":
				if inHead && p.insertAt < 0 && strings.EqualFold(attrs["rel"], "modulepreload") {
					p.setInsert(content, start)
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "head":
				if inHead && p.insertAt < 0 {
					p.setInsert(content, start)
				}
				inHead = false
			case "script":
				if !inScript {
					break
				}
				inScript = false
				switch scriptTyp {
				case "importmap":
					p.importMap = true
					p.contentStart = textStart
					p.contentEnd = start
				case "module":
					p.modules = append(p.modules, string(content[textStart:start]))
				}
			}
		}
	}
}

func attributes(z *html.Tokenizer, more bool) map[string]string {
	attrs := make(map[string]string)
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return attrs
}

// setInsert records offset as the insertion point, with the indentation
// of its line.
func (p *page) setInsert(content []byte, offset int) {
	p.insertAt = offset
	lineStart := bytes.LastIndexByte(content[:offset], '\n') + 1
	if prefix := content[lineStart:offset]; len(bytes.TrimSpace(prefix)) == 0 {
		p.indent = string(prefix)
	}
}
