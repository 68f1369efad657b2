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
package resolve

import (
	"fmt"

	"bennypowers.dev/pinmap/asset"
	"bennypowers.dev/pinmap/importmap"
)

// Node is one module in an entry's import tree.
type Node struct {
	Key  string `json:"key"`
	Path string `json:"path,omitempty"`
	Lazy bool   `json:"lazy,omitempty"`
	// Seen marks a module whose imports are listed at an earlier node.
	Seen    bool    `json:"seen,omitempty"`
	Imports []*Node `json:"imports,omitempty"`
}

// Tree returns the import tree of an entry, eager and lazy. Keys are the
// import map keys the modules are reachable under.
func (r *Resolver) Tree(entries *importmap.EntrySet, name string) (*Node, error) {
	entry, ok := entries.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", importmap.ErrUnknownEntry, name)
	}
	if entry.IsRemoteOnly() {
		return &Node{Key: name, Path: entry.URL}, nil
	}

	a, err := r.entryAsset(entry)
	if err != nil {
		return nil, err
	}
	root := &Node{Key: name, Path: a.PublicPath}
	expand(root, a, entries, map[string]bool{a.LogicalPath: true})
	return root, nil
}

func expand(n *Node, a *asset.Asset, entries *importmap.EntrySet, expanded map[string]bool) {
	for _, imp := range a.Imports {
		child := &Node{Key: imp.Target, Lazy: imp.Lazy}
		n.Imports = append(n.Imports, child)

		target := imp.Asset
		if target == nil {
			if e, ok := entries.Get(imp.Target); ok {
				child.Path = e.URL
			}
			continue
		}
		if imp.AddImplicitly {
			child.Key = target.DigestlessPath
		}
		child.Path = target.PublicPath

		if expanded[target.LogicalPath] {
			child.Seen = len(target.Imports) > 0
			continue
		}
		expanded[target.LogicalPath] = true
		if target.Type != importmap.CSS {
			expand(child, target, entries, expanded)
		}
	}
}
