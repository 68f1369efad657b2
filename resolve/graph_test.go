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
	"errors"
	"slices"
	"testing"

	"bennypowers.dev/pinmap/asset"
	"bennypowers.dev/pinmap/importmap"
)

// fakeLookup serves assets registered by logical path. Source paths are
// "/project/assets/<logical>".
type fakeLookup struct {
	assets map[string]*asset.Asset
	calls  int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{assets: make(map[string]*asset.Asset)}
}

func (f *fakeLookup) add(logical string) *asset.Asset {
	a := &asset.Asset{
		LogicalPath:    logical,
		SourcePath:     "/project/assets/" + logical,
		PublicPath:     "/assets/" + asset.DigestedPath(logical, "d1"),
		DigestlessPath: "/assets/" + logical,
		Type:           importmap.TypeForPath(logical),
		Digest:         "d1",
	}
	f.assets[logical] = a
	return a
}

func (f *fakeLookup) ByLogicalPath(p string) *asset.Asset {
	f.calls++
	return f.assets[p]
}

func (f *fakeLookup) BySourcePath(p string) *asset.Asset {
	f.calls++
	for _, a := range f.assets {
		if a.SourcePath == p {
			return a
		}
	}
	return nil
}

func eager(a *asset.Asset) asset.Import {
	return asset.Import{Target: a.LogicalPath, Asset: a, AddImplicitly: true}
}

func lazy(a *asset.Asset) asset.Import {
	return asset.Import{Target: a.LogicalPath, Asset: a, Lazy: true, AddImplicitly: true}
}

func local(name, logical string, entrypoint bool) importmap.Entry {
	return importmap.Entry{ImportName: name, Path: "./assets/" + logical, Entrypoint: entrypoint}
}

func TestRawMap_NoImportsKeepsEntryOrder(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("c.js")
	lookup.add("a.js")
	lookup.add("b.css")

	entries := importmap.NewEntrySet(
		local("c", "c.js", false),
		importmap.Entry{ImportName: "lodash", URL: "https://cdn.jsdelivr.net/npm/lodash@4.17.21/+esm"},
		local("a", "a.js", true),
		importmap.Entry{ImportName: "b", Path: "./assets/b.css", Type: importmap.CSS},
	)

	data, err := New(lookup, "/project").RawMap(entries)
	if err != nil {
		t.Fatalf("RawMap: %v", err)
	}
	if !slices.Equal(data.Keys(), entries.Names()) {
		t.Errorf("keys = %v, want %v", data.Keys(), entries.Names())
	}

	item, _ := data.Get("lodash")
	if item.Path != "https://cdn.jsdelivr.net/npm/lodash@4.17.21/+esm" {
		t.Errorf("remote entry path = %q", item.Path)
	}
	item, _ = data.Get("a")
	if item.Path != "/assets/a-d1.js" || item.Preload {
		t.Errorf("local entry item = %+v", item)
	}
	item, _ = data.Get("b")
	if item.Type != importmap.CSS {
		t.Errorf("css entry type = %q", item.Type)
	}
}

func TestRawMap_DepthFirstImplicitDependencies(t *testing.T) {
	lookup := newFakeLookup()
	a := lookup.add("a.js")
	x := lookup.add("x.js")
	y := lookup.add("y.js")
	b := lookup.add("b.js")
	z := lookup.add("z.js")
	a.Imports = []asset.Import{eager(x)}
	x.Imports = []asset.Import{eager(y)}
	b.Imports = []asset.Import{eager(z), eager(y)}

	entries := importmap.NewEntrySet(local("a", "a.js", true), local("b", "b.js", true))
	data, err := New(lookup, "/project").RawMap(entries)
	if err != nil {
		t.Fatalf("RawMap: %v", err)
	}

	want := []string{"a", "/assets/x.js", "/assets/y.js", "b", "/assets/z.js"}
	if !slices.Equal(data.Keys(), want) {
		t.Errorf("keys = %v, want %v", data.Keys(), want)
	}
	item, _ := data.Get("/assets/x.js")
	if item.Path != "/assets/x-d1.js" {
		t.Errorf("implicit item path = %q, want digested path", item.Path)
	}
}

func TestRawMap_Idempotent(t *testing.T) {
	lookup := newFakeLookup()
	a := lookup.add("a.js")
	a.Imports = []asset.Import{eager(lookup.add("dep.js")), lazy(lookup.add("lazy.js"))}
	entries := importmap.NewEntrySet(local("a", "a.js", true))

	r := New(lookup, "/project")
	first, err := r.RawMap(entries)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.RawMap(entries)
	if err != nil {
		t.Fatal(err)
	}
	if first.ToJSON() != second.ToJSON() {
		t.Errorf("RawMap not idempotent:\n%s\n%s", first.ToJSON(), second.ToJSON())
	}
}

func TestRawMap_Cycle(t *testing.T) {
	lookup := newFakeLookup()
	x := lookup.add("x.js")
	y := lookup.add("y.js")
	x.Imports = []asset.Import{eager(y)}
	y.Imports = []asset.Import{eager(x)}

	entries := importmap.NewEntrySet(local("x", "x.js", true))
	data, err := New(lookup, "/project").RawMap(entries)
	if err != nil {
		t.Fatalf("RawMap: %v", err)
	}
	// y imports ./x.js, which the browser resolves to x's undigested URL
	want := []string{"x", "/assets/y.js", "/assets/x.js"}
	if !slices.Equal(data.Keys(), want) {
		t.Errorf("keys = %v, want %v", data.Keys(), want)
	}
}

func TestRawMap_EntryOrderKeepsImplicitKeys(t *testing.T) {
	tests := []struct {
		name  string
		order []string
		want  []string
	}{
		{"importer first", []string{"app", "lib"}, []string{"app", "/assets/lib.js", "lib"}},
		{"imported first", []string{"lib", "app"}, []string{"lib", "app", "/assets/lib.js"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := newFakeLookup()
			app := lookup.add("app.js")
			lib := lookup.add("lib.js")
			app.Imports = []asset.Import{eager(lib)}

			declared := map[string]importmap.Entry{
				"app": local("app", "app.js", true),
				"lib": local("lib", "lib.js", false),
			}
			var list []importmap.Entry
			for _, name := range tt.order {
				list = append(list, declared[name])
			}
			entries := importmap.NewEntrySet(list...)
			r := New(lookup, "/project")

			raw, err := r.RawMap(entries)
			if err != nil {
				t.Fatalf("RawMap: %v", err)
			}
			if !slices.Equal(raw.Keys(), tt.want) {
				t.Errorf("raw keys = %v, want %v", raw.Keys(), tt.want)
			}

			data, err := r.ImportMapData(entries, []string{"app"})
			if err != nil {
				t.Fatalf("ImportMapData: %v", err)
			}
			item, ok := data.Get("/assets/lib.js")
			if !ok || !item.Preload {
				t.Errorf("/assets/lib.js = %+v (present %v), want preloaded", item, ok)
			}
			if item, _ := data.Get("lib"); item.Preload {
				t.Errorf("lib should not be preloaded")
			}
		})
	}
}

func TestRawMap_CSSIsLeaf(t *testing.T) {
	lookup := newFakeLookup()
	css := lookup.add("app.css")
	css.Imports = []asset.Import{eager(lookup.add("font.js"))}

	entries := importmap.NewEntrySet(importmap.Entry{ImportName: "app.css", Path: "./assets/app.css", Type: importmap.CSS})
	data, err := New(lookup, "/project").RawMap(entries)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(data.Keys(), []string{"app.css"}) {
		t.Errorf("keys = %v, want only the css entry", data.Keys())
	}
}

func TestRawMap_DeclaredEntryNotReinjected(t *testing.T) {
	lookup := newFakeLookup()
	app := lookup.add("app.js")
	vendored := lookup.add("vendor/lodash.js")
	vendored.SourcePath = "/project/vendor/lodash.js"
	helper := lookup.add("vendor/lodash-helper.js")
	vendored.Imports = []asset.Import{eager(helper)}
	app.Imports = []asset.Import{{Target: "lodash", Asset: vendored}}

	entries := importmap.NewEntrySet(
		local("app", "app.js", true),
		importmap.Entry{ImportName: "lodash", Path: "vendor/lodash.js", URL: "https://cdn/lodash", Downloaded: true},
	)
	data, err := New(lookup, "/project").RawMap(entries)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"app", "/assets/vendor/lodash-helper.js", "lodash"}
	if !slices.Equal(data.Keys(), want) {
		t.Errorf("keys = %v, want %v", data.Keys(), want)
	}
	item, _ := data.Get("lodash")
	if item.Path != vendored.PublicPath {
		t.Errorf("downloaded entry should use the vendored public path, got %q", item.Path)
	}
}

func TestRawMap_AssetNotFound(t *testing.T) {
	entries := importmap.NewEntrySet(local("missing", "missing.js", false))
	_, err := New(newFakeLookup(), "/project").RawMap(entries)
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	var notFound *AssetNotFoundError
	if !errors.As(err, &notFound) || notFound.ImportName != "missing" {
		t.Errorf("expected *AssetNotFoundError for missing, got %v", err)
	}
}

func TestEntrypointKeys_ExcludesLazySubtree(t *testing.T) {
	lookup := newFakeLookup()
	app := lookup.add("app.js")
	nav := lookup.add("nav.js")
	lib := lookup.add("lib.js")
	settings := lookup.add("settings.js")
	panel := lookup.add("panel.js")
	app.Imports = []asset.Import{eager(nav), lazy(settings), {Target: "lit"}}
	nav.Imports = []asset.Import{eager(lib), eager(app)}
	settings.Imports = []asset.Import{eager(panel)}

	entries := importmap.NewEntrySet(
		local("app", "app.js", true),
		importmap.Entry{ImportName: "lit", URL: "https://cdn/lit"},
	)
	keys, err := New(lookup, "/project").EntrypointKeys(entries, "app")
	if err != nil {
		t.Fatalf("EntrypointKeys: %v", err)
	}
	want := []string{"/assets/nav.js", "/assets/lib.js", "lit"}
	if !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestEntrypointKeys_Errors(t *testing.T) {
	lookup := newFakeLookup()
	entries := importmap.NewEntrySet(
		importmap.Entry{ImportName: "remote", URL: "https://cdn/remote", Entrypoint: true},
	)
	r := New(lookup, "/project")

	if _, err := r.EntrypointKeys(entries, "nope"); !errors.Is(err, importmap.ErrUnknownEntry) {
		t.Errorf("unknown entrypoint: err = %v, want ErrUnknownEntry", err)
	}
	keys, err := r.EntrypointKeys(entries, "remote")
	if err != nil || len(keys) != 0 {
		t.Errorf("remote entrypoint: keys = %v, err = %v, want none", keys, err)
	}
}

func TestImportMapData_CallerOrder(t *testing.T) {
	lookup := newFakeLookup()
	a := lookup.add("a.js")
	b := lookup.add("b.js")
	shared := lookup.add("shared.js")
	onlyA := lookup.add("only-a.js")
	onlyB := lookup.add("only-b.js")
	lookup.add("unused.js")
	lookup.add("other.css")
	a.Imports = []asset.Import{eager(shared), eager(onlyA)}
	b.Imports = []asset.Import{eager(onlyB), eager(shared)}

	entries := importmap.NewEntrySet(
		local("unused", "unused.js", false),
		local("a", "a.js", true),
		local("b", "b.js", true),
		importmap.Entry{ImportName: "other.css", Path: "./assets/other.css", Type: importmap.CSS},
	)

	data, err := New(lookup, "/project").ImportMapData(entries, []string{"b", "a"})
	if err != nil {
		t.Fatalf("ImportMapData: %v", err)
	}

	want := []string{
		"b", "/assets/only-b.js", "/assets/shared.js",
		"a", "/assets/only-a.js",
		"unused", "other.css",
	}
	if !slices.Equal(data.Keys(), want) {
		t.Fatalf("keys = %v, want %v", data.Keys(), want)
	}
	for _, key := range want {
		item, _ := data.Get(key)
		wantPreload := key != "unused" && key != "other.css"
		if item.Preload != wantPreload {
			t.Errorf("%s preload = %v, want %v", key, item.Preload, wantPreload)
		}
	}
}

func TestImportMapData_UnknownEntrypoint(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("a.js")
	entries := importmap.NewEntrySet(local("a", "a.js", true))
	_, err := New(lookup, "/project").ImportMapData(entries, []string{"missing"})
	if !errors.Is(err, importmap.ErrUnknownEntry) {
		t.Errorf("err = %v, want ErrUnknownEntry", err)
	}
}

func TestCompose_SkipsKeysMissingFromRaw(t *testing.T) {
	raw := importmap.NewData()
	raw.Set("app", importmap.Item{Path: "/assets/app-1.js", Type: importmap.JS})
	raw.Set("lit", importmap.Item{Path: "https://cdn/lit", Type: importmap.JS})

	data, err := Compose(raw, []string{"app"}, func(string) ([]string, error) {
		return []string{"/assets/stale.js", "lit", "app"}, nil
	}, nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !slices.Equal(data.Keys(), []string{"app", "lit"}) {
		t.Errorf("keys = %v", data.Keys())
	}
	if item, _ := data.Get("lit"); !item.Preload {
		t.Error("lit should be preloaded")
	}
}

func TestCompose_PropagatesEagerError(t *testing.T) {
	raw := importmap.NewData()
	raw.Set("app", importmap.Item{Path: "/assets/app-1.js", Type: importmap.JS})
	_, err := Compose(raw, []string{"app"}, func(string) ([]string, error) {
		return nil, &AssetNotFoundError{ImportName: "app", Path: "./assets/app.js"}
	}, nil)
	if !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestTree(t *testing.T) {
	lookup := newFakeLookup()
	app := lookup.add("app.js")
	nav := lookup.add("nav.js")
	settings := lookup.add("settings.js")
	util := lookup.add("util.js")
	app.Imports = []asset.Import{eager(nav), lazy(settings), {Target: "lodash"}}
	nav.Imports = []asset.Import{eager(util)}
	settings.Imports = []asset.Import{eager(nav)}

	entries := importmap.NewEntrySet(
		local("app", "app.js", true),
		importmap.Entry{ImportName: "lodash", URL: "https://cdn/lodash.js"},
	)
	root, err := New(lookup, "/project").Tree(entries, "app")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	if root.Key != "app" || len(root.Imports) != 3 {
		t.Fatalf("root = %+v", root)
	}
	navNode, settingsNode, lodashNode := root.Imports[0], root.Imports[1], root.Imports[2]
	if navNode.Key != "/assets/nav.js" || len(navNode.Imports) != 1 || navNode.Imports[0].Key != "/assets/util.js" {
		t.Errorf("nav = %+v", navNode)
	}
	if !settingsNode.Lazy || len(settingsNode.Imports) != 1 || !settingsNode.Imports[0].Seen {
		t.Errorf("settings should be lazy and point back at nav: %+v", settingsNode)
	}
	if lodashNode.Key != "lodash" || lodashNode.Path != "https://cdn/lodash.js" {
		t.Errorf("lodash = %+v", lodashNode)
	}

	if _, err := New(lookup, "/project").Tree(entries, "nope"); !errors.Is(err, importmap.ErrUnknownEntry) {
		t.Errorf("err = %v, want ErrUnknownEntry", err)
	}
}
