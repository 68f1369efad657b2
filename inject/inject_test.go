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
	"errors"
	"slices"
	"strings"
	"testing"

	"bennypowers.dev/pinmap/importmap"
	"bennypowers.dev/pinmap/internal/mapfs"
)

func generator(calls *[][]string) Generator {
	return func(entrypoints []string) (*importmap.Data, error) {
		*calls = append(*calls, entrypoints)
		data := importmap.NewData()
		data.Set("app", importmap.Item{Path: "/assets/app-abc.js", Type: importmap.JS})
		data.Set("styles", importmap.Item{Path: "/assets/styles-def.css", Type: importmap.CSS})
		return data, nil
	}
}

const homePage = `<!doctype html>
<html>
  <head>
    <title>Home</title>
    <script type="module">
      import "app";
      import "./local.js";
    </script>
  </head>
  <body></body>
</html>
`

func TestFile_InsertsBeforeFirstScript(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/site/index.html", homePage, 0644)
	var calls [][]string
	opts := Options{Entries: importmap.NewEntrySet(importmap.Entry{ImportName: "app", Path: "./assets/app.js"})}

	result := File(mfs, "/site/index.html", generator(&calls), opts)
	if result.Error != "" {
		t.Fatalf("File: %s", result.Error)
	}
	if !result.Modified || !result.Inserted {
		t.Errorf("result = %+v, want inserted", result)
	}
	if len(calls) != 1 || !slices.Equal(calls[0], []string{"app"}) {
		t.Errorf("entrypoints = %v, want [app] from the inline module script", calls)
	}

	got, _ := mfs.ReadFile("/site/index.html")
	want := `    <title>Home</title>
    <script type="importmap">
    {
      "imports": {
        "app": "/assets/app-abc.js"
      }
    }
    </script>
    <script type="module">`
	if !strings.Contains(string(got), want) {
		t.Errorf("unexpected content:\n%s", got)
	}
	if strings.Contains(string(got), "styles") {
		t.Error("stylesheets do not belong in the import map")
	}

	// a second run finds the inserted map and leaves the file alone
	again := File(mfs, "/site/index.html", generator(&calls), opts)
	if again.Error != "" || again.Modified {
		t.Errorf("second run = %+v, want unchanged", again)
	}
}

func TestFile_ReplacesExistingImportMap(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/site/index.html", `<html><head>
  <script type="importmap">{"imports": {"old": "/old.js"}}</script>
</head></html>`, 0644)
	var calls [][]string

	result := File(mfs, "/site/index.html", generator(&calls), Options{Entrypoints: []string{"app"}})
	if result.Error != "" {
		t.Fatalf("File: %s", result.Error)
	}
	if !result.Modified || result.Inserted {
		t.Errorf("result = %+v, want replaced", result)
	}
	got, _ := mfs.ReadFile("/site/index.html")
	if strings.Contains(string(got), "/old.js") || !strings.Contains(string(got), `"app": "/assets/app-abc.js"`) {
		t.Errorf("import map not replaced:\n%s", got)
	}
	if strings.Count(string(got), `type="importmap"`) != 1 {
		t.Errorf("expected exactly one import map:\n%s", got)
	}
}

func TestFile_NoHead(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/site/fragment.html", "<div>hi</div>", 0644)
	var calls [][]string

	result := File(mfs, "/site/fragment.html", generator(&calls), Options{})
	if !strings.Contains(result.Error, "no <head>") {
		t.Errorf("error = %q, want insertion point error", result.Error)
	}
}

func TestFile_DryRun(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/site/index.html", homePage, 0644)
	var calls [][]string

	result := File(mfs, "/site/index.html", generator(&calls), Options{DryRun: true})
	if !result.Modified {
		t.Errorf("result = %+v, want modified", result)
	}
	got, _ := mfs.ReadFile("/site/index.html")
	if string(got) != homePage {
		t.Error("dry run must not write")
	}
}

func TestFile_GeneratorError(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/site/index.html", homePage, 0644)
	failing := func([]string) (*importmap.Data, error) { return nil, errors.New("boom") }

	result := File(mfs, "/site/index.html", failing, Options{})
	if result.Error != "boom" || result.Modified {
		t.Errorf("result = %+v", result)
	}
}

func TestBatch(t *testing.T) {
	mfs := mapfs.New()
	files := []string{"/site/a.html", "/site/b.html", "/site/c.html", "/site/missing.html"}
	for _, f := range files[:3] {
		mfs.AddFile(f, homePage, 0644)
	}
	mfs.AddFile("/site/c.html", `<html><head><script type="importmap">
{
  "imports": {
    "app": "/assets/app-abc.js"
  }
}
</script></head></html>`, 0644)

	gen := func([]string) (*importmap.Data, error) {
		data := importmap.NewData()
		data.Set("app", importmap.Item{Path: "/assets/app-abc.js", Type: importmap.JS})
		return data, nil
	}

	var stats Stats
	var seen []string
	for r := range Batch(mfs, files, gen, Options{Parallel: 2}) {
		stats.Add(r)
		seen = append(seen, r.File)
	}
	slices.Sort(seen)
	if !slices.Equal(seen, files) {
		t.Errorf("results for %v, want %v", seen, files)
	}
	want := Stats{Inserted: 2, Skipped: 1, Errors: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}
