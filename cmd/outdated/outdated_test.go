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
package outdated

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"bennypowers.dev/pinmap/importmap"
)

func TestCheck(t *testing.T) {
	entries := importmap.NewEntrySet(
		importmap.Entry{ImportName: "app", Path: "./assets/app.js"},
		importmap.Entry{ImportName: "lodash", URL: "https://cdn/lodash.js", Version: "4.17.20"},
		importmap.Entry{ImportName: "lit3", Package: "lit/decorators.js", URL: "https://cdn/lit.js", Version: "3.1.4"},
		importmap.Entry{ImportName: "stimulus", Package: "@hotwired/stimulus", URL: "https://cdn/s.js", Version: "3.2.2"},
		importmap.Entry{ImportName: "unversioned", URL: "https://cdn/u.js"},
		importmap.Entry{ImportName: "broken", URL: "https://cdn/b.js", Version: "1.0.0"},
	)
	latest := map[string]string{
		"lodash":             "4.17.21",
		"lit":                "3.2.0",
		"@hotwired/stimulus": "3.2.2",
	}
	var asked []string
	rows, err := Check(context.Background(), entries, func(ctx context.Context, pkg string) (string, error) {
		asked = append(asked, pkg)
		v, ok := latest[pkg]
		if !ok {
			return "", errors.New("not found")
		}
		return v, nil
	})

	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("err = %v, want failure naming broken", err)
	}
	want := []Row{
		{Name: "lodash", Package: "lodash", Pinned: "4.17.20", Latest: "4.17.21"},
		{Name: "lit3", Package: "lit", Pinned: "3.1.4", Latest: "3.2.0"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v, want %+v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
	if len(asked) != 4 {
		t.Errorf("asked = %v, want the four versioned packages", asked)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, nil)
	if !strings.Contains(buf.String(), "up to date") {
		t.Errorf("empty render = %q", buf.String())
	}

	buf.Reset()
	Render(&buf, []Row{{Name: "lodash", Package: "lodash", Pinned: "4.17.20", Latest: "4.17.21"}})
	out := strings.ToLower(buf.String())
	for _, s := range []string{"name", "lodash", "4.17.20", "4.17.21", "1 outdated"} {
		if !strings.Contains(out, s) {
			t.Errorf("table missing %q:\n%s", s, buf.String())
		}
	}
}
