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
// Package outdated provides the outdated command for pinmap.
package outdated

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bennypowers.dev/pinmap/importmap"
	"bennypowers.dev/pinmap/internal/project"
	"bennypowers.dev/pinmap/specifier"
)

// Cmd is the outdated command.
var Cmd = &cobra.Command{
	Use:   "outdated",
	Short: "List pinned packages with newer versions",
	Args:  cobra.NoArgs,
	RunE:  run,
}

// LatestFunc returns the latest published version of a package.
type LatestFunc func(ctx context.Context, pkg string) (string, error)

// Row is one outdated package.
type Row struct {
	Name    string
	Package string
	Pinned  string
	Latest  string
}

func run(cmd *cobra.Command, args []string) error {
	p, err := project.Load()
	if err != nil {
		return err
	}
	entries, err := p.Manager.Entries()
	if err != nil {
		return err
	}

	rows, err := Check(cmd.Context(), entries, p.Packages.Latest)
	Render(cmd.OutOrStdout(), rows)
	if err != nil {
		return fmt.Errorf("failed to check some packages: %w", err)
	}
	return nil
}

// Check compares every pinned package version against the latest one.
// Entries without a pinned version are skipped.
func Check(ctx context.Context, entries *importmap.EntrySet, latest LatestFunc) ([]Row, error) {
	var rows []Row
	var errs []error
	for e := range entries.All() {
		if !e.IsRemote() || e.Version == "" {
			continue
		}
		name, _ := specifier.SplitPackage(e.PackageSpecifier())
		v, err := latest(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.ImportName, err))
			continue
		}
		if newer(e.Version, v) {
			rows = append(rows, Row{Name: e.ImportName, Package: name, Pinned: e.Version, Latest: v})
		}
	}
	return rows, errors.Join(errs...)
}

func newer(pinned, latest string) bool {
	p, err := semver.NewVersion(pinned)
	if err != nil {
		return pinned != latest
	}
	l, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	return l.GreaterThan(p)
}

// Render writes rows as a table.
func Render(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "All pinned packages are up to date")
		return
	}
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"Name", "Package", "Pinned", "Latest"})
	for _, r := range rows {
		tbl.AppendRow(table.Row{r.Name, r.Package, r.Pinned, r.Latest})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d outdated", len(rows))})
	tbl.Render()
}
