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
// Package trace provides the trace command for pinmap.
package trace

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"bennypowers.dev/pinmap/internal/output"
	"bennypowers.dev/pinmap/internal/project"
	"bennypowers.dev/pinmap/resolve"
)

// Cmd is the trace command that prints the module graph of entries.
var Cmd = &cobra.Command{
	Use:   "trace [name...]",
	Short: "Show the import tree of entries",
	Long: `Show the modules each entry imports, statically or dynamically, as a tree.
Without arguments every entry flagged as an entrypoint is traced.`,
	Example: `  pinmap trace app
  pinmap trace app --format json`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func run(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", format)
	}

	p, err := project.Load()
	if err != nil {
		return err
	}
	entries, err := p.Manager.Entries()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		for e := range entries.All() {
			if e.Entrypoint {
				names = append(names, e.ImportName)
			}
		}
	}

	graph := resolve.New(p.Assets, p.Store.RootDirectory())
	trees := make([]*resolve.Node, 0, len(names))
	for _, name := range names {
		tree, err := graph.Tree(entries, name)
		if err != nil {
			return fmt.Errorf("failed to trace %s: %w", name, err)
		}
		trees = append(trees, tree)
	}

	if format == "json" {
		return output.JSON(p.FS, trees)
	}
	Render(cmd.OutOrStdout(), trees)
	return nil
}

// Render writes trees as indented lists.
func Render(w io.Writer, trees []*resolve.Node) {
	l := list.NewWriter()
	l.SetOutputMirror(w)
	l.SetStyle(list.StyleConnectedLight)
	for _, tree := range trees {
		appendNode(l, tree)
	}
	l.Render()
}

func appendNode(l list.Writer, n *resolve.Node) {
	label := n.Key
	if n.Lazy {
		label += " (lazy)"
	}
	if n.Seen {
		label += " ..."
	}
	if n.Path != "" && n.Path != n.Key {
		label += "  " + n.Path
	}
	l.AppendItem(label)
	if len(n.Imports) == 0 {
		return
	}
	l.Indent()
	for _, child := range n.Imports {
		appendNode(l, child)
	}
	l.UnIndent()
}
