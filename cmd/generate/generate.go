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
// Package generate provides the generate command for pinmap.
package generate

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/pinmap/internal/output"
	"bennypowers.dev/pinmap/internal/project"
)

// Cmd is the generate cobra command that renders the import map for a page.
var Cmd = &cobra.Command{
	Use:   "generate [entrypoint...]",
	Short: "Generate the import map for a page",
	Long: `Generate the import map for a page loading the given entrypoints.

Each entrypoint and the modules it statically imports come first and are
marked for preload. Without arguments every entry flagged as an entrypoint
is used. Cached results written by "pinmap dump" are used when present.`,
	Example: `  # Import map body with preload flags
  pinmap generate app

  # Browser import map
  pinmap generate app --format importmap

  # Script tag plus modulepreload links
  pinmap generate app admin --format html`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "json", "Output format (json, importmap, html)")
	_ = viper.BindPFlag("format", Cmd.Flags().Lookup("format"))
}

func run(cmd *cobra.Command, args []string) error {
	format := viper.GetString("format")
	switch format {
	case "json", "importmap", "html":
	default:
		return fmt.Errorf("invalid format %q: must be 'json', 'importmap' or 'html'", format)
	}

	p, err := project.Load()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		entries, err := p.Manager.Entries()
		if err != nil {
			return err
		}
		for e := range entries.All() {
			if e.Entrypoint {
				names = append(names, e.ImportName)
			}
		}
	}

	data, err := p.Manager.ImportMapData(names)
	if err != nil {
		return fmt.Errorf("failed to generate: %w", err)
	}
	return output.ImportMap(p.FS, data, format)
}
