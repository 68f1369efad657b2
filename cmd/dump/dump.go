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
// Package dump provides the dump command for pinmap.
package dump

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bennypowers.dev/pinmap/internal/project"
)

// Cmd is the dump command.
var Cmd = &cobra.Command{
	Use:   "dump",
	Short: "Precompute the import map into the public directory",
	Long: `Compute the raw import map and the preload list of every entrypoint and
write them to the public directory, where generate and the manager read
them instead of walking the module graph. Run it as a build step.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	p, err := project.Load()
	if err != nil {
		return err
	}
	written, err := p.Manager.Dump()
	if err != nil {
		return fmt.Errorf("failed to dump: %w", err)
	}

	for _, path := range written {
		display := path
		if rel, err := filepath.Rel(p.Config.Root, path); err == nil {
			display = rel
		}
		size := "?"
		if info, err := p.FS.Stat(path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", display, size)
	}
	return nil
}
