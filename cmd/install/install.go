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
// Package install provides the install command for pinmap.
package install

import (
	"fmt"

	"github.com/spf13/cobra"

	"bennypowers.dev/pinmap/internal/project"
)

// Cmd is the install command.
var Cmd = &cobra.Command{
	Use:   "install",
	Short: "Download missing vendored files",
	Long: `Download the files of vendored packages that are missing from the vendor
directory, e.g. after a fresh checkout. The import map is not changed.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	p, err := project.Load()
	if err != nil {
		return err
	}
	repaired, err := p.Manager.DownloadMissing(cmd.Context())
	for _, e := range repaired {
		fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s to %s\n", e.ImportName, e.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	if len(repaired) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "All vendored files are present")
	}
	return nil
}
