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
// Package update provides the update command for pinmap.
package update

import (
	"fmt"

	"github.com/spf13/cobra"

	"bennypowers.dev/pinmap/internal/project"
)

// Cmd is the update command.
var Cmd = &cobra.Command{
	Use:   "update [name...]",
	Short: "Re-pin packages to their latest versions",
	Long: `Re-resolve pinned packages against the registry and pin the latest versions.
Without arguments every package entry is updated. Vendored packages are downloaded again.`,
	Example: `  pinmap update
  pinmap update lodash lit`,
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	p, err := project.Load()
	if err != nil {
		return err
	}
	updated, err := p.Manager.Update(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}
	if len(updated) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages to update")
		return nil
	}
	for _, e := range updated {
		fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s@%s\n", e.ImportName, e.Version)
	}
	return nil
}
