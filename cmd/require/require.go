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
// Package require provides the require command for pinmap.
package require

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bennypowers.dev/pinmap/internal/project"
	"bennypowers.dev/pinmap/pin"
	"bennypowers.dev/pinmap/specifier"
)

// Cmd is the require command that pins packages into the import map.
var Cmd = &cobra.Command{
	Use:   "require <specifier>...",
	Short: "Pin packages into the import map",
	Long: `Pin npm packages, or local files, into the import map.

Specifiers take the form [registry:]package[@version][=alias].
Dependencies discovered in downloaded files are pinned too.`,
	Example: `  # Pin the latest lodash from the CDN
  pinmap require lodash

  # Pin a version range under an alias and vendor it
  pinmap require lit@^3.1=lit3 --download

  # Pin a subpath of a package
  pinmap require bootstrap/dist/css/bootstrap.min.css=bootstrap

  # Pin a local file as an entrypoint
  pinmap require app --path assets/app.js --entrypoint`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().BoolP("download", "d", false, "Vendor the package files into the vendor directory")
	Cmd.Flags().String("path", "", "Pin a local file instead of a package")
	Cmd.Flags().BoolP("entrypoint", "e", false, "Mark the entries as entrypoints")
}

func run(cmd *cobra.Command, args []string) error {
	download, _ := cmd.Flags().GetBool("download")
	localPath, _ := cmd.Flags().GetString("path")
	entrypoint, _ := cmd.Flags().GetBool("entrypoint")

	if localPath != "" && len(args) > 1 {
		return errors.New("--path pins exactly one import name")
	}
	if localPath != "" && download {
		return errors.New("--path and --download are mutually exclusive")
	}

	requests := make([]pin.Request, 0, len(args))
	for _, arg := range args {
		req, err := parseRequest(arg)
		if err != nil {
			return err
		}
		req.Download = download
		req.Entrypoint = entrypoint
		req.Path = localPath
		requests = append(requests, req)
	}

	p, err := project.Load()
	if err != nil {
		return err
	}
	added, err := p.Manager.Require(cmd.Context(), requests)
	if err != nil {
		return fmt.Errorf("failed to require: %w", err)
	}

	for _, e := range added {
		switch {
		case e.Path != "" && !e.Downloaded:
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s to %s\n", e.ImportName, e.Path)
		case e.Downloaded:
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s@%s to %s\n", e.ImportName, e.Version, e.Path)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s@%s to %s\n", e.ImportName, e.Version, e.URL)
		}
	}
	return nil
}

func parseRequest(arg string) (pin.Request, error) {
	spec, err := specifier.Parse(arg)
	if err != nil {
		return pin.Request{}, err
	}
	if spec.Registry != "" && spec.Registry != "npm" {
		return pin.Request{}, fmt.Errorf("%w: unsupported registry %q", specifier.ErrInvalidSpecifier, spec.Registry)
	}
	return pin.Request{
		Package:    spec.Package,
		Version:    spec.Version,
		ImportName: spec.ImportName(),
	}, nil
}
