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
// Package inject provides the inject command for pinmap.
package inject

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"bennypowers.dev/pinmap/inject"
	"bennypowers.dev/pinmap/internal/project"
)

// Cmd is the inject command.
var Cmd = &cobra.Command{
	Use:   "inject",
	Short: "Write import maps into HTML files in-place",
	Long: `Write the import map into HTML files, replacing an existing import map
script or inserting one before the first script in <head>.

Each page gets the import map for the entrypoints given with --entrypoint
plus the declared entries its inline module scripts import.`,
	Example: `  # Inject import maps into all HTML files
  pinmap inject --glob "_site/**/*.html"

  # Every page loads the app entrypoint
  pinmap inject --glob "_site/**/*.html" --entrypoint app

  # Dry run to see what would change
  pinmap inject --glob "_site/**/*.html" --dry-run`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("glob", "", "Glob pattern to match HTML files (required)")
	Cmd.Flags().StringSliceP("entrypoint", "e", nil, "Entrypoints every page loads (can be repeated)")
	Cmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (default: number of CPUs)")
	Cmd.Flags().Bool("dry-run", false, "Show what would change without modifying files")
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func run(cmd *cobra.Command, args []string) error {
	globPattern, _ := cmd.Flags().GetString("glob")
	if globPattern == "" {
		return fmt.Errorf("--glob is required")
	}

	matches, err := doublestar.FilepathGlob(globPattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no files matched the glob pattern")
		return nil
	}

	seen := make(map[string]struct{})
	var files []string
	for _, match := range matches {
		absPath, err := filepath.Abs(match)
		if err != nil {
			return fmt.Errorf("invalid file path %q: %w", match, err)
		}
		if _, exists := seen[absPath]; !exists {
			seen[absPath] = struct{}{}
			files = append(files, absPath)
		}
	}

	entrypoints, _ := cmd.Flags().GetStringSlice("entrypoint")
	parallel, _ := cmd.Flags().GetInt("jobs")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	format, _ := cmd.Flags().GetString("format")

	p, err := project.Load()
	if err != nil {
		return err
	}
	entries, err := p.Manager.Entries()
	if err != nil {
		return err
	}

	opts := inject.Options{
		Entrypoints: entrypoints,
		Entries:     entries,
		Parallel:    parallel,
		DryRun:      dryRun,
	}

	start := time.Now()
	results := inject.Batch(p.FS, files, p.Manager.ImportMapData, opts)

	stats := inject.Stats{Total: len(files)}
	out := cmd.OutOrStdout()
	encoder := json.NewEncoder(out)
	for result := range results {
		stats.Add(result)
		switch {
		case format == "json" && (result.Error != "" || result.Modified):
			_ = encoder.Encode(result)
		case result.Error != "":
			fmt.Fprintf(os.Stderr, "Error: %s: %s\n", result.File, result.Error)
		case result.Modified && dryRun:
			action := "would update"
			if result.Inserted {
				action = "would insert into"
			}
			fmt.Fprintf(out, "%s %s\n", action, result.File)
		}
	}
	stats.Duration = time.Since(start).Milliseconds()

	if format == "json" {
		statsJSON, _ := json.Marshal(stats)
		fmt.Fprintln(out, string(statsJSON))
	} else if dryRun {
		fmt.Fprintf(out, "\nDry run: %d files would be modified (%d updated, %d new), %d unchanged, %d errors\n",
			stats.Updated+stats.Inserted, stats.Updated, stats.Inserted, stats.Skipped, stats.Errors)
	} else {
		fmt.Fprintf(out, "Injected: %d files modified (%d updated, %d new), %d unchanged, %d errors\n",
			stats.Updated+stats.Inserted, stats.Updated, stats.Inserted, stats.Skipped, stats.Errors)
	}

	if stats.Errors == stats.Total {
		return fmt.Errorf("all %d files failed", stats.Errors)
	}
	return nil
}
