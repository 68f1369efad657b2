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
// Command pinmap manages the import map of a project that serves ES
// modules without a bundler.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/pinmap/cmd/dump"
	"bennypowers.dev/pinmap/cmd/generate"
	"bennypowers.dev/pinmap/cmd/inject"
	"bennypowers.dev/pinmap/cmd/install"
	"bennypowers.dev/pinmap/cmd/outdated"
	"bennypowers.dev/pinmap/cmd/remove"
	"bennypowers.dev/pinmap/cmd/require"
	"bennypowers.dev/pinmap/cmd/trace"
	"bennypowers.dev/pinmap/cmd/update"
	"bennypowers.dev/pinmap/cmd/version"
)

var (
	cpuprofile     string
	cpuprofileFile *os.File
	rootCmd        = &cobra.Command{
		Use:   "pinmap",
		Short: "Manage the import map of a bundler-free project",
		Long: `pinmap pins npm packages and local modules into an import map, vendors
package files on request, and renders the import map a page needs with
its eager dependencies marked for preload.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfig(); err != nil {
				return err
			}
			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				cpuprofileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					closeErr := f.Close()
					return errors.Join(
						fmt.Errorf("could not start CPU profile: %w", err),
						closeErr,
					)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cpuprofileFile != nil {
				pprof.StopCPUProfile()
				if err := cpuprofileFile.Close(); err != nil {
					return fmt.Errorf("closing CPU profile: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("package", "p", ".", "Project directory")
	flags.StringP("output", "o", "", "Output file (default: stdout)")
	flags.BoolP("verbose", "v", false, "Log debug output to stderr")
	flags.String("importmap", "importmap.yaml", "Entry file, relative to the project directory")
	flags.String("vendor-dir", "vendor", "Directory vendored packages are downloaded to")
	flags.String("public-dir", "public/assets", "Directory dump writes precomputed import maps to")
	flags.String("public-prefix", "/assets/", "URL prefix of served assets")
	flags.StringSlice("asset-dirs", []string{"assets", "vendor=vendor"}, "Asset directories, as path or namespace=path")
	flags.StringSlice("exclude", nil, "Glob patterns of assets to ignore (e.g. **/*.test.js)")
	flags.String("cdn", "jsdelivr", "CDN provider (jsdelivr, esm.sh, unpkg)")
	flags.String("registry", "https://registry.npmjs.org", "npm registry URL")
	flags.StringSlice("conditions", nil, "Export condition priority (e.g. production,browser,import,default)")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	for _, name := range []string{
		"package", "output", "verbose", "importmap", "vendor-dir", "public-dir",
		"public-prefix", "asset-dirs", "exclude", "cdn", "registry", "conditions",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	viper.SetEnvPrefix("PINMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(require.Cmd)
	rootCmd.AddCommand(remove.Cmd)
	rootCmd.AddCommand(update.Cmd)
	rootCmd.AddCommand(install.Cmd)
	rootCmd.AddCommand(generate.Cmd)
	rootCmd.AddCommand(dump.Cmd)
	rootCmd.AddCommand(inject.Cmd)
	rootCmd.AddCommand(outdated.Cmd)
	rootCmd.AddCommand(trace.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

// readConfig loads pinmap.yaml from the project directory, if present.
// Flags and environment variables take precedence over the file.
func readConfig() error {
	viper.SetConfigName("pinmap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(viper.GetString("package"))
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
