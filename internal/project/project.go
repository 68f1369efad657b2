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
// Package project wires the pinmap components for one project directory
// from CLI configuration.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"bennypowers.dev/pinmap/asset"
	"bennypowers.dev/pinmap/cdn"
	"bennypowers.dev/pinmap/fs"
	"bennypowers.dev/pinmap/manager"
	"bennypowers.dev/pinmap/pin"
	"bennypowers.dev/pinmap/resolve"
	"bennypowers.dev/pinmap/store"
)

// Config holds the settings a project is opened with.
type Config struct {
	Root         string
	ImportMap    string
	VendorDir    string
	PublicDir    string
	PublicPrefix string
	AssetDirs    []string
	Exclude      []string
	CDN          string
	Registry     string
	Conditions   []string
}

// FromViper reads the configuration bound by the root command.
func FromViper() (Config, error) {
	root, err := filepath.Abs(viper.GetString("package"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid package directory: %w", err)
	}
	return Config{
		Root:         filepath.ToSlash(root),
		ImportMap:    viper.GetString("importmap"),
		VendorDir:    viper.GetString("vendor-dir"),
		PublicDir:    viper.GetString("public-dir"),
		PublicPrefix: viper.GetString("public-prefix"),
		AssetDirs:    viper.GetStringSlice("asset-dirs"),
		Exclude:      viper.GetStringSlice("exclude"),
		CDN:          viper.GetString("cdn"),
		Registry:     viper.GetString("registry"),
		Conditions:   viper.GetStringSlice("conditions"),
	}, nil
}

// NewLogger returns the CLI logger, writing to stderr.
func NewLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "pinmap",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// Project is an opened project.
type Project struct {
	Config   Config
	FS       fs.FileSystem
	Store    *store.File
	Assets   *asset.Mapper
	Packages *cdn.PackageResolver
	Manager  *manager.Manager
}

// Open builds the manager and its collaborators for cfg. fetcher may be
// nil, in which case packages are fetched over HTTP.
func Open(fsys fs.FileSystem, cfg Config, fetcher cdn.Fetcher, logger *log.Logger) (*Project, error) {
	withDefaults(&cfg)

	st := store.NewFile(fsys, abs(cfg.Root, cfg.ImportMap))
	entries, err := st.Read()
	if err != nil {
		return nil, err
	}

	dirs := make([]asset.Dir, len(cfg.AssetDirs))
	for i, d := range cfg.AssetDirs {
		dirs[i] = asset.ParseDir(d)
	}
	mapper := asset.NewMapper(fsys, st.RootDirectory(), cfg.PublicPrefix, dirs...).
		WithExcludes(cfg.Exclude...).
		WithEntries(entries)

	provider, err := cdn.ProviderByName(cfg.CDN)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = cdn.NewHTTPFetcher()
	}
	packages := cdn.NewPackageResolver(fetcher, cdn.NewRegistry(fetcher, cfg.Registry), provider)
	if len(cfg.Conditions) > 0 {
		packages = packages.WithConditions(cfg.Conditions...)
	}

	if logger != nil {
		mapper = mapper.WithLogger(logger)
		packages = packages.WithLogger(logger)
	}

	graph := resolve.New(mapper, st.RootDirectory())
	coordinator := pin.New(fsys, st, packages, fetcher, mapper).WithVendorDir(cfg.VendorDir)
	if logger != nil {
		graph = graph.WithLogger(logger)
		coordinator = coordinator.WithLogger(logger)
	}

	m := manager.New(fsys, st, graph, coordinator, abs(cfg.Root, cfg.PublicDir))
	if logger != nil {
		m = m.WithLogger(logger)
	}

	return &Project{
		Config:   cfg,
		FS:       fsys,
		Store:    st,
		Assets:   mapper,
		Packages: packages,
		Manager:  m,
	}, nil
}

func withDefaults(cfg *Config) {
	if cfg.ImportMap == "" {
		cfg.ImportMap = store.DefaultFileName
	}
	if cfg.VendorDir == "" {
		cfg.VendorDir = pin.DefaultVendorDir
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = "public/assets"
	}
	if cfg.PublicPrefix == "" {
		cfg.PublicPrefix = "/assets/"
	}
	if len(cfg.AssetDirs) == 0 {
		cfg.AssetDirs = []string{"assets", cfg.VendorDir + "=" + cfg.VendorDir}
	}
	if cfg.CDN == "" {
		cfg.CDN = "jsdelivr"
	}
	if cfg.Registry == "" {
		cfg.Registry = cdn.DefaultRegistryURL
	}
}

func abs(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(filepath.Join(root, p))
}

// Load opens the project described by the CLI configuration on the
// local filesystem.
func Load() (*Project, error) {
	cfg, err := FromViper()
	if err != nil {
		return nil, err
	}
	return Open(fs.NewOSFileSystem(), cfg, nil, NewLogger(viper.GetBool("verbose")))
}
