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
package cdn

import (
	"context"
	"errors"
	"fmt"
	"path"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/pinmap/importmap"
	"bennypowers.dev/pinmap/packagejson"
	"bennypowers.dev/pinmap/specifier"
	"bennypowers.dev/pinmap/trace"
)

// PackageRequest asks for one module of a package.
type PackageRequest struct {
	// Package is the module specifier: a package name and optional
	// subpath, e.g. "lodash" or "bootstrap/dist/css/bootstrap.min.css".
	Package string
	// Constraint is a version, range or dist-tag. Empty means latest.
	Constraint string
	// ImportName is the import map key. Empty means Package.
	ImportName string
	// Download asks for the module content.
	Download bool
}

// ResolvedPackage is a resolved module.
type ResolvedPackage struct {
	ImportName string
	Package    string
	Version    string
	URL        string
	Type       importmap.Type
	// Content is set when the request asked for a download.
	Content []byte
}

// Logger receives diagnostics from the PackageResolver.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// maxParallel bounds concurrent resolutions within one batch.
const maxParallel = 8

// PackageResolver resolves package requests against an npm registry
// and a CDN provider.
type PackageResolver struct {
	fetcher    Fetcher
	registry   *Registry
	provider   Provider
	conditions []string
	manifests  *Cache[*packagejson.PackageJSON]
	logger     Logger
}

// NewPackageResolver creates a resolver. Module files are fetched with
// fetcher from provider; versions come from registry.
func NewPackageResolver(fetcher Fetcher, registry *Registry, provider Provider) *PackageResolver {
	return &PackageResolver{
		fetcher:   fetcher,
		registry:  registry,
		provider:  provider,
		manifests: NewCache[*packagejson.PackageJSON](500),
	}
}

// WithConditions returns a copy that resolves package exports with the
// given conditions instead of packagejson.DefaultConditions.
func (r *PackageResolver) WithConditions(conditions ...string) *PackageResolver {
	c := *r
	c.conditions = conditions
	return &c
}

// WithLogger returns a copy that logs to logger.
func (r *PackageResolver) WithLogger(logger Logger) *PackageResolver {
	c := *r
	c.logger = logger
	return &c
}

// Latest returns the latest published version of a package.
func (r *PackageResolver) Latest(ctx context.Context, pkgName string) (string, error) {
	return r.registry.Latest(ctx, pkgName)
}

// Resolve resolves every request, in order. Downloaded JavaScript is
// scanned for bare imports; each package it needs that no request
// named is resolved and downloaded too, and appended after the
// requested packages.
func (r *PackageResolver) Resolve(ctx context.Context, requests []PackageRequest) ([]ResolvedPackage, error) {
	results, err := r.resolveBatch(ctx, requests)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(results))
	for _, res := range results {
		seen[res.ImportName] = true
	}

	pending := results
	for len(pending) > 0 {
		deps, err := r.dependencyRequests(ctx, pending, seen)
		if err != nil {
			return nil, err
		}
		if len(deps) == 0 {
			break
		}
		more, err := r.resolveBatch(ctx, deps)
		if err != nil {
			return nil, err
		}
		results = append(results, more...)
		pending = more
	}

	return results, nil
}

func (r *PackageResolver) resolveBatch(ctx context.Context, requests []PackageRequest) ([]ResolvedPackage, error) {
	out := make([]ResolvedPackage, len(requests))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, req := range requests {
		g.Go(func() error {
			res, err := r.resolveOne(ctx, req)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", req.Package, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PackageResolver) resolveOne(ctx context.Context, req PackageRequest) (ResolvedPackage, error) {
	name, subpath := specifier.SplitPackage(req.Package)

	version, err := r.registry.ResolveVersion(ctx, name, req.Constraint)
	if err != nil {
		return ResolvedPackage{}, err
	}

	file, err := r.entryFile(ctx, name, version, subpath)
	if err != nil {
		return ResolvedPackage{}, err
	}

	importName := req.ImportName
	if importName == "" {
		importName = req.Package
	}
	res := ResolvedPackage{
		ImportName: importName,
		Package:    req.Package,
		Version:    version,
		URL:        r.provider.ModuleURL(name, version, file),
		Type:       importmap.TypeForPath(file),
	}

	if req.Download {
		content, err := r.fetcher.Fetch(ctx, res.URL)
		if err != nil {
			return ResolvedPackage{}, err
		}
		res.Content = content
	}

	r.debug("Resolved package", "package", req.Package, "version", version, "url", res.URL)
	return res, nil
}

// entryFile finds the file subpath of a package version points at.
func (r *PackageResolver) entryFile(ctx context.Context, name, version, subpath string) (string, error) {
	manifest, err := r.manifests.GetOrLoad(name+"@"+version, func() (*packagejson.PackageJSON, error) {
		data, err := r.fetcher.Fetch(ctx, r.provider.PackageJSONURL(name, version))
		if err != nil {
			return nil, err
		}
		return packagejson.Parse(data)
	})
	if err != nil {
		return "", fmt.Errorf("package.json of %s@%s: %w", name, version, err)
	}

	file, err := manifest.ResolveEntry(subpath, r.conditions)
	if errors.Is(err, packagejson.ErrNotExported) && path.Ext(subpath) != "" {
		r.debug("Subpath not exported, using file path", "package", name, "path", subpath)
		return subpath, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s@%s: %q: %w", name, version, subpath, err)
	}
	return file, nil
}

// dependencyRequests returns download requests for bare imports of
// downloaded JavaScript not yet in seen. Versions follow the importing
// package's declared dependency ranges.
func (r *PackageResolver) dependencyRequests(ctx context.Context, resolved []ResolvedPackage, seen map[string]bool) ([]PackageRequest, error) {
	var requests []PackageRequest
	for _, res := range resolved {
		if res.Content == nil || res.Type != importmap.JS {
			continue
		}

		imports, err := trace.ExtractImports(res.Content)
		if err != nil {
			r.warn("Failed to scan downloaded module for imports", "package", res.Package, "error", err)
			continue
		}

		parentName, _ := specifier.SplitPackage(res.Package)
		for _, imp := range imports {
			if !trace.IsBareSpecifier(imp.Specifier) {
				if trace.IsRelativeSpecifier(imp.Specifier) {
					r.debug("Downloaded module imports a relative file", "package", res.Package, "import", imp.Specifier)
				}
				continue
			}
			if seen[imp.Specifier] {
				continue
			}
			seen[imp.Specifier] = true

			constraint, err := r.dependencyRange(ctx, parentName, res.Version, imp.Specifier)
			if err != nil {
				return nil, err
			}
			requests = append(requests, PackageRequest{
				Package:    imp.Specifier,
				Constraint: constraint,
				ImportName: imp.Specifier,
				Download:   true,
			})
		}
	}
	return requests, nil
}

func (r *PackageResolver) dependencyRange(ctx context.Context, parentName, parentVersion, module string) (string, error) {
	depName, _ := specifier.SplitPackage(module)
	if depName == parentName {
		return parentVersion, nil
	}
	doc, err := r.registry.Packument(ctx, parentName)
	if err != nil {
		return "", err
	}
	meta := doc.Versions[parentVersion]
	if v, ok := meta.Dependencies[depName]; ok {
		return v, nil
	}
	if v, ok := meta.PeerDependencies[depName]; ok {
		return v, nil
	}
	return "", nil
}

func (r *PackageResolver) debug(msg string, keyvals ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, keyvals...)
	}
}

func (r *PackageResolver) warn(msg string, keyvals ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, keyvals...)
	}
}
