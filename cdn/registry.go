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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org"

// ErrNoMatchingVersion is returned when no published version satisfies
// a constraint.
var ErrNoMatchingVersion = errors.New("no matching version")

// Registry reads package metadata from an npm registry. Each package
// document is fetched once per Registry.
type Registry struct {
	fetcher    Fetcher
	baseURL    string
	packuments *Cache[*Packument]
}

// Packument is the registry document of a package.
type Packument struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]RegistryVersion `json:"versions"`
}

// RegistryVersion is one published version.
type RegistryVersion struct {
	Version          string            `json:"version"`
	Dependencies     map[string]string `json:"dependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Deprecated       string            `json:"deprecated"`
}

// NewRegistry creates a client for the registry at baseURL.
// An empty baseURL means DefaultRegistryURL.
func NewRegistry(fetcher Fetcher, baseURL string) *Registry {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	return &Registry{
		fetcher:    fetcher,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		packuments: NewCache[*Packument](500),
	}
}

// Packument returns the registry document for pkgName.
func (r *Registry) Packument(ctx context.Context, pkgName string) (*Packument, error) {
	return r.packuments.GetOrLoad(pkgName, func() (*Packument, error) {
		data, err := r.fetcher.Fetch(ctx, r.packumentURL(pkgName))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch package %s: %w", pkgName, err)
		}
		var doc Packument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse package metadata for %s: %w", pkgName, err)
		}
		return &doc, nil
	})
}

func (r *Registry) packumentURL(pkgName string) string {
	// scoped names keep their @ but escape the slash
	return r.baseURL + "/" + strings.Replace(pkgName, "/", "%2f", 1)
}

// ResolveVersion resolves a constraint to the highest matching
// version. The constraint may be empty (the latest tag), a dist-tag, an
// exact version or a semver range.
func (r *Registry) ResolveVersion(ctx context.Context, pkgName, constraint string) (string, error) {
	doc, err := r.Packument(ctx, pkgName)
	if err != nil {
		return "", err
	}
	return doc.Resolve(constraint)
}

// Latest returns the version tagged latest.
func (r *Registry) Latest(ctx context.Context, pkgName string) (string, error) {
	return r.ResolveVersion(ctx, pkgName, "")
}

// Resolve picks the version for constraint from the document.
func (p *Packument) Resolve(constraint string) (string, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || constraint == "*" {
		constraint = "latest"
	}
	if tagged, ok := p.DistTags[constraint]; ok {
		return tagged, nil
	}
	if _, ok := p.Versions[constraint]; ok {
		return constraint, nil
	}

	c, err := semver.NewConstraint(npmRange(constraint))
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q for %s: %w", constraint, p.Name, err)
	}

	var best *semver.Version
	for raw := range p.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if c.Check(v) && (best == nil || v.GreaterThan(best)) {
			best = v
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w for %s@%s", ErrNoMatchingVersion, p.Name, constraint)
	}
	return best.Original(), nil
}

// npmRange maps npm wildcard spellings semver.NewConstraint rejects.
func npmRange(constraint string) string {
	switch constraint {
	case "x", "X":
		return "*"
	}
	return constraint
}
