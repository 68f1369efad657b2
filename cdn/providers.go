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
	"fmt"
	"strings"
)

// Provider is a CDN serving npm package files.
type Provider struct {
	Name string
	// PackageJSON locates a package's package.json.
	PackageJSON *Template
	// Module locates a file inside a package.
	Module *Template
}

func mustProvider(name, packageJSON, module string) Provider {
	pj, err := ParseTemplate(packageJSON)
	if err != nil {
		panic(err)
	}
	mod, err := ParseTemplate(module)
	if err != nil {
		panic(err)
	}
	return Provider{Name: name, PackageJSON: pj, Module: mod}
}

var (
	// Jsdelivr is the jsDelivr CDN.
	Jsdelivr = mustProvider("jsdelivr",
		"https://cdn.jsdelivr.net/npm/{package}@{version}/package.json",
		"https://cdn.jsdelivr.net/npm/{package}@{version}/{path}")

	// EsmSh is the esm.sh CDN.
	EsmSh = mustProvider("esm.sh",
		"https://esm.sh/{package}@{version}/package.json",
		"https://esm.sh/{package}@{version}/{path}")

	// Unpkg is the unpkg CDN.
	Unpkg = mustProvider("unpkg",
		"https://unpkg.com/{package}@{version}/package.json",
		"https://unpkg.com/{package}@{version}/{path}")
)

// DefaultProvider is used when no provider is configured.
var DefaultProvider = Jsdelivr

// ProviderByName returns a provider by name or alias.
func ProviderByName(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "", "jsdelivr", "jsdelivr.net", "cdn.jsdelivr.net":
		return Jsdelivr, nil
	case "esm.sh", "esmsh", "esm":
		return EsmSh, nil
	case "unpkg":
		return Unpkg, nil
	}
	return Provider{}, fmt.Errorf("unknown CDN provider %q: must be one of %s", name, strings.Join(ProviderNames(), ", "))
}

// ProviderNames lists the supported provider names.
func ProviderNames() []string {
	return []string{"jsdelivr", "esm.sh", "unpkg"}
}

// PackageJSONURL returns the package.json URL of pkg at version.
func (p Provider) PackageJSONURL(pkg, version string) string {
	return p.PackageJSON.Expand(pkg, version, "package.json")
}

// ModuleURL returns the URL of file inside pkg at version.
func (p Provider) ModuleURL(pkg, version, file string) string {
	return p.Module.Expand(pkg, version, file)
}
