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
package pin

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"bennypowers.dev/pinmap/cdn"
	"bennypowers.dev/pinmap/importmap"
)

// Require adds or replaces entries. Remote requests are resolved with a
// single registry call; resolved dependencies of vendored packages are
// added too. It returns the added or replaced entries.
func (c *Coordinator) Require(ctx context.Context, requests []Request) ([]importmap.Entry, error) {
	entries, err := c.store.Read()
	if err != nil {
		return nil, err
	}

	locals := make(map[string]importmap.Entry)
	requested := make(map[string]Request)
	var remote []cdn.PackageRequest
	for _, req := range requests {
		name := req.importName()
		if name == "" {
			return nil, fmt.Errorf("require: request needs a package or an import name")
		}
		requested[name] = req
		if req.Path != "" {
			entry, err := c.localEntry(name, req)
			if err != nil {
				return nil, err
			}
			locals[name] = entry
			continue
		}
		remote = append(remote, cdn.PackageRequest{
			Package:    req.Package,
			Constraint: req.Version,
			ImportName: name,
			Download:   req.Download,
		})
	}

	var resolved []cdn.ResolvedPackage
	if len(remote) > 0 {
		resolved, err = c.registry.Resolve(ctx, remote)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegistry, err)
		}
	}

	tx := newVendorTx(c.fs)
	remoteEntries := make(map[string]importmap.Entry, len(resolved))
	var order []string
	for _, res := range resolved {
		existing, had := entries.Get(res.ImportName)
		entry := importmap.Entry{
			ImportName: res.ImportName,
			URL:        res.URL,
			Type:       res.Type,
			Package:    res.Package,
			Version:    res.Version,
			Entrypoint: existing.Entrypoint,
		}
		if req, ok := requested[res.ImportName]; ok {
			entry.Entrypoint = req.Entrypoint
		}
		if res.Content != nil {
			if err := c.vendor(tx, &entry, res.Content); err != nil {
				return nil, errors.Join(err, tx.rollback())
			}
		}
		if had && existing.Downloaded && existing.Path != entry.Path {
			tx.removeAfterCommit(c.abs(existing.Path))
		}
		remoteEntries[res.ImportName] = entry
		order = append(order, res.ImportName)
	}

	// requested entries in request order, then discovered dependencies
	var added []importmap.Entry
	placed := make(map[string]bool)
	for _, req := range requests {
		name := req.importName()
		if placed[name] {
			continue
		}
		if e, ok := locals[name]; ok {
			added = append(added, e)
			placed[name] = true
		} else if e, ok := remoteEntries[name]; ok {
			added = append(added, e)
			placed[name] = true
		}
	}
	for _, name := range order {
		if !placed[name] {
			added = append(added, remoteEntries[name])
			placed[name] = true
		}
	}

	if err := c.persist(tx, entries.With(added, nil)); err != nil {
		return nil, err
	}
	for _, e := range added {
		c.info("Required", "name", e.ImportName, "version", e.Version, "downloaded", e.Downloaded)
	}
	return added, nil
}

// localEntry builds a local entry for a request with a Path.
func (c *Coordinator) localEntry(name string, req Request) (importmap.Entry, error) {
	root := c.store.RootDirectory()
	abs := c.abs(req.Path)
	info, err := c.fs.Stat(abs)
	if err != nil || info.IsDir() {
		return importmap.Entry{}, fmt.Errorf("%w: %s", ErrLocalPathNotFound, req.Path)
	}

	p := abs
	if rel, ok := strings.CutPrefix(abs, root+"/"); ok {
		p = "./" + rel
	}
	return importmap.Entry{
		ImportName: name,
		Path:       p,
		Type:       importmap.TypeForPath(p),
		Entrypoint: req.Entrypoint,
	}, nil
}

// vendor writes content to the vendor path of the entry's package and
// marks it downloaded.
func (c *Coordinator) vendor(tx *vendorTx, entry *importmap.Entry, content []byte) error {
	rel := c.VendorPath(entry.PackageSpecifier(), entry.EntryType())
	if err := tx.write(c.abs(rel), content); err != nil {
		return &DownloadError{ImportName: entry.ImportName, URL: entry.URL, Path: rel, Err: err}
	}
	entry.Path = rel
	entry.Downloaded = true
	return nil
}

// persist writes the entry set, undoing staged vendor changes on failure.
func (c *Coordinator) persist(tx *vendorTx, set *importmap.EntrySet) error {
	if err := c.store.Write(set); err != nil {
		return errors.Join(err, tx.rollback())
	}
	for name, err := range tx.commit() {
		c.warn("Failed to delete stale vendored file", "path", name, "error", err)
	}
	return nil
}

// Remove deletes entries and their vendored files. Every name must be
// declared. Vendored files that cannot be located are left alone.
func (c *Coordinator) Remove(ctx context.Context, names []string) error {
	entries, err := c.store.Read()
	if err != nil {
		return err
	}
	for _, name := range names {
		if !entries.Has(name) {
			return fmt.Errorf("%w: %s", importmap.ErrUnknownEntry, name)
		}
	}

	tx := newVendorTx(c.fs)
	for _, name := range names {
		entry, _ := entries.Get(name)
		if !entry.Downloaded {
			continue
		}
		a := c.vendoredAsset(entry)
		if a == nil {
			c.debug("Vendored file not found, nothing to delete", "name", name, "path", entry.Path)
			continue
		}
		if err := tx.remove(a.SourcePath); err != nil {
			c.warn("Failed to delete vendored file", "name", name, "path", a.SourcePath, "error", err)
		}
	}

	if err := c.persist(tx, entries.With(nil, names)); err != nil {
		return err
	}
	for _, name := range names {
		c.info("Removed", "name", name)
	}
	return nil
}

// Update re-resolves remote entries at their latest version. No names
// means every remote entry. It returns the updated entries followed by
// newly discovered dependencies.
func (c *Coordinator) Update(ctx context.Context, names []string) ([]importmap.Entry, error) {
	entries, err := c.store.Read()
	if err != nil {
		return nil, err
	}

	var targets []importmap.Entry
	if len(names) == 0 {
		for e := range entries.All() {
			if e.IsRemote() {
				targets = append(targets, e)
			}
		}
	} else {
		for _, name := range names {
			e, ok := entries.Get(name)
			if !ok || !e.IsRemote() {
				return nil, fmt.Errorf("%w: %s has no package to update", importmap.ErrUnknownEntry, name)
			}
			targets = append(targets, e)
		}
	}
	if len(targets) == 0 {
		c.debug("No remote entries to update")
		return nil, nil
	}

	requests := make([]cdn.PackageRequest, len(targets))
	for i, e := range targets {
		requests[i] = cdn.PackageRequest{
			Package:    e.PackageSpecifier(),
			ImportName: e.ImportName,
			Download:   e.Downloaded,
		}
	}
	resolved, err := c.registry.Resolve(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistry, err)
	}

	tx := newVendorTx(c.fs)
	var updated []importmap.Entry
	for _, res := range resolved {
		existing, had := entries.Get(res.ImportName)
		entry := existing
		if !had {
			entry = importmap.Entry{ImportName: res.ImportName, Package: res.Package}
		}
		entry.URL = res.URL
		entry.Type = res.Type
		entry.Version = res.Version
		entry.Path = ""
		entry.Downloaded = false

		if had && existing.Downloaded {
			if err := tx.remove(c.abs(existing.Path)); err != nil {
				return nil, errors.Join(&DownloadError{ImportName: res.ImportName, URL: res.URL, Path: existing.Path, Err: err}, tx.rollback())
			}
		}
		if res.Content != nil {
			if err := c.vendor(tx, &entry, res.Content); err != nil {
				return nil, errors.Join(err, tx.rollback())
			}
		}
		if had && existing.Version != "" && existing.Version != entry.Version {
			c.info("Updated", "name", entry.ImportName, "from", existing.Version, "to", entry.Version)
		}
		updated = append(updated, entry)
	}

	if err := c.persist(tx, entries.With(updated, nil)); err != nil {
		return nil, err
	}
	return updated, nil
}

// DownloadMissing re-fetches vendored files that no longer resolve,
// from the URL already recorded for them. It neither calls the
// registry nor writes the store. Failures are per entry: every entry
// that could be repaired is, and the failures are returned joined.
func (c *Coordinator) DownloadMissing(ctx context.Context) ([]importmap.Entry, error) {
	entries, err := c.store.Read()
	if err != nil {
		return nil, err
	}

	var repaired []importmap.Entry
	var errs []error
	for entry := range entries.All() {
		if !entry.Downloaded || c.vendoredAsset(entry) != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		dest := c.abs(entry.Path)
		content, err := c.fetcher.Fetch(ctx, entry.URL)
		if err == nil {
			err = c.fs.MkdirAll(path.Dir(dest), 0755)
		}
		if err == nil {
			err = c.fs.WriteFile(dest, content, 0644)
		}
		if err != nil {
			errs = append(errs, &DownloadError{ImportName: entry.ImportName, URL: entry.URL, Path: entry.Path, Err: err})
			continue
		}

		c.info("Downloaded missing file", "name", entry.ImportName, "path", entry.Path)
		repaired = append(repaired, entry)
	}
	return repaired, errors.Join(errs...)
}
