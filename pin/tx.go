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
	"errors"
	"io/fs"
	"path"

	pfs "bennypowers.dev/pinmap/fs"
)

// vendorTx stages changes to vendored files so they can be undone if
// the entry file cannot be written.
type vendorTx struct {
	fs    pfs.FileSystem
	undo  []func() error
	stale []string
}

func newVendorTx(fsys pfs.FileSystem) *vendorTx {
	return &vendorTx{fs: fsys}
}

// save records how to restore name to its current state.
func (tx *vendorTx) save(name string) error {
	previous, err := tx.fs.ReadFile(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		tx.undo = append(tx.undo, func() error {
			err := tx.fs.Remove(name)
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		})
		return nil
	case err != nil:
		return err
	}
	tx.undo = append(tx.undo, func() error {
		return tx.fs.WriteFile(name, previous, 0644)
	})
	return nil
}

// write replaces name with content.
func (tx *vendorTx) write(name string, content []byte) error {
	if err := tx.save(name); err != nil {
		return err
	}
	if err := tx.fs.MkdirAll(path.Dir(name), 0755); err != nil {
		return err
	}
	return tx.fs.WriteFile(name, content, 0644)
}

// remove deletes name. A missing file is not an error.
func (tx *vendorTx) remove(name string) error {
	if err := tx.save(name); err != nil {
		return err
	}
	err := tx.fs.Remove(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// removeAfterCommit schedules a deletion that only happens on commit.
func (tx *vendorTx) removeAfterCommit(name string) {
	tx.stale = append(tx.stale, name)
}

// rollback undoes every staged change, newest first.
func (tx *vendorTx) rollback() error {
	var errs []error
	for i := len(tx.undo) - 1; i >= 0; i-- {
		if err := tx.undo[i](); err != nil {
			errs = append(errs, err)
		}
	}
	tx.undo = nil
	tx.stale = nil
	return errors.Join(errs...)
}

// commit drops the undo log and performs scheduled deletions. It
// returns the files that could not be deleted.
func (tx *vendorTx) commit() map[string]error {
	tx.undo = nil
	failed := make(map[string]error)
	for _, name := range tx.stale {
		if err := tx.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed[name] = err
		}
	}
	tx.stale = nil
	return failed
}
