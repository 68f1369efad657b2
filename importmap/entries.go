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
package importmap

import (
	"iter"
	"slices"
)

// EntrySet is an ordered, name-keyed collection of entries.
// Insertion order drives the order of the generated import map.
// The zero value is an empty set ready to use.
type EntrySet struct {
	names  []string
	byName map[string]Entry
}

// NewEntrySet builds a set from entries. Later duplicates replace earlier
// ones in place.
func NewEntrySet(entries ...Entry) *EntrySet {
	s := &EntrySet{}
	for _, e := range entries {
		s.Set(e)
	}
	return s
}

// Has reports whether name is declared.
func (s *EntrySet) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.byName[name]
	return ok
}

// Get returns the entry declared under name.
func (s *EntrySet) Get(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.byName[name]
	return e, ok
}

// Len returns the number of entries.
func (s *EntrySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the import names in insertion order.
func (s *EntrySet) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.names)
}

// Entries returns the entries in insertion order.
func (s *EntrySet) Entries() []Entry {
	return slices.Collect(s.All())
}

// All iterates entries in insertion order.
func (s *EntrySet) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if s == nil {
			return
		}
		for _, name := range s.names {
			if !yield(s.byName[name]) {
				return
			}
		}
	}
}

// Set replaces the entry with the same import name in place, or appends it.
func (s *EntrySet) Set(e Entry) {
	if s.byName == nil {
		s.byName = make(map[string]Entry)
	}
	if _, exists := s.byName[e.ImportName]; !exists {
		s.names = append(s.names, e.ImportName)
	}
	s.byName[e.ImportName] = e
}

// Remove deletes name from the set. It reports whether the name was present.
func (s *EntrySet) Remove(name string) bool {
	if !s.Has(name) {
		return false
	}
	delete(s.byName, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
	return true
}

// Clone returns an independent copy of the set.
func (s *EntrySet) Clone() *EntrySet {
	clone := &EntrySet{}
	for e := range s.All() {
		clone.Set(e)
	}
	return clone
}

// With returns a new set with removals dropped and additions merged:
// additions already present are replaced in place, the rest are appended
// in the order given. The receiver is not modified.
func (s *EntrySet) With(additions []Entry, removals []string) *EntrySet {
	result := s.Clone()
	for _, name := range removals {
		result.Remove(name)
	}
	for _, e := range additions {
		result.Set(e)
	}
	return result
}
