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

import "sync"

// Cache is a bounded, concurrency-safe memo of loaded values. Each key
// is loaded at most once while it stays cached; failed loads are not
// kept. The oldest key is evicted when the cache is full.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	order   []string
	maxSize int
}

type cacheEntry[V any] struct {
	once  sync.Once
	value V
	err   error
}

// NewCache creates a cache holding at most maxSize keys.
func NewCache[V any](maxSize int) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Cache[V]{
		entries: make(map[string]*cacheEntry[V]),
		maxSize: maxSize,
	}
}

// Get returns the value loaded for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		var zero V
		return zero, false
	}
	entry.once.Do(func() {})
	if entry.err != nil {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// GetOrLoad returns the cached value for key or calls load. Concurrent
// callers for the same key share one load.
func (c *Cache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry[V]{}
		c.entries[key] = entry
		c.order = append(c.order, key)
		if len(c.order) > c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.value, entry.err = load()
	})
	if entry.err != nil {
		c.forget(key, entry)
		var zero V
		return zero, entry.err
	}
	return entry.value, nil
}

func (c *Cache[V]) forget(key string, entry *cacheEntry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] != entry {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of cached keys.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
