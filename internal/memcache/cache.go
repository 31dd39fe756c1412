// Package memcache implements the volatile cache adapter: the working set
// held in process memory for the lifetime of the session. It is the fastest
// tier and the last-resort fallback when both durable adapters fail; it
// guarantees nothing across restarts. The cache is an explicit injected
// object owned by the coordinator, not ambient package state.
package memcache

import (
	"sync"
)

type entry struct {
	createdAt string
	raw       []byte
}

// Cache holds per-collection record payloads keyed by record id.
type Cache struct {
	mu          sync.RWMutex
	collections map[string]map[string]entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{collections: make(map[string]map[string]entry)}
}

// Upsert stores the serialized record under its collection and id.
func (c *Cache) Upsert(collection, id, createdAt string, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.collections[collection]
	if !ok {
		col = make(map[string]entry)
		c.collections[collection] = col
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	col[id] = entry{createdAt: createdAt, raw: cp}
}

// All returns the serialized records of a collection in unspecified order.
func (c *Cache) All(collection string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	col := c.collections[collection]
	out := make([][]byte, 0, len(col))
	for _, e := range col {
		out = append(out, e.raw)
	}
	return out
}

// Remove drops one record. Removing an absent record is a no-op.
func (c *Cache) Remove(collection, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.collections[collection], id)
}

// Len returns the record count of a collection.
func (c *Cache) Len(collection string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.collections[collection])
}

// Reset clears every collection. Called on explicit subsystem reset and by
// the recovery tool's clear path.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = make(map[string]map[string]entry)
}
