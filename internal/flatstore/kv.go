// Package flatstore implements the flat store adapter: whole collections
// serialized as single blobs into a small, synchronous, string-only
// key-value backend. Two backends exist: a file-backed one that survives
// restarts and an in-memory one scoped to the session. Both enforce a byte
// quota; a write that would exceed it fails softly with ErrQuotaExceeded
// and the caller continues with the remaining adapters.
package flatstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/dreamlayer/artvault/pkg/types"
)

// KV is the string-only key-value contract shared by the file-backed and
// in-memory backends. All operations are synchronous and never block.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool)
	// Set stores value under key. Returns ErrQuotaExceeded when the
	// store's total size would exceed its quota; the previous value is
	// left untouched in that case.
	Set(key, value string) error
	// Delete removes key. Removing an absent key is not an error.
	Delete(key string)
	// Keys returns all stored keys in sorted order.
	Keys() []string
	// UsedBytes returns the total serialized size currently stored.
	UsedBytes() int64
}

// MemKV is the in-memory KV backend, used for the session-scoped store and
// in tests. Contents are lost when the process exits.
type MemKV struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64
}

// NewMemKV creates an in-memory KV with the given byte quota. A quota of
// zero means unlimited.
func NewMemKV(quota int64) *MemKV {
	return &MemKV{data: make(map[string]string), quota: quota}
}

func (m *MemKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.usedLocked()
	if old, exists := m.data[key]; exists {
		next -= int64(len(key)) + int64(len(old))
	}
	next += int64(len(key)) + int64(len(value))
	if m.quota > 0 && next > m.quota {
		return types.ErrQuotaExceeded
	}
	m.data[key] = value
	return nil
}

func (m *MemKV) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MemKV) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MemKV) UsedBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usedLocked()
}

func (m *MemKV) usedLocked() int64 {
	var n int64
	for k, v := range m.data {
		n += int64(len(k)) + int64(len(v))
	}
	return n
}

// PrefixedKeys returns the keys of kv that start with prefix, sorted.
func PrefixedKeys(kv KV, prefix string) []string {
	var out []string
	for _, k := range kv.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
