package flatstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dreamlayer/artvault/pkg/types"
)

// FileKV is the durable flat backend: the whole key space is one JSON
// object persisted with the temp-file, fsync, rename pattern. Every write
// keeps the previous generation as a .backup sibling, and a corrupt primary
// file falls back to that sibling on load.
type FileKV struct {
	mu    sync.RWMutex
	path  string
	data  map[string]string
	quota int64
	log   *slog.Logger
}

// OpenFileKV loads (or creates) the flat store file at path. Corrupt
// contents degrade to the backup sibling, then to empty; loading never
// fails on bad data, only on I/O errors creating the directory.
func OpenFileKV(path string, quota int64, log *slog.Logger) (*FileKV, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create flat store dir: %w", err)
	}

	kv := &FileKV{path: path, data: make(map[string]string), quota: quota, log: log}
	kv.load()
	return kv, nil
}

// load reads the primary file, falling back to the .backup sibling when the
// primary is missing or corrupt. Bad data is treated as "no data".
func (f *FileKV) load() {
	for _, p := range []string{f.path, f.backupPath()} {
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var data map[string]string
		if err := json.Unmarshal(raw, &data); err != nil {
			f.log.Warn("flat store file corrupt, trying backup", "path", p, "error", err)
			continue
		}
		if p != f.path {
			f.log.Info("flat store recovered from backup", "path", p, "keys", len(data))
		}
		f.data = data
		return
	}
}

func (f *FileKV) backupPath() string { return f.path + ".backup" }

func (f *FileKV) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.usedLocked()
	if old, exists := f.data[key]; exists {
		next -= int64(len(key)) + int64(len(old))
	}
	next += int64(len(key)) + int64(len(value))
	if f.quota > 0 && next > f.quota {
		return types.ErrQuotaExceeded
	}

	prev, had := f.data[key]
	f.data[key] = value
	if err := f.persistLocked(); err != nil {
		// Roll back the in-memory change so memory and disk agree.
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *FileKV) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return
	}
	delete(f.data, key)
	if err := f.persistLocked(); err != nil {
		f.log.Warn("flat store persist after delete failed", "key", key, "error", err)
	}
}

func (f *FileKV) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *FileKV) UsedBytes() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.usedLocked()
}

func (f *FileKV) usedLocked() int64 {
	var n int64
	for k, v := range f.data {
		n += int64(len(k)) + int64(len(v))
	}
	return n
}

// persistLocked writes the key space atomically: marshal, temp file, fsync,
// rotate the previous generation to .backup, rename. Caller holds f.mu.
func (f *FileKV) persistLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal flat store: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".flat-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	// Keep the previous generation for corrupt-primary recovery.
	if _, err := os.Stat(f.path); err == nil {
		_ = os.Rename(f.path, f.backupPath())
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
