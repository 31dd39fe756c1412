// Package syncqueue tracks favorite toggles that failed to reach the
// authoritative remote system. Entries live in a dedicated flat store slot
// keyed by entity id and are replayed only on explicit caller invocation;
// there is no background timer and no backoff, just a 24-hour retry
// horizon after which entries are purged regardless of outcome.
package syncqueue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/pkg/types"
)

// RetryHorizon bounds how long an entry may stay queued.
const RetryHorizon = 24 * time.Hour

// Apply performs the authoritative remote write for one queued entry.
type Apply func(ctx context.Context, entityID string, desired bool) error

// Queue is the pending-write store. Safe for concurrent use.
type Queue struct {
	mu  sync.Mutex
	kv  flatstore.KV
	key string
	now func() time.Time
	log *slog.Logger
}

// New creates a queue over kv in the canonical sync slot.
func New(kv flatstore.KV, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{kv: kv, key: types.KeySyncQueue, now: time.Now, log: log}
}

// Mark records that entityID should eventually reach desired state
// remotely. A later mark for the same entity replaces the earlier one.
func (q *Queue) Mark(entityID string, desired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.loadLocked()
	entries[entityID] = types.SyncEntry{
		Desired:   desired,
		Timestamp: types.FormatTime(q.now()),
	}
	q.storeLocked(entries)
}

// Pending returns a copy of the queued entries.
func (q *Queue) Pending() map[string]types.SyncEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

// Sync replays each queued entry through apply. Entries that succeed are
// removed; failures stay queued for a later invocation. Returns the number
// of entries that reached the remote system.
func (q *Queue) Sync(ctx context.Context, apply Apply) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.loadLocked()
	synced := 0
	for id, entry := range entries {
		if err := apply(ctx, id, entry.Desired); err != nil {
			q.log.Warn("sync retry failed", "entity", id, "error", err)
			continue
		}
		delete(entries, id)
		synced++
	}
	if synced > 0 {
		q.storeLocked(entries)
	}
	return synced
}

// ClearOld purges entries older than the retry horizon, whatever their
// state. Returns the number purged.
func (q *Queue) ClearOld() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.loadLocked()
	cutoff := q.now().Add(-RetryHorizon)
	purged := 0
	for id, entry := range entries {
		ts := types.ParseTime(entry.Timestamp)
		if ts.IsZero() || ts.Before(cutoff) {
			delete(entries, id)
			purged++
		}
	}
	if purged > 0 {
		q.storeLocked(entries)
	}
	return purged
}

func (q *Queue) loadLocked() map[string]types.SyncEntry {
	raw, ok := q.kv.Get(q.key)
	if !ok {
		return make(map[string]types.SyncEntry)
	}
	var entries map[string]types.SyncEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || entries == nil {
		return make(map[string]types.SyncEntry)
	}
	return entries
}

func (q *Queue) storeLocked(entries map[string]types.SyncEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		q.log.Warn("sync queue marshal failed", "error", err)
		return
	}
	if err := q.kv.Set(q.key, string(raw)); err != nil {
		q.log.Warn("sync queue persist failed", "error", err)
	}
}
