package flatstore

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/dreamlayer/artvault/pkg/types"
)

// Collection reads and writes one capped record list as a single serialized
// blob under its key. Read-modify-write sequences hold a per-key mutex so
// two interleaved upserts cannot clobber each other's view of the list.
type Collection[R types.Record] struct {
	mu  sync.Mutex
	kv  KV
	key string
	cap int
	log *slog.Logger
}

// NewCollection creates a collection over kv under key, capped at cap
// items. A cap of zero or less means uncapped.
func NewCollection[R types.Record](kv KV, key string, cap int, log *slog.Logger) *Collection[R] {
	if log == nil {
		log = slog.Default()
	}
	return &Collection[R]{kv: kv, key: key, cap: cap, log: log}
}

// Key returns the storage key this collection writes under.
func (c *Collection[R]) Key() string { return c.key }

// Read returns the stored records. A missing key or a blob that fails to
// parse yields an empty slice; parse failures are never surfaced as errors.
func (c *Collection[R]) Read() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked()
}

func (c *Collection[R]) readLocked() []R {
	raw, ok := c.kv.Get(c.key)
	if !ok {
		return nil
	}
	records, err := DecodeList[R](raw)
	if err != nil {
		c.log.Warn("flat collection unreadable, treating as empty", "key", c.key, "error", err)
		return nil
	}
	return records
}

// Write replaces the whole collection, evicting oldest-first beyond the
// cap. Quota failures come back as ErrQuotaExceeded for the caller to treat
// as a soft failure.
func (c *Collection[R]) Write(records []R) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(records)
}

func (c *Collection[R]) writeLocked(records []R) error {
	records = Evict(records, c.cap)
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.kv.Set(c.key, string(raw))
}

// Upsert inserts or replaces the record with the same id, then persists the
// whole list. The read and write happen under the collection mutex.
func (c *Collection[R]) Upsert(rec R) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := c.readLocked()
	replaced := false
	for i := range records {
		if records[i].RecordID() == rec.RecordID() {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return c.writeLocked(records)
}

// Remove deletes the record with the given id, if present.
func (c *Collection[R]) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := c.readLocked()
	kept := records[:0]
	for _, r := range records {
		if r.RecordID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return c.writeLocked(kept)
}

// Evict drops the oldest records (by parsed createdAt) until at most cap
// remain. Records with unparsable timestamps sort oldest and go first.
func Evict[R types.Record](records []R, cap int) []R {
	if cap <= 0 || len(records) <= cap {
		return records
	}
	sorted := make([]R, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordTime().Before(sorted[j].RecordTime())
	})
	return sorted[len(sorted)-cap:]
}

// DecodeList parses a serialized collection blob. Elements that fail to
// parse individually are skipped, so one bad record does not take down the
// rest of the collection.
func DecodeList[R types.Record](raw string) ([]R, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, err
	}
	records := make([]R, 0, len(elems))
	for _, e := range elems {
		var r R
		if err := json.Unmarshal(e, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
