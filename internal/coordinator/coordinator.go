// Package coordinator orchestrates writes and reads across the three
// storage adapters for a single logical operation. Every adapter call is
// wrapped so one failure never aborts the others: a save reports success as
// soon as normalization succeeds, and per-adapter outcomes travel in the
// result for diagnostics only. This is a deliberate best-effort policy; a
// storage failure must never block the user action that triggered it.
package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dreamlayer/artvault/internal/events"
	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/internal/indexedstore"
	"github.com/dreamlayer/artvault/internal/memcache"
	"github.com/dreamlayer/artvault/internal/merge"
	"github.com/dreamlayer/artvault/internal/snapshot"
	"github.com/dreamlayer/artvault/internal/syncqueue"
	"github.com/dreamlayer/artvault/pkg/types"
)

// RemoteFavorites is the authoritative remote system for favorite state.
// When a write fails, the coordinator captures it in the sync queue instead
// of surfacing an error.
type RemoteFavorites interface {
	SetFavorite(ctx context.Context, entityID string, favorite bool) error
}

// Coordinator fans operations out to the flat, indexed, and volatile
// adapters and folds reads back through the merge engine.
type Coordinator struct {
	cfg       types.Config
	kv        flatstore.KV
	images    *flatstore.Collection[types.Artifact]
	history   *flatstore.Collection[types.HistoryEntry]
	favorites *flatstore.Collection[types.FavoriteMarker]
	indexed   *indexedstore.Store
	cache     *memcache.Cache
	queue     *syncqueue.Queue
	notifier  *events.Notifier
	snapshots *snapshot.Manager
	remote    RemoteFavorites
	log       *slog.Logger
	now       func() time.Time
	newID     func(prefix string) string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithRemote sets the authoritative remote favorite system.
func WithRemote(remote RemoteFavorites) Option {
	return func(c *Coordinator) { c.remote = remote }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator overrides id generation, for tests.
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(c *Coordinator) { c.newID = gen }
}

// New assembles a coordinator over the given adapters. The snapshot manager
// is attached separately with SetSnapshotManager because it reads back
// through the coordinator.
func New(cfg types.Config, kv flatstore.KV, indexed *indexedstore.Store, cache *memcache.Cache, queue *syncqueue.Queue, notifier *events.Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		kv:       kv,
		indexed:  indexed,
		cache:    cache,
		queue:    queue,
		notifier: notifier,
		log:      slog.Default(),
		now:      time.Now,
		newID:    generateID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.images = flatstore.NewCollection[types.Artifact](kv, types.KeyImages, cfg.Cap(), c.log)
	c.history = flatstore.NewCollection[types.HistoryEntry](kv, types.KeyHistory, cfg.Cap(), c.log)
	c.favorites = flatstore.NewCollection[types.FavoriteMarker](kv, types.KeyFavorites, cfg.Cap(), c.log)
	return c
}

// SetSnapshotManager attaches the snapshot manager triggered after each
// artifact save.
func (c *Coordinator) SetSnapshotManager(m *snapshot.Manager) { c.snapshots = m }

// generateID builds a record id from a kind prefix and a UUID v7 token,
// falling back to v4 if v7 generation fails.
func generateID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return prefix + "_" + uuid.New().String()
	}
	return prefix + "_" + id.String()
}

// adapterCtx bounds an indexed store call so a hung transaction cannot hang
// the caller; the operation proceeds with the remaining adapters.
func (c *Coordinator) adapterCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.Timeout())
}

// encodeRow converts a record into an indexed store row.
func encodeRow[R types.Record](rec R) (indexedstore.Row, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return indexedstore.Row{}, err
	}
	return indexedstore.Row{
		ID:        rec.RecordID(),
		CreatedAt: types.FormatTime(rec.RecordTime()),
		OwnerTag:  rec.RecordOwner(),
		Payload:   payload,
	}, nil
}

// decodeRows parses indexed rows into records, skipping malformed payloads.
func decodeRows[R types.Record](rows []indexedstore.Row) []R {
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		var rec R
		if err := json.Unmarshal(row.Payload, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// decodeRaws parses volatile cache payloads, skipping malformed entries.
func decodeRaws[R types.Record](raws [][]byte) []R {
	out := make([]R, 0, len(raws))
	for _, raw := range raws {
		var rec R
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func result(err error) types.AdapterResult {
	return types.AdapterResult{OK: err == nil, Err: err}
}

func mergedView[R types.Record](indexed, flat, volatile []R) []R {
	return merge.All(indexed, flat, volatile)
}

func (c *Coordinator) publish(topic string, added, recovered int) {
	if c.notifier == nil {
		return
	}
	c.notifier.Publish(types.Event{Topic: topic, Added: added, Recovered: recovered})
}
