// Package artvault assembles the multi-tier persistence layer and exposes
// the consumer API surface: best-effort saves, merged reads, favorite
// toggling, export/restore, and the diagnostic report. Open wires the
// three adapters, the coordinator, the snapshot scheduler, and the legacy
// migrator; Close tears the scheduler down with the subsystem.
package artvault

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dreamlayer/artvault/internal/coordinator"
	"github.com/dreamlayer/artvault/internal/events"
	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/internal/indexedstore"
	"github.com/dreamlayer/artvault/internal/legacy"
	"github.com/dreamlayer/artvault/internal/memcache"
	"github.com/dreamlayer/artvault/internal/recovery"
	"github.com/dreamlayer/artvault/internal/snapshot"
	"github.com/dreamlayer/artvault/internal/syncqueue"
	"github.com/dreamlayer/artvault/pkg/types"
)

// File names inside the data dir.
const (
	flatFileName    = "flat.json"
	indexedFileName = "indexed.db"
)

// Vault is the assembled persistence layer.
type Vault struct {
	cfg       types.Config
	kv        *flatstore.FileKV
	session   *flatstore.MemKV
	indexed   *indexedstore.Store
	cache     *memcache.Cache
	coord     *coordinator.Coordinator
	snapshots *snapshot.Manager
	tool      *recovery.Tool
	notifier  *events.Notifier
	log       *slog.Logger
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	log       *slog.Logger
	remote    coordinator.RemoteFavorites
	now       func() time.Time
	noTicker  bool
	noMigrate bool
}

// WithLogger sets the logger for every component.
func WithLogger(log *slog.Logger) Option {
	return func(o *openOptions) { o.log = log }
}

// WithRemoteFavorites sets the authoritative remote favorite system.
func WithRemoteFavorites(remote coordinator.RemoteFavorites) Option {
	return func(o *openOptions) { o.remote = remote }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *openOptions) { o.now = now }
}

// WithoutScheduler opens the vault without starting the periodic snapshot
// loop. Saves still snapshot synchronously.
func WithoutScheduler() Option {
	return func(o *openOptions) { o.noTicker = true }
}

// WithoutMigration skips the startup legacy migration pass.
func WithoutMigration() Option {
	return func(o *openOptions) { o.noMigrate = true }
}

// Open validates the config, opens the flat and indexed backends, runs the
// legacy migration, and starts the snapshot scheduler. A failed indexed
// open degrades that tier and is logged, not returned: only an unusable
// flat backend fails Open.
func Open(ctx context.Context, cfg types.Config, opts ...Option) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = slog.Default()
	}

	kv, err := flatstore.OpenFileKV(filepath.Join(cfg.DataDir, flatFileName), cfg.Quota(), log)
	if err != nil {
		return nil, fmt.Errorf("open flat store: %w", err)
	}

	indexed, err := indexedstore.Open(filepath.Join(cfg.DataDir, indexedFileName), cfg.Cap())
	if err != nil {
		log.Warn("indexed store unavailable, continuing without it", "error", err)
	}

	session := flatstore.NewMemKV(cfg.Quota())
	cache := memcache.New()
	notifier := events.New()
	queue := syncqueue.New(kv, log)

	coordOpts := []coordinator.Option{coordinator.WithLogger(log)}
	if o.remote != nil {
		coordOpts = append(coordOpts, coordinator.WithRemote(o.remote))
	}
	if o.now != nil {
		coordOpts = append(coordOpts, coordinator.WithClock(o.now))
	}
	coord := coordinator.New(cfg, kv, indexed, cache, queue, notifier, coordOpts...)

	snapshots := snapshot.NewManager(kv, indexed, coord.BuildSnapshot, cfg.Interval(), log)
	coord.SetSnapshotManager(snapshots)

	v := &Vault{
		cfg:       cfg,
		kv:        kv,
		session:   session,
		indexed:   indexed,
		cache:     cache,
		coord:     coord,
		snapshots: snapshots,
		tool:      recovery.New(kv, session, indexed, cache, log),
		notifier:  notifier,
		log:       log,
	}

	if !o.noMigrate {
		if recovered := legacy.New(kv, coord, notifier, log).Run(ctx); recovered > 0 {
			log.Info("startup migration recovered records", "count", recovered)
		}
	}
	if !o.noTicker {
		snapshots.Start(ctx)
	}
	return v, nil
}

// Close stops the snapshot scheduler and releases the indexed store.
func (v *Vault) Close() error {
	v.snapshots.Close()
	return v.indexed.Close()
}

// SaveArtifact persists an artifact across all tiers, best effort.
func (v *Vault) SaveArtifact(ctx context.Context, in types.Artifact, updateStats bool) types.SaveResult {
	return v.coord.SaveArtifact(ctx, in, updateStats)
}

// GetAllArtifacts returns the merged gallery view, newest first.
func (v *Vault) GetAllArtifacts(ctx context.Context) []types.Artifact {
	return v.coord.GetAllArtifacts(ctx)
}

// SaveHistoryEntry persists a standalone history entry.
func (v *Vault) SaveHistoryEntry(ctx context.Context, in types.HistoryEntry) types.HistoryResult {
	return v.coord.SaveHistoryEntry(ctx, in)
}

// GetAllHistoryEntries returns the merged history view, newest first.
func (v *Vault) GetAllHistoryEntries(ctx context.Context) []types.HistoryEntry {
	return v.coord.GetAllHistoryEntries(ctx)
}

// GetArtifactsByOwner returns the merged artifacts for one owner tag.
func (v *Vault) GetArtifactsByOwner(ctx context.Context, owner string) []types.Artifact {
	return v.coord.GetArtifactsByOwner(ctx, owner)
}

// ToggleFavorite flips favorite state and returns the new state.
func (v *Vault) ToggleFavorite(ctx context.Context, id string, current bool) bool {
	return v.coord.ToggleFavorite(ctx, id, current)
}

// IsFavorite reports whether a favorite marker exists for the entity.
func (v *Vault) IsFavorite(ctx context.Context, id string) bool {
	return v.coord.IsFavorite(ctx, id)
}

// DeleteArtifact removes an artifact and its marker from every tier.
func (v *Vault) DeleteArtifact(ctx context.Context, id string) map[string]types.AdapterResult {
	return v.coord.DeleteArtifact(ctx, id)
}

// Stats returns the aggregate counters record.
func (v *Vault) Stats() types.Stats { return v.coord.Stats() }

// CreateSnapshot materializes a snapshot on demand.
func (v *Vault) CreateSnapshot(ctx context.Context) (*types.Snapshot, error) {
	return v.snapshots.Create(ctx)
}

// LatestSnapshot returns the newest snapshot from the backup slots.
func (v *Vault) LatestSnapshot(ctx context.Context) (*types.Snapshot, error) {
	return v.snapshots.Latest(ctx)
}

// ExportAllData serializes the deduplicated union of all backends.
func (v *Vault) ExportAllData(ctx context.Context) types.ExportBundle {
	return v.tool.ExportAll(ctx)
}

// DownloadBackup returns the diagnostic report plus a full backup.
func (v *Vault) DownloadBackup(ctx context.Context) types.DiagnosticBundle {
	return v.tool.DownloadBackup(ctx)
}

// RestoreFromBackup writes bundle collections into the canonical keys.
// Unsafe to run concurrently with normal writes.
func (v *Vault) RestoreFromBackup(ctx context.Context, bundle types.ExportBundle) (types.RestoreResult, error) {
	return v.tool.Restore(ctx, bundle)
}

// ClearAllStorage deletes everything from every backend. Destructive;
// confirmation is a UI concern.
func (v *Vault) ClearAllStorage(ctx context.Context) error {
	return v.tool.Clear(ctx)
}

// Report scans every backend and returns the diagnostic report.
func (v *Vault) Report(ctx context.Context) types.DiagnosticReport {
	return v.tool.Scan(ctx)
}

// SyncPendingFavorites replays queued favorite writes to the remote.
func (v *Vault) SyncPendingFavorites(ctx context.Context) int {
	return v.coord.SyncPendingFavorites(ctx)
}

// ClearOldSyncData purges sync entries past the retry horizon.
func (v *Vault) ClearOldSyncData() int { return v.coord.ClearOldSyncData() }

// PendingSync returns a copy of the queued favorite writes.
func (v *Vault) PendingSync() map[string]types.SyncEntry { return v.coord.PendingSync() }

// Subscribe registers a listener for data-change notifications.
func (v *Vault) Subscribe(fn func(types.Event)) (cancel func()) {
	return v.notifier.Subscribe(fn)
}
