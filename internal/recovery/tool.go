// Package recovery is the operator-facing diagnostic and disaster-recovery
// tool. Unlike the coordinator it scans every backend directly, including
// every flat key under the application prefix and the session-scoped store
// the coordinator never touches, so data written under any historical
// key-naming scheme shows up in the report. Its restore and clear paths
// deliberately bypass the coordinator's discipline and are unsafe to run
// concurrently with normal writes.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/internal/indexedstore"
	"github.com/dreamlayer/artvault/internal/memcache"
	"github.com/dreamlayer/artvault/internal/merge"
	"github.com/dreamlayer/artvault/pkg/types"
)

// Tool scans, exports, restores, and clears the storage backends.
type Tool struct {
	kv      flatstore.KV
	session flatstore.KV
	indexed *indexedstore.Store
	cache   *memcache.Cache
	log     *slog.Logger
	now     func() time.Time
}

// New creates a tool over all four backends. session may be nil when no
// session-scoped store exists.
func New(kv, session flatstore.KV, indexed *indexedstore.Store, cache *memcache.Cache, log *slog.Logger) *Tool {
	if log == nil {
		log = slog.Default()
	}
	return &Tool{kv: kv, session: session, indexed: indexed, cache: cache, log: log, now: time.Now}
}

// Scan independently inspects every backend and produces a diff-able
// report. Reads are direct; the coordinator is not involved.
func (t *Tool) Scan(ctx context.Context) types.DiagnosticReport {
	report := types.DiagnosticReport{
		Timestamp:  types.FormatTime(t.now()),
		PerBackend: make(map[string]types.BackendReport),
	}

	report.PerBackend[types.AdapterFlat] = t.scanFlat(t.kv)
	if t.session != nil {
		report.PerBackend[types.AdapterSession] = t.scanFlat(t.session)
	}
	report.PerBackend[types.AdapterIndexed] = t.scanIndexed(ctx)
	report.PerBackend[types.AdapterVolatile] = types.BackendReport{
		Available: true,
		Artifacts: t.cache.Len(types.CollectionImages),
		History:   t.cache.Len(types.CollectionHistory),
		Favorites: t.cache.Len(types.CollectionFavorites),
	}

	images, history, favorites := t.gatherAll(ctx)
	report.Summary = types.ReportSummary{
		TotalArtifacts: len(images),
		TotalHistory:   len(history),
		TotalFavorites: len(favorites),
		HasData:        len(images)+len(history)+len(favorites) > 0,
	}
	if raw, ok := t.kv.Get(types.KeyBackup); ok {
		var snap types.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			report.Summary.LastSnapshot = snap.Timestamp
		}
	}
	return report
}

// scanFlat walks every key under the application prefix, classifying each
// parseable value by the record kind it decodes as. Historical keys count
// the same as canonical ones.
func (t *Tool) scanFlat(kv flatstore.KV) types.BackendReport {
	report := types.BackendReport{Available: true}
	for _, key := range flatstore.PrefixedKeys(kv, types.KeyPrefix) {
		raw, ok := kv.Get(key)
		if !ok {
			continue
		}
		report.Keys = append(report.Keys, key)
		report.Bytes += int64(len(raw))

		if imgs, err := flatstore.DecodeList[types.Artifact](raw); err == nil {
			report.Artifacts += countIdentified(imgs, "img_")
		}
		if hist, err := flatstore.DecodeList[types.HistoryEntry](raw); err == nil {
			report.History += countIdentified(hist, "hist_")
		}
		if favs, err := flatstore.DecodeList[types.FavoriteMarker](raw); err == nil {
			for _, f := range favs {
				if f.EntityID != "" {
					report.Favorites++
				}
			}
		}
	}
	return report
}

// countIdentified counts records whose id carries the kind prefix; a flat
// blob decodes loosely into several shapes, the prefix disambiguates.
func countIdentified[R types.Record](recs []R, prefix string) int {
	n := 0
	for _, r := range recs {
		id := r.RecordID()
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (t *Tool) scanIndexed(ctx context.Context) types.BackendReport {
	report := types.BackendReport{Available: t.indexed.Available()}
	if !report.Available {
		return report
	}
	for name, set := range map[string]*int{
		types.CollectionImages:    &report.Artifacts,
		types.CollectionHistory:   &report.History,
		types.CollectionFavorites: &report.Favorites,
	} {
		n, err := t.indexed.Count(ctx, name)
		if err != nil {
			report.Available = false
			report.Err = err.Error()
			return report
		}
		*set = n
	}
	return report
}

// gatherAll builds the deduplicated union of every backend, legacy keys
// included.
func (t *Tool) gatherAll(ctx context.Context) ([]types.Artifact, []types.HistoryEntry, []types.FavoriteMarker) {
	var imageSources [][]types.Artifact
	var historySources [][]types.HistoryEntry
	var favoriteSources [][]types.FavoriteMarker

	if t.indexed.Available() {
		if rows, err := t.indexed.All(ctx, types.CollectionImages); err == nil {
			imageSources = append(imageSources, decodeRows[types.Artifact](rows))
		}
		if rows, err := t.indexed.All(ctx, types.CollectionHistory); err == nil {
			historySources = append(historySources, decodeRows[types.HistoryEntry](rows))
		}
		if rows, err := t.indexed.All(ctx, types.CollectionFavorites); err == nil {
			favoriteSources = append(favoriteSources, decodeRows[types.FavoriteMarker](rows))
		}
	}

	for _, kv := range t.stores() {
		for _, key := range append([]string{types.KeyImages}, types.LegacyImageKeys...) {
			if raw, ok := kv.Get(key); ok {
				if recs, err := flatstore.DecodeList[types.Artifact](raw); err == nil {
					imageSources = append(imageSources, recs)
				}
			}
		}
		for _, key := range append([]string{types.KeyHistory}, types.LegacyHistoryKeys...) {
			if raw, ok := kv.Get(key); ok {
				if recs, err := flatstore.DecodeList[types.HistoryEntry](raw); err == nil {
					historySources = append(historySources, recs)
				}
			}
		}
		for _, key := range append([]string{types.KeyFavorites}, types.LegacyFavoriteKeys...) {
			if raw, ok := kv.Get(key); ok {
				if recs, err := flatstore.DecodeList[types.FavoriteMarker](raw); err == nil {
					favoriteSources = append(favoriteSources, recs)
				}
			}
		}
	}

	imageSources = append(imageSources, decodeRaws[types.Artifact](t.cache.All(types.CollectionImages)))
	historySources = append(historySources, decodeRaws[types.HistoryEntry](t.cache.All(types.CollectionHistory)))
	favoriteSources = append(favoriteSources, decodeRaws[types.FavoriteMarker](t.cache.All(types.CollectionFavorites)))

	return merge.All(imageSources...), merge.All(historySources...), merge.All(favoriteSources...)
}

func (t *Tool) stores() []flatstore.KV {
	stores := []flatstore.KV{t.kv}
	if t.session != nil {
		stores = append(stores, t.session)
	}
	return stores
}

// readStats reads the canonical stats slot, tolerating absence.
func (t *Tool) readStats() types.Stats {
	raw, ok := t.kv.Get(types.KeyStats)
	if !ok {
		return types.Stats{}
	}
	var stats types.Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return types.Stats{}
	}
	return stats
}

// ExportAll serializes the deduplicated union of all backends into the
// downloadable export bundle.
func (t *Tool) ExportAll(ctx context.Context) types.ExportBundle {
	images, history, favorites := t.gatherAll(ctx)
	return types.ExportBundle{
		Timestamp: types.FormatTime(t.now()),
		Images:    images,
		History:   history,
		Favorites: favorites,
		Stats:     t.readStats(),
		Version:   types.SchemaVersion,
		Platform:  runtime.GOOS,
	}
}

// DownloadBackup pairs the diagnostic report with a full backup of the
// deduplicated collections.
func (t *Tool) DownloadBackup(ctx context.Context) types.DiagnosticBundle {
	images, history, favorites := t.gatherAll(ctx)
	return types.DiagnosticBundle{
		Timestamp: types.FormatTime(t.now()),
		Report:    t.Scan(ctx),
		Backup: types.BackupData{
			Images:    images,
			History:   history,
			Favorites: favorites,
			Stats:     t.readStats(),
		},
	}
}

// Restore writes bundle collections directly into the canonical flat keys,
// bypassing per-record normalization. The one concession to safety: records missing an
// id or createdAt are dropped (counted in the result) because the merge
// engine cannot order them. Restore reports failure explicitly; there is
// no further fallback behind it.
func (t *Tool) Restore(ctx context.Context, bundle types.ExportBundle) (types.RestoreResult, error) {
	var result types.RestoreResult

	if bundle.Version != types.SchemaVersion {
		return result, fmt.Errorf("%w: %q", types.ErrBundleVersion, bundle.Version)
	}
	if len(bundle.Images)+len(bundle.History)+len(bundle.Favorites) == 0 {
		return result, types.ErrNothingToRestore
	}

	images, droppedImages := keepOrderable(bundle.Images)
	history, droppedHistory := keepOrderable(bundle.History)
	favorites, droppedFavorites := keepOrderable(bundle.Favorites)
	result.Dropped = droppedImages + droppedHistory + droppedFavorites
	if result.Dropped > 0 {
		t.log.Warn("restore dropped unorderable records", "count", result.Dropped)
	}

	var errs []error
	if err := writeCollection(t.kv, types.KeyImages, images); err != nil {
		errs = append(errs, fmt.Errorf("restore images: %w", err))
	} else {
		result.Artifacts = len(images)
	}
	if err := writeCollection(t.kv, types.KeyHistory, history); err != nil {
		errs = append(errs, fmt.Errorf("restore history: %w", err))
	} else {
		result.History = len(history)
	}
	if err := writeCollection(t.kv, types.KeyFavorites, favorites); err != nil {
		errs = append(errs, fmt.Errorf("restore favorites: %w", err))
	} else {
		result.Favorites = len(favorites)
	}

	if raw, err := json.Marshal(bundle.Stats); err == nil {
		if err := t.kv.Set(types.KeyStats, string(raw)); err == nil {
			result.Stats = true
		}
	}

	return result, errors.Join(errs...)
}

// keepOrderable filters out records lacking an id or parseable createdAt.
func keepOrderable[R types.Record](recs []R) ([]R, int) {
	kept := make([]R, 0, len(recs))
	dropped := 0
	for _, r := range recs {
		if r.RecordID() == "" || r.RecordTime().IsZero() {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

func writeCollection[R types.Record](kv flatstore.KV, key string, recs []R) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return kv.Set(key, string(raw))
}

// Clear deletes every known key from the flat and session stores, resets
// the volatile cache, and empties the indexed collections and snapshot
// slot. Destructive; confirmation is the caller's concern. Failures are
// reported explicitly.
func (t *Tool) Clear(ctx context.Context) error {
	for _, kv := range t.stores() {
		for _, key := range flatstore.PrefixedKeys(kv, types.KeyPrefix) {
			kv.Delete(key)
		}
		for _, key := range legacyKeys() {
			kv.Delete(key)
		}
	}
	t.cache.Reset()

	if !t.indexed.Available() {
		return nil
	}
	var errs []error
	for _, collection := range []string{types.CollectionImages, types.CollectionHistory, types.CollectionFavorites} {
		if err := t.indexed.ClearCollection(ctx, collection); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", collection, err))
		}
	}
	if err := t.indexed.ClearSnapshot(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear snapshot slot: %w", err))
	}
	return errors.Join(errs...)
}

func legacyKeys() []string {
	keys := make([]string, 0,
		len(types.LegacyImageKeys)+len(types.LegacyHistoryKeys)+len(types.LegacyFavoriteKeys))
	keys = append(keys, types.LegacyImageKeys...)
	keys = append(keys, types.LegacyHistoryKeys...)
	keys = append(keys, types.LegacyFavoriteKeys...)
	return keys
}

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
