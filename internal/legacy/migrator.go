// Package legacy detects data left behind by earlier schema and storage
// generations and replays it through the coordinator exactly once per
// startup. Legacy keys are deliberately left in place: re-running the
// migration re-inserts the same ids and the merge engine's dedup absorbs
// the replay, so the operation is idempotent without needing a deletion
// step that could itself fail.
package legacy

import (
	"context"
	"log/slog"

	"github.com/dreamlayer/artvault/internal/coordinator"
	"github.com/dreamlayer/artvault/internal/events"
	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/pkg/types"
)

// Migrator replays deprecated-key data through the coordinator.
type Migrator struct {
	kv       flatstore.KV
	coord    *coordinator.Coordinator
	notifier *events.Notifier
	log      *slog.Logger
}

// New creates a migrator over the flat backend the legacy generations
// wrote to.
func New(kv flatstore.KV, coord *coordinator.Coordinator, notifier *events.Notifier, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{kv: kv, coord: coord, notifier: notifier, log: log}
}

// Run scans every known deprecated key and replays parseable records. A
// key whose value is missing, not an array, or otherwise unparsable is
// skipped silently; that is the "no legacy data" case, not an error.
// Returns the number of records replayed.
func (m *Migrator) Run(ctx context.Context) int {
	recovered := 0

	images := 0
	for _, key := range types.LegacyImageKeys {
		for _, rec := range loadLegacy[types.Artifact](m.kv, key) {
			m.coord.ReplayArtifact(ctx, rec)
			images++
		}
	}

	history := 0
	for _, key := range types.LegacyHistoryKeys {
		for _, rec := range loadLegacy[types.HistoryEntry](m.kv, key) {
			m.coord.ReplayHistory(ctx, rec)
			history++
		}
	}

	favorites := 0
	for _, key := range types.LegacyFavoriteKeys {
		for _, rec := range loadLegacy[types.FavoriteMarker](m.kv, key) {
			m.coord.ReplayFavorite(ctx, rec)
			favorites++
		}
	}

	recovered = images + history + favorites
	if recovered > 0 {
		m.log.Info("legacy data migrated",
			"images", images, "history", history, "favorites", favorites)
		if m.notifier != nil {
			if images+favorites > 0 {
				m.notifier.Publish(types.Event{Topic: types.TopicGallery, Recovered: images + favorites})
			}
			if history > 0 {
				m.notifier.Publish(types.Event{Topic: types.TopicHistory, Recovered: history})
			}
		}
	}
	return recovered
}

// loadLegacy reads one deprecated key as a record array. Parse failures at
// the blob level yield nothing; bad elements inside a good array are
// skipped individually.
func loadLegacy[R types.Record](kv flatstore.KV, key string) []R {
	raw, ok := kv.Get(key)
	if !ok {
		return nil
	}
	records, err := flatstore.DecodeList[R](raw)
	if err != nil {
		return nil
	}
	return records
}
