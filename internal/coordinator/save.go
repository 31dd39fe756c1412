package coordinator

import (
	"context"

	"github.com/dreamlayer/artvault/pkg/types"
)

// normalizeArtifact fills the canonical record shape: id and createdAt are
// generated when absent, the owner tag and generation parameters default to
// the configured values. Normalization cannot fail; a save is reported
// successful from this point on.
func (c *Coordinator) normalizeArtifact(in types.Artifact) types.Artifact {
	if in.ID == "" {
		in.ID = c.newID("img")
	}
	if in.CreatedAt == "" {
		in.CreatedAt = types.FormatTime(c.now())
	}
	if in.OwnerTag == "" {
		in.OwnerTag = c.cfg.Owner()
	}
	if in.Width == 0 {
		in.Width = types.DefaultWidth
	}
	if in.Height == 0 {
		in.Height = types.DefaultHeight
	}
	if in.Steps == 0 {
		in.Steps = types.DefaultSteps
	}
	if in.Guidance == 0 {
		in.Guidance = types.DefaultGuidance
	}
	if in.Model == "" {
		in.Model = types.DefaultModel
	}
	if in.Style == "" {
		in.Style = types.DefaultStyle
	}
	return in
}

// historyFrom derives the cascaded history entry for an artifact save.
func historyFrom(rec types.Artifact) types.HistoryEntry {
	return types.HistoryEntry{
		ID:         types.HistoryID(rec.ID),
		CreatedAt:  rec.CreatedAt,
		OwnerTag:   rec.OwnerTag,
		ArtifactID: rec.ID,
		Prompt:     rec.Prompt,
		Width:      rec.Width,
		Height:     rec.Height,
		Steps:      rec.Steps,
		Guidance:   rec.Guidance,
		Model:      rec.Model,
		Style:      rec.Style,
		Outcome:    "completed",
	}
}

// SaveArtifact persists one artifact across all adapters, then triggers the
// downstream effects: snapshot, stats, favorite marker, and the 1:1 history
// cascade. Each step is independent; failures are captured per adapter and
// the overall result stays successful once normalization succeeded.
func (c *Coordinator) SaveArtifact(ctx context.Context, in types.Artifact, updateStats bool) types.SaveResult {
	rec := c.normalizeArtifact(in)
	adapters := c.writeArtifact(ctx, rec)

	if c.snapshots != nil {
		if _, err := c.snapshots.Create(ctx); err != nil {
			c.log.Warn("snapshot after save failed", "artifact", rec.ID, "error", err)
		}
	}

	if updateStats {
		if err := c.updateStats(rec); err != nil {
			c.log.Warn("stats update failed, falling back to counter", "error", err)
			c.bumpCounter()
		}
	}

	if rec.Favorite {
		marker := types.FavoriteMarker{
			ID:        types.FavoriteID(rec.ID),
			EntityID:  rec.ID,
			CreatedAt: rec.CreatedAt,
			OwnerTag:  rec.OwnerTag,
		}
		c.writeFavorite(ctx, marker)
	}

	hist := historyFrom(rec)
	c.writeHistory(ctx, hist)

	c.publish(types.TopicGallery, 1, 0)
	c.publish(types.TopicHistory, 1, 0)

	return types.SaveResult{
		Success:  true,
		Record:   rec,
		History:  hist,
		Adapters: adapters,
	}
}

// SaveHistoryEntry persists a standalone history entry (one not cascaded
// from an artifact save) with the same best-effort fan-out.
func (c *Coordinator) SaveHistoryEntry(ctx context.Context, in types.HistoryEntry) types.HistoryResult {
	if in.ID == "" {
		in.ID = c.newID("hist")
	}
	if in.CreatedAt == "" {
		in.CreatedAt = types.FormatTime(c.now())
	}
	if in.OwnerTag == "" {
		in.OwnerTag = c.cfg.Owner()
	}

	adapters := c.writeHistory(ctx, in)
	c.publish(types.TopicHistory, 1, 0)
	return types.HistoryResult{Success: true, Record: in, Adapters: adapters}
}

// writeArtifact issues the three independent adapter writes.
func (c *Coordinator) writeArtifact(ctx context.Context, rec types.Artifact) map[string]types.AdapterResult {
	adapters := make(map[string]types.AdapterResult, 3)

	adapters[types.AdapterFlat] = result(c.images.Upsert(rec))

	row, err := encodeRow(rec)
	if err == nil {
		ictx, cancel := c.adapterCtx(ctx)
		err = c.indexed.Put(ictx, types.CollectionImages, row)
		cancel()
	}
	adapters[types.AdapterIndexed] = result(err)

	c.cache.Upsert(types.CollectionImages, rec.ID, rec.CreatedAt, row.Payload)
	adapters[types.AdapterVolatile] = result(nil)

	for name, res := range adapters {
		if !res.OK {
			c.log.Warn("artifact write failed", "adapter", name, "artifact", rec.ID, "error", res.Err)
		}
	}
	return adapters
}

func (c *Coordinator) writeHistory(ctx context.Context, rec types.HistoryEntry) map[string]types.AdapterResult {
	adapters := make(map[string]types.AdapterResult, 3)

	adapters[types.AdapterFlat] = result(c.history.Upsert(rec))

	row, err := encodeRow(rec)
	if err == nil {
		ictx, cancel := c.adapterCtx(ctx)
		err = c.indexed.Put(ictx, types.CollectionHistory, row)
		cancel()
	}
	adapters[types.AdapterIndexed] = result(err)

	c.cache.Upsert(types.CollectionHistory, rec.ID, rec.CreatedAt, row.Payload)
	adapters[types.AdapterVolatile] = result(nil)

	for name, res := range adapters {
		if !res.OK {
			c.log.Warn("history write failed", "adapter", name, "entry", rec.ID, "error", res.Err)
		}
	}
	return adapters
}

func (c *Coordinator) writeFavorite(ctx context.Context, marker types.FavoriteMarker) map[string]types.AdapterResult {
	adapters := make(map[string]types.AdapterResult, 3)

	adapters[types.AdapterFlat] = result(c.favorites.Upsert(marker))

	row, err := encodeRow(marker)
	if err == nil {
		ictx, cancel := c.adapterCtx(ctx)
		err = c.indexed.Put(ictx, types.CollectionFavorites, row)
		cancel()
	}
	adapters[types.AdapterIndexed] = result(err)

	c.cache.Upsert(types.CollectionFavorites, marker.ID, marker.CreatedAt, row.Payload)
	adapters[types.AdapterVolatile] = result(nil)

	for name, res := range adapters {
		if !res.OK {
			c.log.Warn("favorite write failed", "adapter", name, "marker", marker.ID, "error", res.Err)
		}
	}
	return adapters
}

// ReplayArtifact writes a record recovered by the legacy migrator or a
// restore. It skips stats, snapshots, and notifications; callers publish a
// single recovered-count event when the whole replay finishes.
func (c *Coordinator) ReplayArtifact(ctx context.Context, rec types.Artifact) {
	rec = c.normalizeArtifact(rec)
	c.writeArtifact(ctx, rec)
	if rec.Favorite {
		c.writeFavorite(ctx, types.FavoriteMarker{
			ID:        types.FavoriteID(rec.ID),
			EntityID:  rec.ID,
			CreatedAt: rec.CreatedAt,
			OwnerTag:  rec.OwnerTag,
		})
	}
}

// ReplayHistory mirrors ReplayArtifact for history entries.
func (c *Coordinator) ReplayHistory(ctx context.Context, rec types.HistoryEntry) {
	if rec.ID == "" {
		rec.ID = c.newID("hist")
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = types.FormatTime(c.now())
	}
	if rec.OwnerTag == "" {
		rec.OwnerTag = c.cfg.Owner()
	}
	c.writeHistory(ctx, rec)
}

// ReplayFavorite replays a favorite marker.
func (c *Coordinator) ReplayFavorite(ctx context.Context, marker types.FavoriteMarker) {
	if marker.ID == "" && marker.EntityID != "" {
		marker.ID = types.FavoriteID(marker.EntityID)
	}
	if marker.CreatedAt == "" {
		marker.CreatedAt = types.FormatTime(c.now())
	}
	c.writeFavorite(ctx, marker)
}
