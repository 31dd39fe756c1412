package coordinator

import (
	"context"

	"github.com/dreamlayer/artvault/pkg/types"
)

// ToggleFavorite flips the favorite state of an artifact. The local tiers
// are updated first (the artifact's flag plus the marker collection), then
// the authoritative remote write is attempted; a remote failure is captured
// in the sync queue for later replay, never surfaced to the caller.
// Returns the new state.
func (c *Coordinator) ToggleFavorite(ctx context.Context, id string, current bool) bool {
	desired := !current

	// Update the flag on whichever copy of the artifact we hold. The
	// createdAt timestamp is left alone: it is the ordering and conflict
	// key, and a toggle is a mutation, not a new write.
	for _, rec := range c.GetAllArtifacts(ctx) {
		if rec.ID != id {
			continue
		}
		rec.Favorite = desired
		c.writeArtifact(ctx, rec)
		break
	}

	if desired {
		c.writeFavorite(ctx, types.FavoriteMarker{
			ID:        types.FavoriteID(id),
			EntityID:  id,
			CreatedAt: types.FormatTime(c.now()),
			OwnerTag:  c.cfg.Owner(),
		})
	} else {
		c.removeFavorite(ctx, id)
	}

	if c.remote != nil {
		if err := c.remote.SetFavorite(ctx, id, desired); err != nil {
			c.log.Warn("remote favorite write failed, queued for sync", "entity", id, "error", err)
			c.queue.Mark(id, desired)
		}
	}

	c.publish(types.TopicGallery, 0, 0)
	return desired
}

// IsFavorite reports whether a favorite marker exists for the entity in
// the merged marker view.
func (c *Coordinator) IsFavorite(ctx context.Context, id string) bool {
	for _, marker := range c.GetAllFavorites(ctx) {
		if marker.EntityID == id {
			return true
		}
	}
	return false
}

// removeFavorite deletes the marker from every adapter.
func (c *Coordinator) removeFavorite(ctx context.Context, id string) {
	markerID := types.FavoriteID(id)
	if err := c.favorites.Remove(markerID); err != nil {
		c.log.Warn("flat marker removal failed", "entity", id, "error", err)
	}
	ictx, cancel := c.adapterCtx(ctx)
	if err := c.indexed.Delete(ictx, types.CollectionFavorites, markerID); err != nil {
		c.log.Warn("indexed marker removal failed", "entity", id, "error", err)
	}
	cancel()
	c.cache.Remove(types.CollectionFavorites, markerID)
}

// SyncPendingFavorites replays queued favorite writes against the remote
// system. Without a configured remote this is a no-op. Returns how many
// entries reached the remote.
func (c *Coordinator) SyncPendingFavorites(ctx context.Context) int {
	if c.remote == nil {
		return 0
	}
	return c.queue.Sync(ctx, func(ctx context.Context, entityID string, desired bool) error {
		return c.remote.SetFavorite(ctx, entityID, desired)
	})
}

// ClearOldSyncData purges sync entries past the retry horizon.
func (c *Coordinator) ClearOldSyncData() int {
	return c.queue.ClearOld()
}

// PendingSync returns a copy of the queued favorite writes.
func (c *Coordinator) PendingSync() map[string]types.SyncEntry {
	return c.queue.Pending()
}
