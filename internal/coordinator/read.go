package coordinator

import (
	"context"

	"github.com/dreamlayer/artvault/internal/indexedstore"
	"github.com/dreamlayer/artvault/internal/memcache"
	"github.com/dreamlayer/artvault/pkg/types"
)

// GetAllArtifacts returns the merged, deduplicated artifact list, newest
// first. Adapter read failures degrade to partial data, never to an error.
func (c *Coordinator) GetAllArtifacts(ctx context.Context) []types.Artifact {
	indexedRecs := readIndexed[types.Artifact](ctx, c, types.CollectionImages)
	flatRecs := c.images.Read()
	cacheRecs := decodeRaws[types.Artifact](c.cache.All(types.CollectionImages))
	return mergedView(indexedRecs, flatRecs, cacheRecs)
}

// GetAllHistoryEntries mirrors GetAllArtifacts for the history collection.
func (c *Coordinator) GetAllHistoryEntries(ctx context.Context) []types.HistoryEntry {
	indexedRecs := readIndexed[types.HistoryEntry](ctx, c, types.CollectionHistory)
	flatRecs := c.history.Read()
	cacheRecs := decodeRaws[types.HistoryEntry](c.cache.All(types.CollectionHistory))
	return mergedView(indexedRecs, flatRecs, cacheRecs)
}

// GetAllFavorites returns the merged favorite markers.
func (c *Coordinator) GetAllFavorites(ctx context.Context) []types.FavoriteMarker {
	indexedRecs := readIndexed[types.FavoriteMarker](ctx, c, types.CollectionFavorites)
	flatRecs := c.favorites.Read()
	cacheRecs := decodeRaws[types.FavoriteMarker](c.cache.All(types.CollectionFavorites))
	return mergedView(indexedRecs, flatRecs, cacheRecs)
}

// GetArtifactsByOwner returns the merged artifacts owned by one tag. The
// indexed store serves its part off the owner index; flat and volatile
// results are filtered after the fact.
func (c *Coordinator) GetArtifactsByOwner(ctx context.Context, owner string) []types.Artifact {
	var indexedRecs []types.Artifact
	ictx, cancel := c.adapterCtx(ctx)
	rows, err := c.indexed.ByOwner(ictx, types.CollectionImages, owner)
	cancel()
	if err == nil {
		indexedRecs = decodeRows[types.Artifact](rows)
	} else {
		c.log.Warn("indexed owner read failed", "error", err)
	}

	flatRecs := filterOwner(c.images.Read(), owner)
	cacheRecs := filterOwner(decodeRaws[types.Artifact](c.cache.All(types.CollectionImages)), owner)
	return mergedView(indexedRecs, flatRecs, cacheRecs)
}

func filterOwner(recs []types.Artifact, owner string) []types.Artifact {
	out := recs[:0:0]
	for _, r := range recs {
		if r.RecordOwner() == owner {
			out = append(out, r)
		}
	}
	return out
}

// readIndexed reads one collection from the indexed store under the
// adapter timeout, concurrently with the caller's synchronous reads.
func readIndexed[R types.Record](ctx context.Context, c *Coordinator, collection string) []R {
	type outcome struct {
		rows []indexedstore.Row
		err  error
	}
	ch := make(chan outcome, 1)
	ictx, cancel := c.adapterCtx(ctx)
	defer cancel()

	go func() {
		rows, err := c.indexed.All(ictx, collection)
		ch <- outcome{rows: rows, err: err}
	}()

	select {
	case <-ictx.Done():
		c.log.Warn("indexed read timed out", "collection", collection)
		return nil
	case out := <-ch:
		if out.err != nil {
			c.log.Warn("indexed read failed", "collection", collection, "error", out.err)
			return nil
		}
		return decodeRows[R](out.rows)
	}
}

// DeleteArtifact removes one artifact and its favorite marker from every
// adapter. The cascaded history entry is kept; history is a log of
// attempts, not a mirror of the gallery.
func (c *Coordinator) DeleteArtifact(ctx context.Context, id string) map[string]types.AdapterResult {
	adapters := make(map[string]types.AdapterResult, 3)

	adapters[types.AdapterFlat] = result(c.images.Remove(id))

	ictx, cancel := c.adapterCtx(ctx)
	err := c.indexed.Delete(ictx, types.CollectionImages, id)
	if err == nil {
		err = c.indexed.Delete(ictx, types.CollectionFavorites, types.FavoriteID(id))
	}
	cancel()
	adapters[types.AdapterIndexed] = result(err)

	c.cache.Remove(types.CollectionImages, id)
	c.cache.Remove(types.CollectionFavorites, types.FavoriteID(id))
	adapters[types.AdapterVolatile] = result(nil)

	if err := c.favorites.Remove(types.FavoriteID(id)); err != nil {
		c.log.Warn("favorite marker removal failed", "artifact", id, "error", err)
	}

	c.publish(types.TopicGallery, 0, 0)
	return adapters
}

// BuildSnapshot gathers the full merged view of every collection for the
// snapshot manager.
func (c *Coordinator) BuildSnapshot(ctx context.Context) (types.Snapshot, error) {
	return types.Snapshot{
		Timestamp:      types.FormatTime(c.now()),
		SchemaVersion:  types.SchemaVersion,
		Artifacts:      c.GetAllArtifacts(ctx),
		HistoryEntries: c.GetAllHistoryEntries(ctx),
		Favorites:      c.GetAllFavorites(ctx),
	}, nil
}

// Cache exposes the volatile cache for the recovery tool's direct scan.
func (c *Coordinator) Cache() *memcache.Cache { return c.cache }
