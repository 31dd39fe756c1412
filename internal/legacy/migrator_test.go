package legacy

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamlayer/artvault/internal/coordinator"
	"github.com/dreamlayer/artvault/internal/events"
	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/internal/indexedstore"
	"github.com/dreamlayer/artvault/internal/memcache"
	"github.com/dreamlayer/artvault/internal/syncqueue"
	"github.com/dreamlayer/artvault/pkg/types"
)

func setup(t *testing.T) (*Migrator, *coordinator.Coordinator, *flatstore.MemKV, *events.Notifier) {
	t.Helper()
	kv := flatstore.NewMemKV(0)
	indexed, err := indexedstore.Open(filepath.Join(t.TempDir(), "indexed.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { indexed.Close() })

	notifier := events.New()
	coord := coordinator.New(types.Config{DataDir: t.TempDir()}, kv, indexed,
		memcache.New(), syncqueue.New(kv, nil), notifier)
	return New(kv, coord, notifier, nil), coord, kv, notifier
}

func plantLegacyImages(t *testing.T, kv *flatstore.MemKV, key string, recs []types.Artifact) {
	t.Helper()
	raw, err := json.Marshal(recs)
	require.NoError(t, err)
	require.NoError(t, kv.Set(key, string(raw)))
}

func TestMigratesLegacyImages(t *testing.T) {
	m, coord, kv, _ := setup(t)
	ctx := context.Background()

	legacy := []types.Artifact{
		{ID: "img_old1", CreatedAt: types.FormatTime(time.Now()), Prompt: "vintage"},
		{ID: "img_old2", CreatedAt: types.FormatTime(time.Now()), Prompt: "retro"},
	}
	plantLegacyImages(t, kv, "generated_images", legacy)

	recovered := m.Run(ctx)
	assert.Equal(t, 2, recovered)
	assert.Len(t, coord.GetAllArtifacts(ctx), 2)

	// The legacy key is left in place.
	_, stillThere := kv.Get("generated_images")
	assert.True(t, stillThere)
}

func TestMigrationIsIdempotent(t *testing.T) {
	m, coord, kv, _ := setup(t)
	ctx := context.Background()

	plantLegacyImages(t, kv, "artvault_images", []types.Artifact{
		{ID: "img_1", CreatedAt: types.FormatTime(time.Now()), Prompt: "once"},
	})

	m.Run(ctx)
	first := coord.GetAllArtifacts(ctx)

	m.Run(ctx)
	second := coord.GetAllArtifacts(ctx)

	assert.Equal(t, first, second, "re-running migration must not change the merged collection")
}

func TestSkipsUnparsableLegacyData(t *testing.T) {
	m, coord, kv, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, kv.Set("generated_images", `{"not":"an array"}`))
	require.NoError(t, kv.Set("artvault_images", `broken json`))

	assert.Zero(t, m.Run(ctx))
	assert.Empty(t, coord.GetAllArtifacts(ctx))
}

func TestMigrationPublishesRecoveredCounts(t *testing.T) {
	m, _, kv, notifier := setup(t)

	plantLegacyImages(t, kv, "generated_images", []types.Artifact{
		{ID: "img_1", CreatedAt: types.FormatTime(time.Now())},
	})

	var got []types.Event
	notifier.Subscribe(func(ev types.Event) { got = append(got, ev) })

	m.Run(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, types.TopicGallery, got[0].Topic)
	assert.Equal(t, 1, got[0].Recovered)
}

func TestMigratesLegacyHistoryAndFavorites(t *testing.T) {
	m, coord, kv, _ := setup(t)
	ctx := context.Background()

	hist, err := json.Marshal([]types.HistoryEntry{
		{ID: "hist_img_1", CreatedAt: types.FormatTime(time.Now()), ArtifactID: "img_1", Prompt: "old attempt"},
	})
	require.NoError(t, err)
	require.NoError(t, kv.Set("generation_history", string(hist)))

	favs, err := json.Marshal([]types.FavoriteMarker{
		{EntityID: "img_1", CreatedAt: types.FormatTime(time.Now())},
	})
	require.NoError(t, err)
	require.NoError(t, kv.Set("artvault_favorites", string(favs)))

	recovered := m.Run(ctx)
	assert.Equal(t, 2, recovered)
	assert.Len(t, coord.GetAllHistoryEntries(ctx), 1)
	assert.True(t, coord.IsFavorite(ctx, "img_1"))
}
