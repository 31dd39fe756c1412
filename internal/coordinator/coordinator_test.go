package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamlayer/artvault/internal/events"
	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/internal/indexedstore"
	"github.com/dreamlayer/artvault/internal/memcache"
	"github.com/dreamlayer/artvault/internal/syncqueue"
	"github.com/dreamlayer/artvault/pkg/types"
)

type fixture struct {
	coord    *Coordinator
	kv       *flatstore.MemKV
	indexed  *indexedstore.Store
	cache    *memcache.Cache
	notifier *events.Notifier
}

func setup(t *testing.T, cfg types.Config, opts ...Option) *fixture {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	kv := flatstore.NewMemKV(cfg.FlatQuotaBytes)
	indexed, err := indexedstore.Open(filepath.Join(t.TempDir(), "indexed.db"), cfg.Cap())
	require.NoError(t, err)
	t.Cleanup(func() { indexed.Close() })

	cache := memcache.New()
	queue := syncqueue.New(kv, nil)
	notifier := events.New()
	coord := New(cfg, kv, indexed, cache, queue, notifier, opts...)
	return &fixture{coord: coord, kv: kv, indexed: indexed, cache: cache, notifier: notifier}
}

func TestSaveArtifactNormalizes(t *testing.T) {
	f := setup(t, types.Config{})
	ctx := context.Background()

	res := f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "a cat", Width: 512, Height: 512}, false)

	require.True(t, res.Success)
	rec := res.Record
	assert.True(t, strings.HasPrefix(rec.ID, "img_"), "generated id %q should carry the img prefix", rec.ID)
	assert.False(t, types.ParseTime(rec.CreatedAt).IsZero())
	assert.Equal(t, types.OwnerAnonymous, rec.OwnerTag)
	assert.Equal(t, 512, rec.Width)
	assert.Equal(t, 512, rec.Height)
	assert.Equal(t, types.DefaultSteps, rec.Steps)
	assert.Equal(t, types.DefaultGuidance, rec.Guidance)
	assert.Equal(t, types.DefaultModel, rec.Model)
	assert.Equal(t, types.DefaultStyle, rec.Style)

	// Exactly one cascaded history entry with the derived id.
	history := f.coord.GetAllHistoryEntries(ctx)
	require.Len(t, history, 1)
	assert.Equal(t, types.HistoryID(rec.ID), history[0].ID)
	assert.Equal(t, rec.ID, history[0].ArtifactID)
	assert.Equal(t, "a cat", history[0].Prompt)
}

func TestSaveArtifactBestEffortWhenAllAdaptersFail(t *testing.T) {
	// A one-byte quota makes every flat write fail; a closed indexed
	// store fails its tier. The volatile cache cannot fail, so assert the
	// durable outcomes and the policy-level success.
	f := setup(t, types.Config{FlatQuotaBytes: 1})
	require.NoError(t, f.indexed.Close())

	res := f.coord.SaveArtifact(context.Background(), types.Artifact{Prompt: "doomed"}, false)

	require.True(t, res.Success, "save reports success on normalization alone")
	assert.NotEmpty(t, res.Record.ID)
	assert.False(t, res.Adapters[types.AdapterFlat].OK)
	assert.ErrorIs(t, res.Adapters[types.AdapterFlat].Err, types.ErrQuotaExceeded)
	assert.False(t, res.Adapters[types.AdapterIndexed].OK)
	assert.True(t, res.Adapters[types.AdapterVolatile].OK)
}

func TestGetAllArtifactsMergesAdapters(t *testing.T) {
	f := setup(t, types.Config{})
	ctx := context.Background()

	res := f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "first"}, false)
	f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "second"}, false)

	// Plant a stale copy of the first record in the flat tier only; the
	// newer indexed/cache copies must win and no duplicate may appear.
	stale := res.Record
	stale.Prompt = "stale flat copy"
	stale.CreatedAt = types.FormatTime(types.ParseTime(stale.CreatedAt).Add(-time.Hour))
	col := flatstore.NewCollection[types.Artifact](f.kv, types.KeyImages, 0, nil)
	require.NoError(t, col.Upsert(stale))

	all := f.coord.GetAllArtifacts(ctx)
	require.Len(t, all, 2)
	for _, rec := range all {
		if rec.ID == res.Record.ID {
			assert.Equal(t, "first", rec.Prompt, "newest copy wins the merge")
		}
	}
}

func TestGetAllArtifactsSurvivesClosedIndexed(t *testing.T) {
	f := setup(t, types.Config{})
	ctx := context.Background()

	f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "kept"}, false)
	require.NoError(t, f.indexed.Close())

	all := f.coord.GetAllArtifacts(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "kept", all[0].Prompt)
}

func TestBackToBackSavesDoNotClobber(t *testing.T) {
	f := setup(t, types.Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.coord.SaveArtifact(ctx, types.Artifact{Prompt: fmt.Sprintf("p%d", i)}, false)
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.coord.GetAllArtifacts(ctx), 8)
}

func TestToggleFavorite(t *testing.T) {
	f := setup(t, types.Config{})
	ctx := context.Background()

	res := f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "a cat"}, false)
	id := res.Record.ID

	require.False(t, f.coord.IsFavorite(ctx, id))

	now := f.coord.ToggleFavorite(ctx, id, false)
	assert.True(t, now)
	assert.True(t, f.coord.IsFavorite(ctx, id))

	// The artifact's flag is visible in the merged gallery view.
	var flagged bool
	for _, rec := range f.coord.GetAllArtifacts(ctx) {
		if rec.ID == id {
			flagged = rec.Favorite
		}
	}
	assert.True(t, flagged)

	now = f.coord.ToggleFavorite(ctx, id, true)
	assert.False(t, now)
	assert.False(t, f.coord.IsFavorite(ctx, id))
}

type failingRemote struct {
	mu    sync.Mutex
	fail  bool
	calls []string
}

func (r *failingRemote) SetFavorite(_ context.Context, entityID string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, entityID)
	if r.fail {
		return errors.New("remote unavailable")
	}
	return nil
}

func TestRemoteFailureCapturedInSyncQueue(t *testing.T) {
	remote := &failingRemote{fail: true}
	f := setup(t, types.Config{}, WithRemote(remote))
	ctx := context.Background()

	res := f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "a cat"}, false)
	f.coord.ToggleFavorite(ctx, res.Record.ID, false)

	pending := f.coord.PendingSync()
	require.Len(t, pending, 1)
	assert.True(t, pending[res.Record.ID].Desired)

	// Remote recovers; replay drains the queue.
	remote.mu.Lock()
	remote.fail = false
	remote.mu.Unlock()
	assert.Equal(t, 1, f.coord.SyncPendingFavorites(ctx))
	assert.Empty(t, f.coord.PendingSync())
}

func TestFavoriteMarkerOnSave(t *testing.T) {
	f := setup(t, types.Config{})
	ctx := context.Background()

	res := f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "starred", Favorite: true}, false)
	assert.True(t, f.coord.IsFavorite(ctx, res.Record.ID))
}

func TestStatsUpdateAndRollover(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	now := base
	f := setup(t, types.Config{}, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "one", SizeBytes: 100}, true)
	f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "two", SizeBytes: 50}, true)

	stats := f.coord.Stats()
	assert.Equal(t, 2, stats.TotalImages)
	assert.Equal(t, 2, stats.MonthImages)
	assert.Equal(t, int64(150), stats.TotalBytes)
	assert.Equal(t, "2026-08", stats.MonthKey)

	// Crossing into a new month rolls the monthly count, keeps the total.
	// AddDate(0, 1, 0) from Aug 31 would normalize to Oct 1, so pin Sep 1.
	now = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "three"}, true)
	stats = f.coord.Stats()
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 1, stats.MonthImages)
	assert.Equal(t, "2026-09", stats.MonthKey)
}

func TestSaveWithoutStatsLeavesCountersAlone(t *testing.T) {
	f := setup(t, types.Config{})
	f.coord.SaveArtifact(context.Background(), types.Artifact{Prompt: "untracked"}, false)
	assert.Zero(t, f.coord.Stats().TotalImages)
}

func TestDeleteArtifact(t *testing.T) {
	f := setup(t, types.Config{})
	ctx := context.Background()

	res := f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "doomed", Favorite: true}, false)
	id := res.Record.ID
	require.Len(t, f.coord.GetAllArtifacts(ctx), 1)

	adapters := f.coord.DeleteArtifact(ctx, id)
	assert.True(t, adapters[types.AdapterFlat].OK)
	assert.Empty(t, f.coord.GetAllArtifacts(ctx))
	assert.False(t, f.coord.IsFavorite(ctx, id))
}

func TestGetArtifactsByOwner(t *testing.T) {
	f := setup(t, types.Config{OwnerTag: "a@b.c"})
	ctx := context.Background()

	f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "mine"}, false)
	f.coord.SaveArtifact(ctx, types.Artifact{Prompt: "theirs", OwnerTag: "x@y.z"}, false)

	mine := f.coord.GetArtifactsByOwner(ctx, "a@b.c")
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Prompt)
}

func TestSaveNotifiesSubscribers(t *testing.T) {
	f := setup(t, types.Config{})

	var mu sync.Mutex
	topics := map[string]int{}
	f.notifier.Subscribe(func(ev types.Event) {
		mu.Lock()
		topics[ev.Topic] += ev.Added
		mu.Unlock()
	})

	f.coord.SaveArtifact(context.Background(), types.Artifact{Prompt: "ping"}, false)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, topics[types.TopicGallery])
	assert.Equal(t, 1, topics[types.TopicHistory])
}
