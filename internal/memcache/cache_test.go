package memcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamlayer/artvault/pkg/types"
)

func TestUpsertAndAll(t *testing.T) {
	c := New()
	c.Upsert(types.CollectionImages, "img_1", "t1", []byte(`{"id":"img_1"}`))
	c.Upsert(types.CollectionImages, "img_2", "t2", []byte(`{"id":"img_2"}`))
	c.Upsert(types.CollectionImages, "img_1", "t3", []byte(`{"id":"img_1","v":2}`))

	assert.Equal(t, 2, c.Len(types.CollectionImages))
	assert.Len(t, c.All(types.CollectionImages), 2)
	assert.Zero(t, c.Len(types.CollectionHistory))
}

func TestUpsertCopiesPayload(t *testing.T) {
	c := New()
	raw := []byte(`{"id":"img_1"}`)
	c.Upsert(types.CollectionImages, "img_1", "t1", raw)
	raw[0] = 'X'

	all := c.All(types.CollectionImages)
	require.Len(t, all, 1)
	assert.Equal(t, byte('{'), all[0][0], "cache must not alias caller memory")
}

func TestRemoveAndReset(t *testing.T) {
	c := New()
	c.Upsert(types.CollectionImages, "img_1", "t1", []byte(`{}`))
	c.Upsert(types.CollectionHistory, "hist_1", "t1", []byte(`{}`))

	c.Remove(types.CollectionImages, "img_1")
	c.Remove(types.CollectionImages, "img_absent")
	assert.Zero(t, c.Len(types.CollectionImages))
	assert.Equal(t, 1, c.Len(types.CollectionHistory))

	c.Reset()
	assert.Zero(t, c.Len(types.CollectionHistory))
}
