package viewkit

import (
	"context"
	"testing"

	"github.com/autom8ter/viewkit/errors"
	_ "github.com/autom8ter/viewkit/kv/badger"
	"github.com/stretchr/testify/assert"
)

func TestDocumentStore(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.LogLevel = "error"
	db, err := Open(ctx, cfg)
	assert.NoError(t, err)
	defer db.Close(ctx)

	doc, err := NewDocumentFrom(map[string]any{"_id": "a", "k": 1})
	assert.NoError(t, err)
	first, err := db.Put(ctx, doc)
	assert.NoError(t, err)
	next := first.Clone()
	assert.NoError(t, next.Set("k", 2))
	second, err := db.Put(ctx, next)
	assert.NoError(t, err)

	t.Run("old revisions are cached by sequence", func(t *testing.T) {
		got, err := db.store.Fetch(ctx, "a", first.Sequence)
		assert.NoError(t, err)
		assert.Equal(t, first.Rev, got.Rev)
		db.store.cache.Wait()
		_, ok := db.store.cache.Get(first.Sequence)
		assert.True(t, ok)
	})
	t.Run("compaction evicts deleted revisions", func(t *testing.T) {
		removed, err := db.Compact(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, removed)
		db.store.cache.Wait()
		_, ok := db.store.cache.Get(first.Sequence)
		assert.False(t, ok)
		_, err = db.store.Fetch(ctx, "a", first.Sequence)
		assert.True(t, errors.Is(err, errors.NotFound))
		got, err := db.store.Fetch(ctx, "a", 0)
		assert.NoError(t, err)
		assert.Equal(t, second.Rev, got.Rev)
	})
	t.Run("cancelled fetch", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := db.store.Fetch(cancelled, "a", 0)
		assert.True(t, errors.Is(err, errors.Cancelled))
	})
}
