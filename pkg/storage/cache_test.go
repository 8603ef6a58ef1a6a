package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistoryStore counts reads so tests can tell cache hits from
// fall-throughs.
type fakeHistoryStore struct {
	entries  map[string][]*HistoryEntry
	listHits int
	getHits  int
}

func (f *fakeHistoryStore) Insert(ctx context.Context, entry *HistoryEntry) error {
	entry.Version = len(f.entries[entry.SourceID]) + 1
	f.entries[entry.SourceID] = append([]*HistoryEntry{entry}, f.entries[entry.SourceID]...)
	return nil
}

func (f *fakeHistoryStore) List(ctx context.Context, sourceID string) ([]*HistoryEntry, error) {
	f.listHits++
	return f.entries[sourceID], nil
}

func (f *fakeHistoryStore) GetVersion(ctx context.Context, sourceID string, version int) (*HistoryEntry, error) {
	f.getHits++
	for _, e := range f.entries[sourceID] {
		if e.Version == version {
			return e, nil
		}
	}
	return nil, ErrVersionNotFound
}

func newTestCache(t *testing.T) (*RedisHistoryCache, *fakeHistoryStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	store := &fakeHistoryStore{entries: make(map[string][]*HistoryEntry)}
	cache, err := NewRedisHistoryCache(store, mr.Addr(), "", 0, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, store
}

func TestRedisHistoryCache_ListReadThrough(t *testing.T) {
	cache, store := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &HistoryEntry{SourceID: "src", PlanID: "p1"}))

	first, err := cache.List(ctx, "src")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, store.listHits)

	// Second read is served from Redis.
	second, err := cache.List(ctx, "src")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, store.listHits)
	assert.Equal(t, "p1", second[0].PlanID)
}

func TestRedisHistoryCache_InsertInvalidatesList(t *testing.T) {
	cache, store := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Insert(ctx, &HistoryEntry{SourceID: "src", PlanID: "p1"}))
	_, err := cache.List(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 1, store.listHits)

	require.NoError(t, cache.Insert(ctx, &HistoryEntry{SourceID: "src", PlanID: "p2"}))

	entries, err := cache.List(ctx, "src")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, store.listHits)
	assert.Equal(t, "p2", entries[0].PlanID)
}

func TestRedisHistoryCache_GetVersion(t *testing.T) {
	cache, store := newTestCache(t)
	ctx := context.Background()

	var hits, misses int
	cache.SetObservers(func() { hits++ }, func() { misses++ })

	require.NoError(t, store.Insert(ctx, &HistoryEntry{SourceID: "src", PlanID: "p1"}))

	entry, err := cache.GetVersion(ctx, "src", 1)
	require.NoError(t, err)
	assert.Equal(t, "p1", entry.PlanID)
	assert.Equal(t, 0, hits)
	assert.Equal(t, 1, misses)

	again, err := cache.GetVersion(ctx, "src", 1)
	require.NoError(t, err)
	assert.Equal(t, "p1", again.PlanID)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, store.getHits)
}
