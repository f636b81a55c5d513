// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlens-dev/artlens/internal/store"
	"github.com/artlens-dev/artlens/internal/store/sqlite"
)

func newTestStore(t *testing.T, name string) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(testDBPath(t, name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "add-search")

	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "fake/model"))

	records := []store.Record{
		{ID: "27992", Vector: []float32{1, 0, 0}, Metadata: store.Metadata{"title": "A Sunday on La Grande Jatte"}},
		{ID: "28560", Vector: []float32{0, 1, 0}, Metadata: store.Metadata{"title": "The Bedroom"}},
		{ID: "20684", Vector: []float32{0.9, 0.1, 0}, Metadata: store.Metadata{"title": "Paris Street; Rainy Day"}},
	}
	for _, rec := range records {
		require.NoError(t, st.AddRecord(ctx, "text", rec))
	}

	candidates, err := st.Search(ctx, "text", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "27992", candidates[0].ID) // exact match first
	assert.Equal(t, "20684", candidates[1].ID)
	assert.LessOrEqual(t, candidates[0].Distance, candidates[1].Distance)
}

func TestStore_AddRecordUpsert(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "upsert")

	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "fake/model"))

	require.NoError(t, st.AddRecord(ctx, "text", store.Record{
		ID: "27992", Vector: []float32{1, 0, 0}, Metadata: store.Metadata{"version": float64(1)},
	}))
	require.NoError(t, st.AddRecord(ctx, "text", store.Record{
		ID: "27992", Vector: []float32{0, 1, 0}, Metadata: store.Metadata{"version": float64(2)},
	}))

	candidates, err := st.Search(ctx, "text", []float32{0, 1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "27992", candidates[0].ID)

	meta, err := st.GetMetadata(ctx, "27992")
	require.NoError(t, err)
	assert.Equal(t, float64(2), meta["version"])
}

func TestStore_SearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "empty")

	require.NoError(t, st.EnsureCollection(ctx, "image", 3, "fake/model"))

	candidates, err := st.Search(ctx, "image", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestStore_SearchUnknownCollection(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "unknown")

	_, err := st.Search(ctx, "text", []float32{1, 0, 0}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestStore_SearchInvalidArguments(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "invalid-args")

	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "fake/model"))

	_, err := st.Search(ctx, "text", []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = st.Search(ctx, "text", []float32{1, 0}, 5)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestStore_AddRecordDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "dims")

	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "fake/model"))

	err := st.AddRecord(ctx, "text", store.Record{ID: "x", Vector: []float32{1, 0}})
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestStore_EnsureCollection(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "ensure")

	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "fake/model"))

	// Re-ensuring with identical dimensions is a no-op.
	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "fake/model"))

	// Changing dimensions on an existing collection is rejected.
	err := st.EnsureCollection(ctx, "text", 4, "fake/model")
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)

	// Names that could smuggle SQL into the DDL are rejected.
	err = st.EnsureCollection(ctx, "text; DROP TABLE artworks", 3, "fake/model")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	err = st.EnsureCollection(ctx, "Text", 3, "fake/model")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestStore_GetMetadataNotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "meta-missing")

	_, err := st.GetMetadata(ctx, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_MetadataSharedAcrossCollections(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "shared-meta")

	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "text-model"))
	require.NoError(t, st.EnsureCollection(ctx, "image", 2, "image-model"))

	require.NoError(t, st.AddRecord(ctx, "text", store.Record{
		ID: "27992", Vector: []float32{1, 0, 0}, Metadata: store.Metadata{"title": "Water Lilies"},
	}))
	require.NoError(t, st.AddRecord(ctx, "image", store.Record{
		ID: "27992", Vector: []float32{0, 1}, Metadata: store.Metadata{"title": "Water Lilies"},
	}))

	meta, err := st.GetMetadata(ctx, "27992")
	require.NoError(t, err)
	assert.Equal(t, "Water Lilies", meta["title"])
}

func TestStore_Collections(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, "collections")

	infos, err := st.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	require.NoError(t, st.EnsureCollection(ctx, "text", 3, "openai/text-embedding-3-small"))
	require.NoError(t, st.EnsureCollection(ctx, "image", 2, "google/multimodalembedding@001"))
	require.NoError(t, st.AddRecord(ctx, "text", store.Record{ID: "a", Vector: []float32{1, 0, 0}}))
	require.NoError(t, st.AddRecord(ctx, "text", store.Record{ID: "b", Vector: []float32{0, 1, 0}}))

	infos, err = st.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	// Ordered by name.
	assert.Equal(t, "image", infos[0].Name)
	assert.Equal(t, 2, infos[0].Dimensions)
	assert.Equal(t, "google/multimodalembedding@001", infos[0].Model)
	assert.Equal(t, 0, infos[0].Count)

	assert.Equal(t, "text", infos[1].Name)
	assert.Equal(t, 2, infos[1].Count)
}

func TestOpenRegisteredBackend(t *testing.T) {
	st, err := store.Open(&store.StorageConfig{Backend: "sqlite", Path: testDBPath(t, "factory")})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.NoError(t, st.Close())

	_, err = store.Open(&store.StorageConfig{Backend: "bolt", Path: testDBPath(t, "factory2")})
	assert.Error(t, err)
}
