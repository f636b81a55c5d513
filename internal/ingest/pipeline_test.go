// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package ingest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlens-dev/artlens/internal/embed"
	"github.com/artlens-dev/artlens/internal/ingest"
	"github.com/artlens-dev/artlens/internal/store"
	"github.com/artlens-dev/artlens/pkg/types"
)

type pipelineEmbedder struct {
	modality types.Modality
	failFor  string // fail text inputs containing this substring
}

func (e *pipelineEmbedder) Provider() string         { return "fake" }
func (e *pipelineEmbedder) Model() string            { return "fake-" + string(e.modality) }
func (e *pipelineEmbedder) Modality() types.Modality { return e.modality }
func (e *pipelineEmbedder) Dimensions() int          { return 3 }

func (e *pipelineEmbedder) Embed(ctx context.Context, in embed.Input) ([]float32, error) {
	if e.failFor != "" && strings.Contains(in.Text, e.failFor) {
		return nil, assert.AnError
	}
	return []float32{1, 0, 0}, nil
}

type memoryStore struct {
	mu          sync.Mutex
	collections map[string]string // name -> model
	records     map[string][]store.Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		collections: map[string]string{},
		records:     map[string][]store.Record{},
	}
}

func (s *memoryStore) EnsureCollection(ctx context.Context, name string, dims int, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = model
	return nil
}

func (s *memoryStore) AddRecord(ctx context.Context, collection string, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[collection] = append(s.records[collection], rec)
	return nil
}

func (s *memoryStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]store.Candidate, error) {
	return nil, nil
}

func (s *memoryStore) GetMetadata(ctx context.Context, id string) (store.Metadata, error) {
	return nil, store.ErrNotFound
}

func (s *memoryStore) Collections(ctx context.Context) ([]store.CollectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []store.CollectionInfo
	for name, model := range s.collections {
		infos = append(infos, store.CollectionInfo{
			Name: name, Model: model, Dimensions: 3, Count: len(s.records[name]),
		})
	}
	return infos, nil
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) recordIDs(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, rec := range s.records[collection] {
		ids = append(ids, rec.ID)
	}
	return ids
}

// catalogServer serves pages of pageSize records out of artworks.
func catalogServer(t *testing.T, artworks []ingest.Artwork) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		require.GreaterOrEqual(t, page, 1)
		require.GreaterOrEqual(t, pageSize, 1)

		totalPages := (len(artworks) + pageSize - 1) / pageSize
		start := (page - 1) * pageSize
		end := min(start+pageSize, len(artworks))
		var data []ingest.Artwork
		if start < len(artworks) {
			data = artworks[start:end]
		}

		resp := map[string]any{
			"pagination": ingest.Pagination{
				Total: len(artworks), Limit: pageSize,
				TotalPages: totalPages, CurrentPage: page,
			},
			"data": data,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	payload := encodePNG(t)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing-image") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write(payload)
	}))
}

func newTestRegistry(t *testing.T, textFailFor string) *embed.Registry {
	t.Helper()
	reg := embed.NewRegistry()
	require.NoError(t, reg.Register(&pipelineEmbedder{modality: types.ModalityText, failFor: textFailFor}))
	require.NoError(t, reg.Register(&pipelineEmbedder{modality: types.ModalityImage}))
	return reg
}

func TestPipelineIndexesCatalog(t *testing.T) {
	artworks := []ingest.Artwork{
		{ID: 1, Title: "First", ImageID: "img-1", IsPublicDomain: true},
		{ID: 2, Title: "Second", ImageID: "img-2", IsPublicDomain: false},
		{ID: 3, Title: "Third"}, // no image at all
		{ID: 4, Title: "Fourth", ImageID: "missing-image", IsPublicDomain: true},
	}
	catalog := catalogServer(t, artworks)
	defer catalog.Close()
	iiif := imageServer(t)
	defer iiif.Close()

	st := newMemoryStore()
	p := ingest.NewPipeline(
		ingest.NewCatalogClient(catalog.URL),
		ingest.NewImageClient(iiif.URL),
		newTestRegistry(t, ""),
		st,
		ingest.Options{PageSize: 2},
	)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 4, stats.TextIndexed)
	assert.Equal(t, 1, stats.ImageIndexed)
	// Non-public-domain, missing image id, and unserved image all skip.
	assert.Equal(t, 3, stats.ImageSkipped)
	assert.Equal(t, 0, stats.Failed)

	assert.ElementsMatch(t, []string{"1", "2", "3", "4"}, st.recordIDs("text"))
	assert.ElementsMatch(t, []string{"1"}, st.recordIDs("image"))
}

func TestPipelineToleratesRecordFailures(t *testing.T) {
	artworks := []ingest.Artwork{
		{ID: 1, Title: "Fine"},
		{ID: 2, Title: "Poisoned"},
		{ID: 3, Title: "Also fine"},
	}
	catalog := catalogServer(t, artworks)
	defer catalog.Close()
	iiif := imageServer(t)
	defer iiif.Close()

	st := newMemoryStore()
	p := ingest.NewPipeline(
		ingest.NewCatalogClient(catalog.URL),
		ingest.NewImageClient(iiif.URL),
		newTestRegistry(t, "Poisoned"),
		st,
		ingest.Options{PageSize: 10},
	)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.TextIndexed)
	assert.Equal(t, 1, stats.Failed)
	assert.ElementsMatch(t, []string{"1", "3"}, st.recordIDs("text"))
}

func TestPipelineHonorsMaxArtworks(t *testing.T) {
	var artworks []ingest.Artwork
	for i := 1; i <= 10; i++ {
		artworks = append(artworks, ingest.Artwork{ID: i, Title: "Artwork"})
	}
	catalog := catalogServer(t, artworks)
	defer catalog.Close()
	iiif := imageServer(t)
	defer iiif.Close()

	st := newMemoryStore()
	p := ingest.NewPipeline(
		ingest.NewCatalogClient(catalog.URL),
		ingest.NewImageClient(iiif.URL),
		newTestRegistry(t, ""),
		st,
		ingest.Options{PageSize: 4, MaxArtworks: 6},
	)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Processed)
	assert.Len(t, st.recordIDs("text"), 6)
}

func TestPipelineWritesManifest(t *testing.T) {
	artworks := []ingest.Artwork{{ID: 1, Title: "Only"}}
	catalog := catalogServer(t, artworks)
	defer catalog.Close()
	iiif := imageServer(t)
	defer iiif.Close()

	manifestPath := t.TempDir() + "/manifest.yaml"
	p := ingest.NewPipeline(
		ingest.NewCatalogClient(catalog.URL),
		ingest.NewImageClient(iiif.URL),
		newTestRegistry(t, ""),
		newMemoryStore(),
		ingest.Options{ManifestPath: manifestPath},
	)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	m, err := ingest.ReadManifest(manifestPath)
	require.NoError(t, err)
	assert.False(t, m.BuiltAt.IsZero())
	require.Len(t, m.Collections, 2)
}

func TestPipelineStopsOnCatalogError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	iiif := imageServer(t)
	defer iiif.Close()

	p := ingest.NewPipeline(
		ingest.NewCatalogClient(srv.URL),
		ingest.NewImageClient(iiif.URL),
		newTestRegistry(t, ""),
		newMemoryStore(),
		ingest.Options{},
	)

	_, err := p.Run(context.Background())
	require.Error(t, err)
}
