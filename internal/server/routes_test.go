// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package server_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlens-dev/artlens/internal/retrieval"
	"github.com/artlens-dev/artlens/internal/server"
	"github.com/artlens-dev/artlens/internal/store"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/health"
	"github.com/artlens-dev/artlens/pkg/types"
)

// Mock service implementations for testing.
type mockSearchService struct {
	gotLimit int
	gotQuery retrieval.Query
	result   *retrieval.Result
	err      error
}

func (m *mockSearchService) Retrieve(_ context.Context, q retrieval.Query, limit int) (*retrieval.Result, error) {
	m.gotQuery = q
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &retrieval.Result{
		Results: []retrieval.RankedResult{
			{ID: "27992", Score: 0.91, Metadata: store.Metadata{"title": "A Sunday on La Grande Jatte"}},
			{ID: "28560", Score: 0.74, Metadata: store.Metadata{"title": "The Bedroom"}},
		},
	}, nil
}

type mockCatalogService struct{}

func (m *mockCatalogService) Artwork(_ context.Context, id string) (store.Metadata, error) {
	if id == "27992" {
		return store.Metadata{"title": "A Sunday on La Grande Jatte", "artist_title": "Georges Seurat"}, nil
	}
	return nil, artlenserr.Errorf(artlenserr.CodeServerEntityNotFound, "artwork %q not indexed", id)
}

func (m *mockCatalogService) Collections(_ context.Context) ([]store.CollectionInfo, error) {
	return []store.CollectionInfo{
		{Name: "image", Model: "google/multimodalembedding", Dimensions: 1408, Count: 310},
		{Name: "text", Model: "openai/text-embedding-3-small", Dimensions: 1536, Count: 500},
	}, nil
}

type mockHealthService struct{}

func (m *mockHealthService) EmbedderHealth() map[types.Modality]health.Metrics {
	return map[types.Modality]health.Metrics{
		types.ModalityText: {Available: true},
		types.ModalityImage: {
			FailureCount: 2,
			Available:    false,
		},
	}
}

func newTestServer(t *testing.T, search server.SearchService) *server.Server {
	t.Helper()
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", DefaultLimit: 6})
	require.NoError(t, err)
	srv.RegisterServices(server.NewServicesForTest(search, &mockCatalogService{}))
	return srv
}

func postSearch(t *testing.T, srv *server.Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestRoutes_Search(t *testing.T) {
	search := &mockSearchService{}
	srv := newTestServer(t, search)

	w := postSearch(t, srv, `{"mode": "text", "query": "pointillism", "limit": 2}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, retrieval.ModeText, search.gotQuery.Mode)
	assert.Equal(t, "pointillism", search.gotQuery.Text)
	assert.Equal(t, 2, search.gotLimit)

	var resp struct {
		Results []struct {
			ID       string            `json:"id"`
			Score    float64           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "27992", resp.Results[0].ID)
	assert.Equal(t, "A Sunday on La Grande Jatte", resp.Results[0].Metadata["title"])
}

func TestRoutes_SearchDefaultsLimit(t *testing.T) {
	search := &mockSearchService{}
	srv := newTestServer(t, search)

	w := postSearch(t, srv, `{"mode": "text", "query": "haystacks"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 6, search.gotLimit)
}

func TestRoutes_SearchDecodesImage(t *testing.T) {
	search := &mockSearchService{}
	srv := newTestServer(t, search)

	payload := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47})
	w := postSearch(t, srv, `{"mode": "image", "image": "`+payload+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, search.gotQuery.Image)
}

func TestRoutes_SearchRejectsBadBase64(t *testing.T) {
	srv := newTestServer(t, &mockSearchService{})

	w := postSearch(t, srv, `{"mode": "image", "image": "%%%not base64%%%"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_SearchReportsWarning(t *testing.T) {
	search := &mockSearchService{
		result: &retrieval.Result{
			Results: []retrieval.RankedResult{{ID: "27992", Score: 0.5}},
			Warning: &retrieval.Warning{
				Modality: types.ModalityImage,
				Cause:    artlenserr.New(artlenserr.CodeEmbedUpstreamFailure, "model offline"),
			},
		},
	}
	srv := newTestServer(t, search)

	w := postSearch(t, srv, `{"mode": "hybrid", "query": "boats", "image": "`+
		base64.StdEncoding.EncodeToString([]byte{1, 2, 3})+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Warning *struct {
			Modality string `json:"modality"`
			Message  string `json:"message"`
		} `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Warning)
	assert.Equal(t, "image", resp.Warning.Modality)
	assert.Contains(t, resp.Warning.Message, "model offline")
}

func TestRoutes_SearchErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid limit", artlenserr.New(artlenserr.CodeRetrievalLimitInvalid, "limit must be >= 1"), http.StatusBadRequest},
		{"missing collection", artlenserr.New(artlenserr.CodeStoreCollectionNotFound, "collection never built"), http.StatusNotFound},
		{"timeout", artlenserr.New(artlenserr.CodeRetrievalTimeout, "deadline exceeded"), http.StatusGatewayTimeout},
		{"inconsistent index", artlenserr.New(artlenserr.CodeStoreIndexInconsistent, "metadata missing"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &mockSearchService{err: tt.err})

			w := postSearch(t, srv, `{"mode": "text", "query": "anything"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRoutes_GetArtwork(t *testing.T) {
	srv := newTestServer(t, &mockSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artworks/27992", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Georges Seurat")
}

func TestRoutes_GetArtwork_NotFound(t *testing.T) {
	srv := newTestServer(t, &mockSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artworks/999999", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_ListCollections(t *testing.T) {
	srv := newTestServer(t, &mockSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Collections []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Collections, 2)
	assert.Equal(t, "image", resp.Collections[0].Name)
	assert.Equal(t, 500, resp.Collections[1].Count)
}

func TestRoutes_StatusWithoutHealthService(t *testing.T) {
	srv := newTestServer(t, &mockSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
	assert.NotContains(t, w.Body.String(), "embedders")
}

func TestRoutes_StatusReportsEmbedderHealth(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	srv.RegisterServices(server.NewServicesForTest(
		&mockSearchService{}, &mockCatalogService{}, &mockHealthService{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string                    `json:"status"`
		Embedders map[string]health.Metrics `json:"embedders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Embedders, 2)
	assert.True(t, resp.Embedders["text"].Available)
	assert.Equal(t, int64(2), resp.Embedders["image"].FailureCount)
}

func TestRoutes_Health(t *testing.T) {
	srv := newTestServer(t, &mockSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_RequestIDHeader(t *testing.T) {
	srv := newTestServer(t, &mockSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-abc-123", w.Header().Get("X-Request-ID"))
}
