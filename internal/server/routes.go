// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package server

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/artlens-dev/artlens/internal/retrieval"
	"github.com/artlens-dev/artlens/internal/store"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/health"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search-artworks",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Search artworks by text, image, or both",
		Tags:        []string{"search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-artwork",
		Method:      http.MethodGet,
		Path:        "/api/v1/artworks/{id}",
		Summary:     "Get artwork metadata",
		Tags:        []string{"artworks"},
	}, s.handleGetArtwork)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Service status and embedder health",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-collections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List indexed collections",
		Tags:        []string{"system"},
	}, s.handleListCollections)
}

// --- Request/Response types for huma ---

type searchInput struct {
	Body struct {
		Mode   string   `json:"mode" enum:"text,image,hybrid" doc:"Query mode"`
		Query  string   `json:"query,omitempty" doc:"Text query (text and hybrid modes)"`
		Image  string   `json:"image,omitempty" doc:"Base64-encoded query image (image and hybrid modes)"`
		Weight *float64 `json:"weight,omitempty" minimum:"0" maximum:"1" doc:"Text branch weight for hybrid mode"`
		Limit  int      `json:"limit,omitempty" minimum:"1" maximum:"100" doc:"Maximum results to return"`
	}
}

type searchResult struct {
	ID       string         `json:"id" doc:"Artwork identifier"`
	Score    float64        `json:"score" doc:"Fused similarity score, higher is better"`
	Metadata store.Metadata `json:"metadata" doc:"Display metadata"`
}

type searchWarning struct {
	Modality string `json:"modality" doc:"Modality branch that failed"`
	Message  string `json:"message" doc:"Failure description"`
}

type searchOutput struct {
	Body struct {
		Results []searchResult `json:"results"`
		Warning *searchWarning `json:"warning,omitempty" doc:"Set when hybrid results degraded to one modality"`
	}
}

type getArtworkInput struct {
	ID string `path:"id" doc:"Artwork identifier"`
}
type getArtworkOutput struct {
	Body struct {
		ID       string         `json:"id"`
		Metadata store.Metadata `json:"metadata"`
	}
}

type collectionInfo struct {
	Name       string `json:"name" doc:"Collection name"`
	Model      string `json:"model" doc:"Embedding model that built the collection"`
	Dimensions int    `json:"dimensions" doc:"Vector dimensionality"`
	Count      int    `json:"count" doc:"Indexed record count"`
}

type listCollectionsOutput struct {
	Body struct {
		Collections []collectionInfo `json:"collections"`
	}
}

type statusOutput struct {
	Body struct {
		Status    string                    `json:"status" example:"ok" doc:"Service status"`
		Embedders map[string]health.Metrics `json:"embedders,omitempty" doc:"Per-modality embedder health"`
	}
}

// --- Handlers ---

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	q := retrieval.Query{
		Mode:   retrieval.Mode(input.Body.Mode),
		Text:   input.Body.Query,
		Weight: input.Body.Weight,
	}

	if input.Body.Image != "" {
		data, err := base64.StdEncoding.DecodeString(input.Body.Image)
		if err != nil {
			return nil, huma.Error400BadRequest("image is not valid base64", err)
		}
		q.Image = data
	}

	limit := input.Body.Limit
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}

	result, err := s.services.Search().Retrieve(ctx, q, limit)
	if err != nil {
		return nil, httpError(err)
	}

	out := &searchOutput{}
	out.Body.Results = make([]searchResult, 0, len(result.Results))
	for _, r := range result.Results {
		out.Body.Results = append(out.Body.Results, searchResult{
			ID:       r.ID,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}
	if result.Warning != nil {
		out.Body.Warning = &searchWarning{
			Modality: string(result.Warning.Modality),
			Message:  result.Warning.String(),
		}
	}
	return out, nil
}

func (s *Server) handleGetArtwork(ctx context.Context, input *getArtworkInput) (*getArtworkOutput, error) {
	meta, err := s.services.Catalog().Artwork(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	out := &getArtworkOutput{}
	out.Body.ID = input.ID
	out.Body.Metadata = meta
	return out, nil
}

func (s *Server) handleListCollections(ctx context.Context, _ *struct{}) (*listCollectionsOutput, error) {
	infos, err := s.services.Catalog().Collections(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	out := &listCollectionsOutput{}
	out.Body.Collections = make([]collectionInfo, 0, len(infos))
	for _, info := range infos {
		out.Body.Collections = append(out.Body.Collections, collectionInfo{
			Name:       info.Name,
			Model:      info.Model,
			Dimensions: info.Dimensions,
			Count:      info.Count,
		})
	}
	return out, nil
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{}
	out.Body.Status = "ok"
	if hs := s.services.Health(); hs != nil {
		metrics := hs.EmbedderHealth()
		out.Body.Embedders = make(map[string]health.Metrics, len(metrics))
		for m, hm := range metrics {
			out.Body.Embedders[string(m)] = hm
		}
	}
	return out, nil
}

// httpError converts a domain error into a huma status error using the
// error code taxonomy.
func httpError(err error) error {
	return huma.NewError(artlenserr.HTTPStatus(err), err.Error())
}
