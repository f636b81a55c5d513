// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package server

import (
	"context"
	"errors"

	"github.com/artlens-dev/artlens/internal/retrieval"
	"github.com/artlens-dev/artlens/internal/store"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/health"
	"github.com/artlens-dev/artlens/pkg/types"
)

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
// Use NewServices constructor to ensure all required services are provided.
type Services struct {
	search  SearchService
	catalog CatalogService
	health  HealthService // optional; nil = status endpoint reports no embedder health
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
// The optional health variadic parameter sets the embedder health service.
func NewServices(search SearchService, catalog CatalogService, healthSvc ...HealthService) (*Services, error) {
	if search == nil {
		return nil, artlenserr.New(artlenserr.CodeServerStartFailure, "search service is required")
	}
	if catalog == nil {
		return nil, artlenserr.New(artlenserr.CodeServerStartFailure, "catalog service is required")
	}
	if len(healthSvc) > 1 {
		return nil, artlenserr.New(artlenserr.CodeServerStartFailure, "at most one health service may be supplied")
	}
	s := &Services{search: search, catalog: catalog}
	if len(healthSvc) > 0 && healthSvc[0] != nil {
		s.health = healthSvc[0]
	}
	return s, nil
}

// Search returns the search service.
func (s *Services) Search() SearchService {
	return s.search
}

// Catalog returns the catalog service.
func (s *Services) Catalog() CatalogService {
	return s.catalog
}

// Health returns the optional embedder health service.
// Returns nil when embedder health reporting is not configured.
func (s *Services) Health() HealthService {
	return s.health
}

// SearchService runs ranked multi-modal queries for REST handlers.
type SearchService interface {
	Retrieve(ctx context.Context, q retrieval.Query, limit int) (*retrieval.Result, error)
}

// HealthService reports per-modality embedder health for the status endpoint.
type HealthService interface {
	EmbedderHealth() map[types.Modality]health.Metrics
}

// CatalogService provides read access to the indexed catalog.
type CatalogService interface {
	Artwork(ctx context.Context, id string) (store.Metadata, error)
	Collections(ctx context.Context) ([]store.CollectionInfo, error)
}

// StoreCatalog adapts a VectorStore to the CatalogService interface.
type StoreCatalog struct {
	store store.VectorStore
}

// NewStoreCatalog creates a CatalogService over the given store.
func NewStoreCatalog(vs store.VectorStore) *StoreCatalog {
	return &StoreCatalog{store: vs}
}

// Artwork returns the display metadata for one indexed artwork.
func (c *StoreCatalog) Artwork(ctx context.Context, id string) (store.Metadata, error) {
	meta, err := c.store.GetMetadata(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, artlenserr.Wrap(err, artlenserr.CodeServerEntityNotFound,
				"artwork not indexed", artlenserr.FieldArtworkID(id))
		}
		return nil, err
	}
	return meta, nil
}

// Collections lists the indexed collections with their record counts.
func (c *StoreCatalog) Collections(ctx context.Context) ([]store.CollectionInfo, error) {
	return c.store.Collections(ctx)
}

// NewServicesForTest creates a Services instance for testing.
// It delegates to NewServices to enforce the same validation invariants as
// production code. Panics if any required service is nil.
func NewServicesForTest(search SearchService, catalog CatalogService, healthSvc ...HealthService) *Services {
	svc, err := NewServices(search, catalog, healthSvc...)
	if err != nil {
		panic(err)
	}
	return svc
}
