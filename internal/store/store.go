// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package store

import "context"

// VectorStore answers nearest-neighbor queries against named per-modality
// collections and resolves artwork display metadata. It is the read-only
// surface the retrieval engine consumes: search never mutates the index,
// and concurrent searches from independent requests must not interfere.
type VectorStore interface {
	// Search returns at most k candidates ordered by ascending distance
	// (nearest first). k must be >= 1. An existing but empty collection
	// yields an empty slice, not an error; a collection that was never
	// built yields ErrCollectionNotFound.
	Search(ctx context.Context, collection string, vector []float32, k int) ([]Candidate, error)

	// GetMetadata returns the display metadata for one artwork, or
	// ErrNotFound if the id was never indexed.
	GetMetadata(ctx context.Context, id string) (Metadata, error)

	// Collections lists the built collections with their dimensions and
	// record counts.
	Collections(ctx context.Context) ([]CollectionInfo, error)

	Close() error
}

// IndexWriter is the offline batch-build surface. Only the ingest pipeline
// holds one; the retrieval engine never writes.
type IndexWriter interface {
	// EnsureCollection creates the named collection with a fixed
	// dimensionality, recording which model produced its vectors.
	// Dimensions are fixed for the lifetime of the collection.
	EnsureCollection(ctx context.Context, name string, dimensions int, model string) error

	// AddRecord writes one (id, vector, metadata) tuple. The vector length
	// must match the collection's dimensions (ErrDimensionMismatch).
	AddRecord(ctx context.Context, collection string, rec Record) error

	Close() error
}

// Store is the full backend surface a storage implementation provides.
type Store interface {
	VectorStore
	IndexWriter
}
