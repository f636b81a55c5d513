// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package store

// Metadata is the opaque mapping of display fields (title, artist, image
// reference) attached to an indexed artwork. The retrieval logic carries it
// through untouched.
type Metadata map[string]any

// Candidate is one artwork proposed by a nearest-neighbor search.
// Distance is non-negative; lower means more similar.
type Candidate struct {
	ID       string
	Distance float64
}

// Record is one (id, vector, metadata) tuple written during the offline
// index build. Immutable from the retrieval engine's point of view.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// CollectionInfo describes one named, independently searchable collection.
type CollectionInfo struct {
	Name       string
	Dimensions int
	Model      string
	Count      int
}
