// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package retrieval

import (
	"context"
	"errors"

	"github.com/artlens-dev/artlens/internal/embed"
	"github.com/artlens-dev/artlens/internal/store"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// ModalityQuery is the per-modality retrieval step: embed the input with
// the matching embedder, then search the matching collection. Embedder
// errors propagate unchanged and store sentinels gain their taxonomy code;
// the engine decides whether a partial result is acceptable.
type ModalityQuery struct {
	embedders *embed.Registry
	store     store.VectorStore
}

// NewModalityQuery creates a ModalityQuery over the given capabilities.
func NewModalityQuery(embedders *embed.Registry, vs store.VectorStore) *ModalityQuery {
	return &ModalityQuery{embedders: embedders, store: vs}
}

// Run embeds in with the modality's embedder and returns the k nearest
// candidates from the modality's collection, ordered by ascending distance.
// k should carry headroom over the final result count to leave room for
// fusion-time deduplication.
func (q *ModalityQuery) Run(ctx context.Context, m types.Modality, in embed.Input, k int) ([]store.Candidate, error) {
	embedder, err := q.embedders.ForModality(m)
	if err != nil {
		return nil, err
	}

	vector, err := embedder.Embed(ctx, in)
	if err != nil {
		return nil, err
	}

	candidates, err := q.store.Search(ctx, m.Collection(), vector, k)
	if err != nil {
		return nil, classifyStoreErr(err, m.Collection())
	}
	return candidates, nil
}

// classifyStoreErr lifts the store's sentinel errors into the coded
// taxonomy so callers above the engine can classify them. Errors that
// already carry a code pass through unchanged.
func classifyStoreErr(err error, collection string) error {
	switch {
	case errors.Is(err, store.ErrCollectionNotFound):
		return artlenserr.Wrap(err, artlenserr.CodeStoreCollectionNotFound,
			"collection not built", artlenserr.FieldCollection(collection))
	case errors.Is(err, store.ErrDimensionMismatch):
		return artlenserr.Wrap(err, artlenserr.CodeStoreDimensionMismatch,
			"vector length does not match collection", artlenserr.FieldCollection(collection))
	case errors.Is(err, store.ErrInvalidInput):
		return artlenserr.Wrap(err, artlenserr.CodeStoreSearchInvalid,
			"invalid search arguments", artlenserr.FieldCollection(collection))
	case artlenserr.CodeOf(err) != "":
		return err
	default:
		return artlenserr.Wrap(err, artlenserr.CodeStoreDatabaseFailure,
			"searching collection", artlenserr.FieldCollection(collection))
	}
}
