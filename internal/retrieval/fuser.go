// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/artlens-dev/artlens/internal/store"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

// MetadataSource resolves display metadata for fused result ids.
// store.VectorStore satisfies it.
type MetadataSource interface {
	GetMetadata(ctx context.Context, id string) (store.Metadata, error)
}

// Fuser combines per-modality candidate lists into one ranked result list.
type Fuser struct {
	meta MetadataSource
}

// NewFuser creates a Fuser that attaches metadata from meta.
func NewFuser(meta MetadataSource) *Fuser {
	return &Fuser{meta: meta}
}

// normalizeScore converts a raw distance to a similarity score in (0, 1].
// Monotonic and branch-local: smaller distance yields a larger score
// regardless of the underlying metric's scale.
func normalizeScore(distance float64) float64 {
	return 1 / (1 + distance)
}

// Fuse merges the branches' candidates into at most limit ranked results.
// Branch weights are normalized to sum to 1 before use, so a hybrid query
// never systematically favors one modality through a configuration bug.
// An artwork present in several branches accumulates each branch's weighted
// normalized score. Ties sort by id ascending for deterministic output.
func (f *Fuser) Fuse(ctx context.Context, branches []Branch, limit int) ([]RankedResult, error) {
	if limit < 1 {
		return nil, artlenserr.Errorf(artlenserr.CodeRetrievalLimitInvalid,
			"limit must be >= 1, got %d", limit)
	}
	if len(branches) == 0 {
		return []RankedResult{}, nil
	}

	var weightSum float64
	for _, b := range branches {
		if b.Weight < 0 {
			return nil, artlenserr.Errorf(artlenserr.CodeRetrievalWeightInvalid,
				"branch %s has negative weight %v", b.Modality, b.Weight)
		}
		weightSum += b.Weight
	}
	if weightSum <= 0 {
		return nil, artlenserr.New(artlenserr.CodeRetrievalWeightInvalid,
			"branch weights sum to zero")
	}

	fused := map[string]float64{}
	for _, b := range branches {
		weight := b.Weight / weightSum
		for _, c := range b.Candidates {
			fused[c.ID] += weight * normalizeScore(c.Distance)
		}
	}

	ranked := make([]RankedResult, 0, len(fused))
	for id, score := range fused {
		ranked = append(ranked, RankedResult{ID: id, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for i := range ranked {
		meta, err := f.meta.GetMetadata(ctx, ranked[i].ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// An indexed id without metadata is an offline-build
				// defect; failing loudly beats silently dropping it.
				return nil, artlenserr.Wrap(err, artlenserr.CodeStoreIndexInconsistent,
					"indexed artwork has no metadata", artlenserr.FieldArtworkID(ranked[i].ID))
			}
			if artlenserr.CodeOf(err) != "" {
				return nil, err
			}
			return nil, artlenserr.Wrap(err, artlenserr.CodeStoreDatabaseFailure,
				"loading result metadata", artlenserr.FieldArtworkID(ranked[i].ID))
		}
		ranked[i].Metadata = meta
	}

	return ranked, nil
}
