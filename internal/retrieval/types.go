// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package retrieval

import (
	"fmt"

	"github.com/artlens-dev/artlens/internal/store"
	"github.com/artlens-dev/artlens/pkg/types"
)

// Mode selects which modality branches a query runs.
type Mode string

const (
	ModeText   Mode = "text"
	ModeImage  Mode = "image"
	ModeHybrid Mode = "hybrid"
)

// Valid reports whether m is a recognized query mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeText, ModeImage, ModeHybrid:
		return true
	default:
		return false
	}
}

// Query is one retrieval request. Text is required for ModeText and
// ModeHybrid; Image (an encoded bitmap) for ModeImage and ModeHybrid.
// Weight is the text branch's share in [0,1] for hybrid queries; nil uses
// the configured default. The image branch gets the complement.
type Query struct {
	Mode   Mode
	Text   string
	Image  []byte
	Weight *float64
}

// RankedResult is one fused result: a normalized similarity score (higher
// is better) and the artwork's display metadata, carried through untouched.
type RankedResult struct {
	ID       string
	Score    float64
	Metadata store.Metadata
}

// Warning records a hybrid branch that failed while its sibling succeeded.
// Callers needing strict hybrid semantics can treat it as an error; callers
// preferring best-effort results can ignore it.
type Warning struct {
	Modality types.Modality
	Cause    error
}

func (w *Warning) String() string {
	return fmt.Sprintf("%s branch failed, results degraded to remaining modality: %v", w.Modality, w.Cause)
}

// Result is the outcome of one retrieve call. Warning is nil unless the
// engine degraded a hybrid query to single-branch fusion.
type Result struct {
	Results []RankedResult
	Warning *Warning
}

// Branch pairs one modality's candidate list with its fusion weight.
type Branch struct {
	Modality   types.Modality
	Weight     float64
	Candidates []store.Candidate
}
