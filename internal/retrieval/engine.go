// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/artlens-dev/artlens/internal/embed"
	"github.com/artlens-dev/artlens/internal/store"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// Options tunes the engine. Zero values fall back to the defaults below.
type Options struct {
	// DefaultHybridWeight is the text branch's share when a hybrid query
	// does not supply a weight. Nil means 0.5. The whole [0,1] range is
	// valid, including 0 and 1, which select the single-branch forms.
	DefaultHybridWeight *float64

	// OverfetchFactor multiplies the requested result count when searching
	// each branch, leaving headroom for fusion-time deduplication.
	OverfetchFactor int
}

const (
	defaultHybridWeight = 0.5
	defaultOverfetch    = 3
)

// Engine is the public retrieval entry point. It holds no mutable state
// across calls; the embedders and store it coordinates are long-lived,
// read-mostly services safe for concurrent access, so many Retrieve calls
// may run at once.
type Engine struct {
	query         *ModalityQuery
	fuser         *Fuser
	opts          Options
	defaultWeight float64
}

// New creates an Engine over the given capabilities.
func New(embedders *embed.Registry, vs store.VectorStore, opts Options) *Engine {
	weight := defaultHybridWeight
	if opts.DefaultHybridWeight != nil && *opts.DefaultHybridWeight >= 0 && *opts.DefaultHybridWeight <= 1 {
		weight = *opts.DefaultHybridWeight
	}
	if opts.OverfetchFactor < 1 {
		opts.OverfetchFactor = defaultOverfetch
	}
	return &Engine{
		query:         NewModalityQuery(embedders, vs),
		fuser:         NewFuser(vs),
		opts:          opts,
		defaultWeight: weight,
	}
}

// branchSpec is one modality branch the engine decided to run.
type branchSpec struct {
	modality types.Modality
	weight   float64
	input    embed.Input
}

// Retrieve runs the query's modality branches, fuses their candidates, and
// returns at most limit ranked results. For hybrid queries a single failed
// branch degrades the result to the surviving modality and sets a warning;
// if every branch fails, the underlying error is returned.
func (e *Engine) Retrieve(ctx context.Context, q Query, limit int) (*Result, error) {
	if limit < 1 {
		return nil, artlenserr.Errorf(artlenserr.CodeRetrievalLimitInvalid,
			"limit must be >= 1, got %d", limit)
	}

	specs, err := e.branchSpecs(q)
	if err != nil {
		return nil, err
	}

	k := limit * e.opts.OverfetchFactor

	type branchOut struct {
		candidates []store.Candidate
		err        error
	}
	outs := make([]branchOut, len(specs))

	// Branches touch independent embedders and independent collections,
	// so they run concurrently. A failed branch must not cancel its
	// sibling: errors are collected per slot, not returned to the group.
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			candidates, runErr := e.query.Run(gctx, spec.modality, spec.input, k)
			outs[i] = branchOut{candidates: candidates, err: runErr}
			return nil
		})
	}
	_ = g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, artlenserr.Wrap(ctxErr, artlenserr.CodeRetrievalTimeout,
			"retrieve cancelled before fusion")
	}

	var (
		branches []Branch
		warning  *Warning
		failures []error
	)
	for i, spec := range specs {
		if outs[i].err != nil {
			failures = append(failures, outs[i].err)
			warning = &Warning{Modality: spec.modality, Cause: outs[i].err}
			continue
		}
		branches = append(branches, Branch{
			Modality:   spec.modality,
			Weight:     spec.weight,
			Candidates: outs[i].candidates,
		})
	}

	if len(branches) == 0 {
		if len(failures) == 1 {
			return nil, failures[0]
		}
		return nil, artlenserr.Wrap(errors.Join(failures...),
			artlenserr.CodeRetrievalBranchFailure, "every query branch failed")
	}

	if len(failures) > 0 {
		// Degrade to single-branch fusion: the survivor carries the
		// whole result.
		slog.Warn("hybrid branch failed, degrading to single modality",
			"failed_modality", warning.Modality,
			"error", warning.Cause,
		)
		for i := range branches {
			branches[i].Weight = 1
		}
	}

	ranked, err := e.fuser.Fuse(ctx, branches, limit)
	if err != nil {
		return nil, err
	}

	return &Result{Results: ranked, Warning: warning}, nil
}

// branchSpecs validates the query and decides which branches run with
// which weights. Zero-weight branches are dropped entirely so the weight
// extremes degenerate exactly to the single-modality queries.
func (e *Engine) branchSpecs(q Query) ([]branchSpec, error) {
	if !q.Mode.Valid() {
		return nil, artlenserr.Errorf(artlenserr.CodeRetrievalQueryInvalid,
			"unknown query mode %q", q.Mode)
	}

	text := strings.TrimSpace(q.Text)
	hasText := text != ""
	hasImage := len(q.Image) > 0

	textBranch := branchSpec{
		modality: types.ModalityText,
		weight:   1,
		input:    embed.Input{Text: text},
	}
	imageBranch := branchSpec{
		modality: types.ModalityImage,
		weight:   1,
		input:    embed.Input{Image: q.Image},
	}

	switch q.Mode {
	case ModeText:
		if !hasText {
			return nil, artlenserr.New(artlenserr.CodeRetrievalQueryInvalid,
				"text query requires non-empty text")
		}
		return []branchSpec{textBranch}, nil

	case ModeImage:
		if !hasImage {
			return nil, artlenserr.New(artlenserr.CodeRetrievalQueryInvalid,
				"image query requires an image")
		}
		return []branchSpec{imageBranch}, nil

	case ModeHybrid:
		if !hasText || !hasImage {
			return nil, artlenserr.New(artlenserr.CodeRetrievalQueryInvalid,
				"hybrid query requires both text and an image")
		}

		weight := e.defaultWeight
		if q.Weight != nil {
			weight = *q.Weight
		}
		if weight < 0 || weight > 1 {
			return nil, artlenserr.Errorf(artlenserr.CodeRetrievalWeightInvalid,
				"hybrid weight must be in [0,1], got %v", weight)
		}

		switch weight {
		case 1:
			return []branchSpec{textBranch}, nil
		case 0:
			return []branchSpec{imageBranch}, nil
		}

		textBranch.weight = weight
		imageBranch.weight = 1 - weight
		return []branchSpec{textBranch, imageBranch}, nil
	}

	return nil, artlenserr.Errorf(artlenserr.CodeRetrievalQueryInvalid,
		"unknown query mode %q", q.Mode)
}
