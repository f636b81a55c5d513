// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/artlens-dev/artlens/internal/embed"
	"github.com/artlens-dev/artlens/internal/store"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// progressEvery controls how often the pipeline logs a progress line.
const progressEvery = 100

// Options tunes the offline index build.
type Options struct {
	PageSize     int
	MaxArtworks  int // 0 fetches the whole catalog
	Concurrency  int
	ManifestPath string // optional; build manifest written here when set
}

// Stats summarizes one pipeline run. A record failing to embed or store
// does not kill the run; it is counted and logged instead.
type Stats struct {
	Processed    int
	TextIndexed  int
	ImageIndexed int
	ImageSkipped int
	Failed       int
}

// Pipeline is the offline batch build: fetch catalog records, embed each
// one per modality, and write both collections. It is wholly separate from
// the query path, which never writes.
type Pipeline struct {
	catalog   *CatalogClient
	images    *ImageClient
	embedders *embed.Registry
	store     store.Store
	opts      Options

	mu    sync.Mutex
	stats Stats
}

// NewPipeline creates a Pipeline over the given collaborators.
func NewPipeline(catalog *CatalogClient, images *ImageClient, embedders *embed.Registry, st store.Store, opts Options) *Pipeline {
	if opts.PageSize < 1 {
		opts.PageSize = 100
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	return &Pipeline{
		catalog:   catalog,
		images:    images,
		embedders: embedders,
		store:     st,
		opts:      opts,
	}
}

// Run executes the build and returns its stats. Fatal errors (catalog
// unreachable, collections impossible to create) abort the run; per-record
// embedding or storage errors are tolerated.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	textEmb, err := p.embedders.ForModality(types.ModalityText)
	if err != nil {
		return Stats{}, err
	}
	imageEmb, err := p.embedders.ForModality(types.ModalityImage)
	if err != nil {
		return Stats{}, err
	}

	for _, e := range []embed.Embedder{textEmb, imageEmb} {
		name := e.Modality().Collection()
		model := e.Provider() + "/" + e.Model()
		if err := p.store.EnsureCollection(ctx, name, e.Dimensions(), model); err != nil {
			return Stats{}, artlenserr.Wrapf(err, artlenserr.CodeIngestPipelineFailure,
				"creating collection %q", name)
		}
	}

	fetched := 0
	for page := 1; ; page++ {
		artworks, pagination, err := p.catalog.Artworks(ctx, page, p.opts.PageSize)
		if err != nil {
			return p.snapshot(), err
		}

		if p.opts.MaxArtworks > 0 && fetched+len(artworks) > p.opts.MaxArtworks {
			artworks = artworks[:p.opts.MaxArtworks-fetched]
		}
		fetched += len(artworks)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.Concurrency)
		for _, artwork := range artworks {
			g.Go(func() error {
				p.indexArtwork(gctx, artwork, textEmb, imageEmb)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return p.snapshot(), err
		}

		if ctx.Err() != nil {
			return p.snapshot(), artlenserr.Wrap(ctx.Err(), artlenserr.CodeIngestPipelineFailure, "build interrupted")
		}

		if page >= pagination.TotalPages || len(artworks) == 0 {
			break
		}
		if p.opts.MaxArtworks > 0 && fetched >= p.opts.MaxArtworks {
			break
		}
	}

	stats := p.snapshot()
	slog.Info("index build complete",
		"processed", stats.Processed,
		"text_indexed", stats.TextIndexed,
		"image_indexed", stats.ImageIndexed,
		"image_skipped", stats.ImageSkipped,
		"failed", stats.Failed,
	)

	if p.opts.ManifestPath != "" {
		if err := p.writeManifest(ctx); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (p *Pipeline) indexArtwork(ctx context.Context, a Artwork, textEmb, imageEmb embed.Embedder) {
	id := a.IDString()
	meta := DisplayMetadata(a)

	caption := BuildCaption(a)
	vec, err := textEmb.Embed(ctx, embed.Input{Text: caption})
	if err != nil {
		slog.Warn("embedding artwork text failed", "artwork_id", id, "error", err)
		p.count(func(s *Stats) { s.Failed++ })
	} else if err := p.store.AddRecord(ctx, types.ModalityText.Collection(), store.Record{
		ID: id, Vector: vec, Metadata: meta,
	}); err != nil {
		slog.Warn("storing artwork text embedding failed", "artwork_id", id, "error", err)
		p.count(func(s *Stats) { s.Failed++ })
	} else {
		p.count(func(s *Stats) { s.TextIndexed++ })
	}

	p.indexArtworkImage(ctx, a, imageEmb, meta)

	p.count(func(s *Stats) {
		s.Processed++
		if s.Processed%progressEvery == 0 {
			slog.Info("indexing progress",
				"processed", s.Processed,
				"text_indexed", s.TextIndexed,
				"image_indexed", s.ImageIndexed,
			)
		}
	})
}

func (p *Pipeline) indexArtworkImage(ctx context.Context, a Artwork, imageEmb embed.Embedder, meta store.Metadata) {
	// Images that are missing or not public domain are skipped, matching
	// the catalog's licensing terms.
	if a.ImageID == "" || !a.IsPublicDomain {
		p.count(func(s *Stats) { s.ImageSkipped++ })
		return
	}

	id := a.IDString()

	data, err := p.images.Download(ctx, a.ImageID)
	if err != nil {
		slog.Debug("skipping artwork image", "artwork_id", id, "error", err)
		p.count(func(s *Stats) { s.ImageSkipped++ })
		return
	}

	vec, err := imageEmb.Embed(ctx, embed.Input{Image: data})
	if err != nil {
		slog.Warn("embedding artwork image failed", "artwork_id", id, "error", err)
		p.count(func(s *Stats) { s.Failed++ })
		return
	}

	if err := p.store.AddRecord(ctx, types.ModalityImage.Collection(), store.Record{
		ID: id, Vector: vec, Metadata: meta,
	}); err != nil {
		slog.Warn("storing artwork image embedding failed", "artwork_id", id, "error", err)
		p.count(func(s *Stats) { s.Failed++ })
		return
	}

	p.count(func(s *Stats) { s.ImageIndexed++ })
}

func (p *Pipeline) writeManifest(ctx context.Context) error {
	infos, err := p.store.Collections(ctx)
	if err != nil {
		return artlenserr.Wrapf(err, artlenserr.CodeIngestPipelineFailure, "reading collections for manifest")
	}

	m := Manifest{BuiltAt: time.Now().UTC()}
	for _, info := range infos {
		m.Collections = append(m.Collections, ManifestCollection{
			Name:       info.Name,
			Model:      info.Model,
			Dimensions: info.Dimensions,
			Count:      info.Count,
		})
	}

	return WriteManifest(p.opts.ManifestPath, m)
}

func (p *Pipeline) count(fn func(*Stats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.stats)
}

func (p *Pipeline) snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
