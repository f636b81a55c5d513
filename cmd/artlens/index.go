// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/artlens-dev/artlens/internal/ingest"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the artwork index",
		Long:  "Fetch the museum catalog, embed each artwork per modality, and write the vector collections. Safe to re-run; existing records are replaced.",
		RunE:  runIndex,
	}

	cmd.Flags().Int("max-artworks", 0, "stop after this many catalog records (0 = all)")
	_ = viper.BindPFlag("catalog.max_artworks", cmd.Flags().Lookup("max-artworks"))

	return cmd
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := WireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	pipeline := ingest.NewPipeline(
		ingest.NewCatalogClient(cfg.Catalog.APIBaseURL),
		ingest.NewImageClient(cfg.Catalog.IIIFBaseURL),
		app.Embedders,
		app.Store,
		ingest.Options{
			PageSize:     cfg.Catalog.PageSize,
			MaxArtworks:  cfg.Catalog.MaxArtworks,
			Concurrency:  cfg.Catalog.Concurrency,
			ManifestPath: app.ManifestPath(),
		},
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"Indexed %d artworks (%d text, %d image, %d images skipped, %d failed)\n",
		stats.Processed, stats.TextIndexed, stats.ImageIndexed, stats.ImageSkipped, stats.Failed)
	return err
}
