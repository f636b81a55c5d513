// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/artlens-dev/artlens/internal/embed"
	"github.com/artlens-dev/artlens/internal/server"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/health"
	"github.com/artlens-dev/artlens/pkg/types"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the artlens search API",
		Long:  "Load configuration, open the index, and serve the search API over HTTP until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := WireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.Listen,
		CORSOrigins:  cfg.Server.CORSOrigins,
		DefaultLimit: cfg.Retrieval.DefaultResultCount,
	})
	if err != nil {
		return err
	}

	services, err := server.NewServices(app.Engine, server.NewStoreCatalog(app.Store), registryHealth{app.Embedders})
	if err != nil {
		return artlenserr.Errorf(artlenserr.CodeCLISetupFailure, "creating services: %w", err)
	}
	srv.RegisterServices(services)

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Serving artlens on %s\n", cfg.Server.Listen); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

// registryHealth adapts the embedder registry to the server's HealthService.
type registryHealth struct {
	reg *embed.Registry
}

func (h registryHealth) EmbedderHealth() map[types.Modality]health.Metrics {
	return h.reg.Health()
}
