// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/artlens-dev/artlens/internal/config"
	"github.com/artlens-dev/artlens/internal/embed"
	googleemb "github.com/artlens-dev/artlens/internal/embed/google"
	openaiemb "github.com/artlens-dev/artlens/internal/embed/openai"
	"github.com/artlens-dev/artlens/internal/retrieval"
	"github.com/artlens-dev/artlens/internal/secrets"
	"github.com/artlens-dev/artlens/internal/store"
	_ "github.com/artlens-dev/artlens/internal/store/sqlite" // register sqlite backend
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// manifestName is the build manifest file written next to the database.
const manifestName = "manifest.yaml"

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Config    *config.Config
	DataDir   string
	Store     store.Store
	Embedders *embed.Registry
	Engine    *retrieval.Engine
}

// embedderFactory builds an Embedder for one modality from its config.
// Declared as a variable so tests can inject fakes.
type embedderFactory func(modality types.Modality, ec config.EmbedderConfig) (embed.Embedder, error)

var embedderFactories = map[string]embedderFactory{
	"openai": func(_ types.Modality, ec config.EmbedderConfig) (embed.Embedder, error) {
		return openaiemb.New(openaiemb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.Endpoint,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
		})
	},
	"google": func(m types.Modality, ec config.EmbedderConfig) (embed.Embedder, error) {
		return googleemb.New(googleemb.Config{
			APIKey:     ec.APIKey,
			Model:      ec.Model,
			Modality:   m,
			Dimensions: ec.Dimensions,
		})
	},
}

// WireApp creates all subsystems and wires them together.
func WireApp(cfg *config.Config) (*App, error) {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, artlenserr.Errorf(artlenserr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	st, err := openStore(cfg, dataDir)
	if err != nil {
		return nil, err
	}

	reg, err := buildEmbedders(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine := retrieval.New(reg, st, retrieval.Options{
		DefaultHybridWeight: &cfg.Retrieval.DefaultHybridWeight,
		OverfetchFactor:     cfg.Retrieval.SearchOverfetchFactor,
	})

	return &App{
		Config:    cfg,
		DataDir:   dataDir,
		Store:     st,
		Embedders: reg,
		Engine:    engine,
	}, nil
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// ManifestPath returns the build manifest location inside the data dir.
func (a *App) ManifestPath() string {
	return filepath.Join(a.DataDir, manifestName)
}

func resolveDataDir(cfg *config.Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	dir, err := config.DefaultDataDir()
	if err != nil {
		return "", artlenserr.Errorf(artlenserr.CodeCLISetupFailure, "resolving data directory: %w", err)
	}
	return dir, nil
}

func openStore(cfg *config.Config, dataDir string) (store.Store, error) {
	path := cfg.Storage.Path
	if path == "" {
		path = filepath.Join(dataDir, "artlens.db")
	}

	st, err := store.Open(&store.StorageConfig{Backend: cfg.Storage.Backend, Path: path})
	if err != nil {
		return nil, artlenserr.Errorf(artlenserr.CodeCLISetupFailure, "opening store: %w", err)
	}
	return st, nil
}

// buildEmbedders constructs one embedder per configured modality. API keys
// may be plain values or keyring:// URIs.
func buildEmbedders(cfg *config.Config) (*embed.Registry, error) {
	keyringStore := secrets.NewKeyringStore()
	reg := embed.NewRegistry()

	for name, ec := range cfg.Embedders {
		modality, err := types.ParseModality(name)
		if err != nil {
			return nil, err
		}

		factory, ok := embedderFactories[ec.Provider]
		if !ok {
			return nil, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
				"unknown embedder provider %q for modality %s", ec.Provider, modality)
		}

		apiKey, err := secrets.ResolveKeyringURI(keyringStore, ec.APIKey)
		if err != nil {
			return nil, err
		}
		ec.APIKey = apiKey

		e, err := factory(modality, ec)
		if err != nil {
			return nil, err
		}
		if e.Modality() != modality {
			return nil, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
				"provider %q cannot serve modality %s", ec.Provider, modality)
		}
		if err := reg.Register(embed.NewTracked(e)); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// loadConfig resolves the effective configuration from the global viper
// state initViper prepared.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}
