// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// Config is the top-level Artlens configuration.
type Config struct {
	DataDir   string                    `mapstructure:"data_dir"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Embedders map[string]EmbedderConfig `mapstructure:"embedders"`
	Retrieval RetrievalConfig           `mapstructure:"retrieval"`
	Catalog   CatalogConfig             `mapstructure:"catalog"`
	Server    ServerConfig              `mapstructure:"server"`
}

// StorageConfig selects the vector store backend and database location.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// EmbedderConfig holds one modality's embedding model reference and
// credentials. The map key in Config.Embedders is the modality name.
type EmbedderConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	Dimensions int    `mapstructure:"dimensions"`
}

// RetrievalConfig tunes the retrieval engine.
type RetrievalConfig struct {
	DefaultHybridWeight   float64 `mapstructure:"default_hybrid_weight"`
	DefaultResultCount    int     `mapstructure:"default_result_count"`
	SearchOverfetchFactor int     `mapstructure:"search_overfetch_factor"`
}

// CatalogConfig points at the artwork catalog and IIIF image service used
// by the offline index build.
type CatalogConfig struct {
	APIBaseURL  string `mapstructure:"api_base_url"`
	IIIFBaseURL string `mapstructure:"iiif_base_url"`
	PageSize    int    `mapstructure:"page_size"`
	MaxArtworks int    `mapstructure:"max_artworks"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ServerConfig controls the HTTP search API.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// SetDefaults installs default values on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("retrieval.default_hybrid_weight", 0.5)
	v.SetDefault("retrieval.default_result_count", 6)
	v.SetDefault("retrieval.search_overfetch_factor", 3)
	v.SetDefault("embedders.text.provider", "openai")
	v.SetDefault("embedders.text.model", "text-embedding-3-small")
	v.SetDefault("embedders.text.dimensions", 1536)
	v.SetDefault("embedders.image.provider", "google")
	v.SetDefault("embedders.image.model", "multimodalembedding@001")
	v.SetDefault("embedders.image.dimensions", 1408)
	v.SetDefault("catalog.api_base_url", "https://api.artic.edu/api/v1")
	v.SetDefault("catalog.iiif_base_url", "https://www.artic.edu/iiif/2")
	v.SetDefault("catalog.page_size", 100)
	v.SetDefault("catalog.concurrency", 4)
	v.SetDefault("server.listen", "127.0.0.1:8787")
}

// SetupEnv binds environment variable overrides (prefix ARTLENS_).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("ARTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, artlenserr.Errorf(artlenserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a fully prepared Viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, artlenserr.Errorf(artlenserr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateEmbedders()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateServer()...)

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.Backend != "" && c.Storage.Backend != "sqlite" {
		errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be \"sqlite\", got %q", c.Storage.Backend))
	}

	return errs
}

func (c *Config) validateEmbedders() []error {
	var errs []error

	validProviders := map[string]bool{"openai": true, "google": true}

	for name, ec := range c.Embedders {
		if _, err := types.ParseModality(name); err != nil {
			errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
				"config: embedders key %q is not a modality (text, image)", name))
			continue
		}
		if !validProviders[ec.Provider] {
			errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
				"config: embedders.%s.provider must be one of [openai, google], got %q", name, ec.Provider))
		}
		if ec.Dimensions < 1 {
			errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
				"config: embedders.%s.dimensions must be >= 1, got %d", name, ec.Dimensions))
		}
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	var errs []error

	if w := c.Retrieval.DefaultHybridWeight; w < 0 || w > 1 {
		errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"config: retrieval.default_hybrid_weight must be in [0,1], got %v", w))
	}
	if c.Retrieval.DefaultResultCount < 1 {
		errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"config: retrieval.default_result_count must be >= 1, got %d", c.Retrieval.DefaultResultCount))
	}
	if c.Retrieval.SearchOverfetchFactor < 1 {
		errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"config: retrieval.search_overfetch_factor must be >= 1, got %d", c.Retrieval.SearchOverfetchFactor))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen != "" {
		host, port, err := net.SplitHostPort(c.Server.Listen)
		if err != nil || host == "" {
			errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
				"config: server.listen must be host:port, got %q", c.Server.Listen))
		} else if _, perr := strconv.Atoi(port); perr != nil {
			errs = append(errs, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
				"config: server.listen port must be numeric, got %q", port))
		}
	}

	return errs
}
