// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/artlens-dev/artlens/internal/embed"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-3-small"

// knownDimensions maps OpenAI embedding models to their native output size.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds OpenAI embedder configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int // optional override; 0 uses the model's native size
}

// Compile-time interface check.
var _ embed.Embedder = (*Embedder)(nil)

// Embedder embeds text queries using the OpenAI embeddings API.
type Embedder struct {
	client openaisdk.Client
	model  string
	dims   int
}

// New creates a text embedder. A missing API key is a setup problem: the
// model can never be reached within this process lifetime.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, artlenserr.New(artlenserr.CodeEmbedModelUnavailable,
			"openai: missing api_key in config", artlenserr.FieldProvider("openai"))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = knownDimensions[model]
	}
	if dims == 0 {
		return nil, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"openai: unknown model %q requires explicit dimensions", model)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Embedder{
		client: openaisdk.NewClient(opts...),
		model:  model,
		dims:   dims,
	}, nil
}

func (e *Embedder) Provider() string         { return "openai" }
func (e *Embedder) Model() string            { return e.model }
func (e *Embedder) Modality() types.Modality { return types.ModalityText }
func (e *Embedder) Dimensions() int          { return e.dims }

// Embed returns the embedding vector for one text input.
func (e *Embedder) Embed(ctx context.Context, in embed.Input) ([]float32, error) {
	text, err := embed.ValidateText(in.Text)
	if err != nil {
		return nil, err
	}

	params := openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: openaisdk.String(text),
		},
	}
	// Only text-embedding-3-* supports requesting a reduced size.
	if e.dims != knownDimensions[e.model] {
		params.Dimensions = openaisdk.Int(int64(e.dims))
	}

	res, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, artlenserr.Wrap(err, artlenserr.CodeEmbedUpstreamFailure,
			"openai: embedding request failed",
			artlenserr.FieldProvider("openai"), artlenserr.FieldModel(e.model))
	}
	if len(res.Data) == 0 {
		return nil, artlenserr.New(artlenserr.CodeEmbedUpstreamFailure,
			"openai: empty embedding response", artlenserr.FieldModel(e.model))
	}

	raw := res.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	if len(vec) != e.dims {
		return nil, artlenserr.Errorf(artlenserr.CodeEmbedUpstreamFailure,
			"openai: model %s returned %d dimensions, expected %d", e.model, len(vec), e.dims)
	}

	return vec, nil
}
