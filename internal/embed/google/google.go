// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/artlens-dev/artlens/internal/embed"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-embedding-001"

// Config holds Google embedder configuration.
type Config struct {
	APIKey     string
	Model      string
	Modality   types.Modality
	Dimensions int
}

// Compile-time interface check.
var _ embed.Embedder = (*Embedder)(nil)

// Embedder embeds queries using the Google GenAI embedding API. One
// instance serves one modality; the image instance sends the raw bitmap
// as inline data.
type Embedder struct {
	client   *genai.Client
	model    string
	modality types.Modality
	dims     int
}

// New creates an embedder for the configured modality.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, artlenserr.New(artlenserr.CodeEmbedModelUnavailable,
			"google: missing api_key in config", artlenserr.FieldProvider("google"))
	}
	if !cfg.Modality.Valid() {
		return nil, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"google: unknown modality %q", cfg.Modality)
	}
	if cfg.Dimensions < 1 {
		return nil, artlenserr.New(artlenserr.CodeConfigValidateInvalidValue,
			"google: dimensions must be >= 1", artlenserr.FieldProvider("google"))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, artlenserr.Wrapf(err, artlenserr.CodeEmbedModelUnavailable, "google: creating client")
	}

	return &Embedder{
		client:   client,
		model:    model,
		modality: cfg.Modality,
		dims:     cfg.Dimensions,
	}, nil
}

func (e *Embedder) Provider() string         { return "google" }
func (e *Embedder) Model() string            { return e.model }
func (e *Embedder) Modality() types.Modality { return e.modality }
func (e *Embedder) Dimensions() int          { return e.dims }

// Embed returns the embedding vector for one input of the configured
// modality.
func (e *Embedder) Embed(ctx context.Context, in embed.Input) ([]float32, error) {
	contents, err := e.buildContents(in)
	if err != nil {
		return nil, err
	}

	cfg := &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(e.dims)),
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, artlenserr.Wrap(err, artlenserr.CodeEmbedUpstreamFailure,
			"google: embedding request failed",
			artlenserr.FieldProvider("google"), artlenserr.FieldModel(e.model))
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, artlenserr.New(artlenserr.CodeEmbedUpstreamFailure,
			"google: empty embedding response", artlenserr.FieldModel(e.model))
	}

	vec := res.Embeddings[0].Values
	if len(vec) != e.dims {
		return nil, artlenserr.Errorf(artlenserr.CodeEmbedUpstreamFailure,
			"google: model %s returned %d dimensions, expected %d", e.model, len(vec), e.dims)
	}

	return vec, nil
}

func (e *Embedder) buildContents(in embed.Input) ([]*genai.Content, error) {
	switch e.modality {
	case types.ModalityText:
		text, err := embed.ValidateText(in.Text)
		if err != nil {
			return nil, err
		}
		return genai.Text(text), nil

	case types.ModalityImage:
		mime, err := embed.ValidateImage(in.Image)
		if err != nil {
			return nil, err
		}
		part := &genai.Part{
			InlineData: &genai.Blob{MIMEType: mime, Data: in.Image},
		}
		return []*genai.Content{{Parts: []*genai.Part{part}}}, nil

	default:
		return nil, artlenserr.Errorf(artlenserr.CodeEmbedModalityUnknown,
			"google: unknown modality %q", e.modality)
	}
}
