// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package embed

import (
	"bytes"
	"context"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// Input is one query item to embed. Exactly one field is set, matching the
// embedder's modality: Text for the text space, Image (an encoded bitmap)
// for the image space.
type Input struct {
	Text  string
	Image []byte
}

// Embedder maps one query item of its modality to a fixed-length vector.
// Instances are constructed once at process start from a configured model
// reference and must be safe for concurrent use.
type Embedder interface {
	Provider() string
	Model() string
	Modality() types.Modality

	// Dimensions declares the fixed output vector length.
	Dimensions() int

	// Embed returns the embedding vector for one input. Empty or
	// undecodable input fails with an invalid-input error; an unreachable
	// or unloadable model fails with a model-unavailable error.
	Embed(ctx context.Context, in Input) ([]float32, error)
}

// ValidateText rejects input that is empty after trimming.
func ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", artlenserr.New(artlenserr.CodeEmbedInputInvalid, "empty text input")
	}
	return trimmed, nil
}

// ValidateImage rejects payloads that do not decode as a known bitmap
// format. It returns the detected MIME type for providers that need one.
func ValidateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", artlenserr.New(artlenserr.CodeEmbedInputInvalid, "empty image payload")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", artlenserr.Wrapf(err, artlenserr.CodeEmbedInputInvalid, "undecodable image")
	}

	return "image/" + format, nil
}
