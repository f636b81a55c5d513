// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package types

import (
	"strings"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

// Modality identifies which embedding space a query item belongs to.
// Text and image vectors live in separate spaces and are never compared
// numerically across modalities.
type Modality string

const (
	// ModalityText is the text embedding space.
	ModalityText Modality = "text"
	// ModalityImage is the image embedding space.
	ModalityImage Modality = "image"
)

// Modalities returns the closed set of supported modalities.
func Modalities() []Modality {
	return []Modality{ModalityText, ModalityImage}
}

// Valid reports whether m is a recognized modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityImage:
		return true
	default:
		return false
	}
}

// Collection returns the vector store collection name for this modality.
// Collections are addressed by these stable names and are built offline
// before any query runs.
func (m Modality) Collection() string {
	return string(m)
}

// ParseModality parses a case-insensitive string into a Modality.
func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"invalid modality: %q", s)
	}
	return m, nil
}
