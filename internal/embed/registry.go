// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package embed

import (
	"sync"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

// Registry holds the configured embedder instance for each modality.
// Modality is a closed set, so the registry is a small map rather than a
// class hierarchy; orchestration code stays modality-agnostic.
type Registry struct {
	mu        sync.RWMutex
	embedders map[types.Modality]Embedder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{embedders: map[types.Modality]Embedder{}}
}

// Register installs an embedder for its modality. Registering a second
// embedder for the same modality is a wiring bug and is rejected.
func (r *Registry) Register(e Embedder) error {
	if e == nil {
		return artlenserr.New(artlenserr.CodeConfigValidateInvalidValue, "nil embedder")
	}
	if !e.Modality().Valid() {
		return artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"embedder %s has unknown modality %q", e.Provider(), e.Modality())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.embedders[e.Modality()]; exists {
		return artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"embedder already registered for modality %q", e.Modality())
	}

	r.embedders[e.Modality()] = e
	return nil
}

// ForModality returns the embedder configured for m.
func (r *Registry) ForModality(m types.Modality) (Embedder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.embedders[m]
	if !ok {
		return nil, artlenserr.Errorf(artlenserr.CodeEmbedModalityUnknown,
			"no embedder registered for modality %q", m)
	}
	return e, nil
}

// Modalities returns the modalities with a registered embedder.
func (r *Registry) Modalities() []types.Modality {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Modality, 0, len(r.embedders))
	for _, m := range types.Modalities() {
		if _, ok := r.embedders[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
