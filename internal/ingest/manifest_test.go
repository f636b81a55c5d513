// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package ingest_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlens-dev/artlens/internal/ingest"
)

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")

	written := ingest.Manifest{
		BuiltAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Collections: []ingest.ManifestCollection{
			{Name: "artworks_text", Model: "openai/text-embedding-3-small", Dimensions: 1536, Count: 500},
			{Name: "artworks_image", Model: "google/multimodalembedding", Dimensions: 1408, Count: 310},
		},
	}
	require.NoError(t, ingest.WriteManifest(path, written))

	read, err := ingest.ReadManifest(path)
	require.NoError(t, err)
	assert.True(t, written.BuiltAt.Equal(read.BuiltAt))
	assert.Equal(t, written.Collections, read.Collections)
}

func TestReadManifestMissingFile(t *testing.T) {
	_, err := ingest.ReadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
