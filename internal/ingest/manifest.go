// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package ingest

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

// Manifest records what an offline build produced, next to the database.
// Doctor reads it to cross-check the live store against the last build.
type Manifest struct {
	BuiltAt     time.Time            `yaml:"built_at"`
	Collections []ManifestCollection `yaml:"collections"`
}

// ManifestCollection is one collection's build summary.
type ManifestCollection struct {
	Name       string `yaml:"name"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Count      int    `yaml:"count"`
}

// WriteManifest writes the build manifest to path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return artlenserr.Wrapf(err, artlenserr.CodeIngestPipelineFailure, "marshalling manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return artlenserr.Wrapf(err, artlenserr.CodeIngestPipelineFailure, "writing manifest %s", path)
	}
	return nil
}

// ReadManifest reads a build manifest from path.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, artlenserr.Wrapf(err, artlenserr.CodeIngestPipelineFailure, "reading manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, artlenserr.Wrapf(err, artlenserr.CodeIngestPipelineFailure, "parsing manifest %s", path)
	}
	return m, nil
}
