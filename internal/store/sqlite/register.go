// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package sqlite

import (
	"github.com/artlens-dev/artlens/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", func(dbPath string) (store.Store, error) {
		return New(dbPath)
	})
}
