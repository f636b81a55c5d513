// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package store

import "errors"

// Sentinel errors for store operations.
// These errors can be checked using errors.Is() for classification.
var (
	// ErrNotFound indicates the requested artwork does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCollectionNotFound indicates the named collection has never been
	// built by the offline index step.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates a vector whose length does not match
	// the collection's fixed dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidInput indicates the input parameters are invalid or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabase indicates a general database error occurred.
	// This is a catch-all for unexpected database failures.
	ErrDatabase = errors.New("database error")
)
