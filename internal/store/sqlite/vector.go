// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artlens-dev/artlens/internal/store"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// collectionName guards the identifiers interpolated into vec0 DDL.
var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Store implements store.Store backed by SQLite with sqlite-vec.
// Each collection is one vec0 virtual table with a fixed dimensionality;
// artwork display metadata lives in a shared companion table.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at dbPath and initialises the
// bookkeeping and metadata tables. Collections themselves are created by
// EnsureCollection during the offline index build.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating artwork tables: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const collectionsDDL = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	dimensions INTEGER NOT NULL,
	model      TEXT NOT NULL DEFAULT ''
)`
	if _, err := db.Exec(collectionsDDL); err != nil {
		return fmt.Errorf("creating collections table: %w", err)
	}

	const artworksDDL = `
CREATE TABLE IF NOT EXISTS artworks (
	id       TEXT PRIMARY KEY,
	metadata TEXT NOT NULL DEFAULT '{}'
)`
	if _, err := db.Exec(artworksDDL); err != nil {
		return fmt.Errorf("creating artworks table: %w", err)
	}

	return nil
}

// EnsureCollection creates the named collection with a fixed dimensionality.
// Re-ensuring with the same dimensions is a no-op; changing dimensions on an
// existing collection is rejected.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int, model string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("collection name %q: %w", name, store.ErrInvalidInput)
	}
	if dimensions < 1 {
		return fmt.Errorf("dimensions %d: %w", dimensions, store.ErrInvalidInput)
	}

	existing, err := s.collectionDims(ctx, name)
	if err == nil {
		if existing != dimensions {
			return fmt.Errorf("collection %q has %d dimensions, requested %d: %w",
				name, existing, dimensions, store.ErrDimensionMismatch)
		}
		return nil
	}
	if !errors.Is(err, store.ErrCollectionNotFound) {
		return err
	}

	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(id TEXT PRIMARY KEY, embedding float[%d])`,
		vectorTable(name), dimensions,
	)
	if _, err := s.db.ExecContext(ctx, vecDDL); err != nil {
		return fmt.Errorf("creating vector table for %q: %w", name, err)
	}

	const q = `INSERT INTO collections(name, dimensions, model) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET model = excluded.model`
	if _, err := s.db.ExecContext(ctx, q, name, dimensions, model); err != nil {
		return fmt.Errorf("registering collection %q: %w", name, err)
	}

	return nil
}

// AddRecord inserts or replaces a vector and its artwork metadata.
func (s *Store) AddRecord(ctx context.Context, collection string, rec store.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("empty artwork id: %w", store.ErrInvalidInput)
	}

	dims, err := s.collectionDims(ctx, collection)
	if err != nil {
		return err
	}
	if len(rec.Vector) != dims {
		return fmt.Errorf("vector has %d dimensions, collection %q expects %d: %w",
			len(rec.Vector), collection, dims, store.ErrDimensionMismatch)
	}

	blob, err := sqlite_vec.SerializeFloat32(rec.Vector)
	if err != nil {
		return fmt.Errorf("serializing embedding: %w", err)
	}

	metaJSON := []byte("{}")
	if len(rec.Metadata) > 0 {
		metaJSON, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	table := vectorTable(collection)

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("deleting existing vector %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+`(id, embedding) VALUES (?, ?)`, rec.ID, blob); err != nil {
		return fmt.Errorf("inserting vector %s: %w", rec.ID, err)
	}

	const metaQ = `INSERT INTO artworks(id, metadata) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata`
	if _, err := tx.ExecContext(ctx, metaQ, rec.ID, string(metaJSON)); err != nil {
		return fmt.Errorf("upserting artwork metadata %s: %w", rec.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

// Search performs a k-nearest-neighbor search over one collection.
// Candidates come back ordered by ascending distance; an empty collection
// yields an empty slice.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, k int) ([]store.Candidate, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d: %w", k, store.ErrInvalidInput)
	}

	dims, err := s.collectionDims(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("query vector has %d dimensions, collection %q expects %d: %w",
			len(vector), collection, dims, store.ErrDimensionMismatch)
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	q := `SELECT id, distance FROM ` + vectorTable(collection) + `
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`

	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []store.Candidate
	for rows.Next() {
		var c store.Candidate
		if err := rows.Scan(&c.ID, &c.Distance); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}

	return candidates, nil
}

// GetMetadata returns the display metadata for one artwork.
func (s *Store) GetMetadata(ctx context.Context, id string) (store.Metadata, error) {
	var metaStr string
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM artworks WHERE id = ?`, id).Scan(&metaStr)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artwork %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading artwork metadata %s: %w", id, err)
	}

	meta := store.Metadata{}
	if metaStr != "" && metaStr != "{}" {
		if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
			return nil, fmt.Errorf("unmarshalling artwork metadata %s: %w", id, err)
		}
	}
	return meta, nil
}

// Collections lists the built collections with their record counts.
func (s *Store) Collections(ctx context.Context) ([]store.CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, dimensions, model FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []store.CollectionInfo
	for rows.Next() {
		var info store.CollectionInfo
		if err := rows.Scan(&info.Name, &info.Dimensions, &info.Model); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	for i := range infos {
		var count int
		q := `SELECT count(*) FROM ` + vectorTable(infos[i].Name)
		if err := s.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
			return nil, fmt.Errorf("counting collection %q: %w", infos[i].Name, err)
		}
		infos[i].Count = count
	}

	return infos, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) collectionDims(ctx context.Context, name string) (int, error) {
	if !collectionName.MatchString(name) {
		return 0, fmt.Errorf("collection name %q: %w", name, store.ErrInvalidInput)
	}

	var dims int
	err := s.db.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name = ?`, name).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("collection %q: %w", name, store.ErrCollectionNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection %q: %w", name, err)
	}
	return dims, nil
}

func vectorTable(collection string) string {
	return "vectors_" + collection
}
