// Package sqlite persists catalog records to a single SQLite table using the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"datasetmd/internal/catalog"
	"datasetmd/internal/infra/persistence/memory"
)

const defaultPath = "datasetmd.db"

var _ catalog.Store = (*Store)(nil)

// Store writes each record as a JSON payload row and serves reads from an
// in-memory mirror hydrated on open.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating when needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT id, payload FROM records`)
	if err != nil {
		return fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var records []catalog.Record
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		rec, err := catalog.Decode(payload)
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate records: %w", err)
	}
	s.ImportState(records)
	return nil
}

// Put writes the record row before updating the mirror.
func (s *Store) Put(ctx context.Context, rec catalog.Record) (catalog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prepared, err := s.Prepare(rec)
	if err != nil {
		return catalog.Record{}, err
	}
	data, err := catalog.Encode(prepared)
	if err != nil {
		return catalog.Record{}, err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO records(id,payload) VALUES(?,?) ON CONFLICT(id) DO UPDATE SET payload=excluded.payload`, prepared.ID, data); err != nil {
		return catalog.Record{}, fmt.Errorf("upsert %s: %w", prepared.ID, err)
	}
	s.Commit(prepared)
	return catalog.Clone(prepared)
}

// Delete removes the row and the mirrored record.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Has(id) {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id=?`, id); err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	return s.Store.Delete(ctx, id)
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
