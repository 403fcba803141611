// Package postgres provides a Postgres-backed catalog store that mirrors the
// in-memory semantics and keeps one JSONB row per record.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"datasetmd/internal/catalog"
	"datasetmd/internal/infra/persistence/memory"
)

var _ catalog.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/datasetmd?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists records to Postgres while serving reads from memory.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It ensures the records table exists and hydrates the in-memory mirror.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureRecordsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	records, err := loadRecords(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(records)
	return &Store{Store: mem, db: db}, nil
}

func ensureRecordsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure records table: %w", err)
	}
	return nil
}

func loadRecords(ctx context.Context, db *sql.DB) ([]catalog.Record, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM records`)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var records []catalog.Record
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan records: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		rec, err := catalog.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Put upserts the record row inside a transaction, then updates the mirror.
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO records(id,payload) VALUES($1,$2) ON CONFLICT(id) DO UPDATE SET payload=EXCLUDED.payload`, prepared.ID, data); err != nil {
		return catalog.Record{}, fmt.Errorf("upsert %s: %w", prepared.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return catalog.Record{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id=$1`, id); err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	return s.Store.Delete(ctx, id)
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
