package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"datasetmd/internal/infra/persistence/memory"
	"datasetmd/internal/infra/persistence/postgres"
	"datasetmd/internal/infra/persistence/postgres/testutil"
	"datasetmd/internal/infra/persistence/sqlite"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	for _, d := range []Driver{"", DriverMemory} {
		s, err := Open(ctx, Config{Driver: d})
		if err != nil {
			t.Fatalf("open %q: %v", d, err)
		}
		if _, ok := s.(*memory.Store); !ok {
			t.Fatalf("expected memory store for %q, got %T", d, s)
		}
	}

	s, err := Open(ctx, Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "r.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := s.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite store, got %T", s)
	}
	_ = s.Close()

	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	s, err = Open(ctx, Config{Driver: DriverPostgres, PostgresDSN: "postgres://stub"})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if _, ok := s.(*postgres.Store); !ok {
		t.Fatalf("expected postgres store, got %T", s)
	}

	if _, err := Open(ctx, Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
