// Package persistence selects a catalog record store driver.
package persistence

import (
	"context"
	"fmt"

	"datasetmd/internal/catalog"
	"datasetmd/internal/infra/persistence/memory"
	"datasetmd/internal/infra/persistence/postgres"
	"datasetmd/internal/infra/persistence/sqlite"
)

// Driver names a record store backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config selects and configures a record store.
type Config struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
}

// Open constructs the store named by cfg.Driver; empty selects memory.
func Open(ctx context.Context, cfg Config) (catalog.Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return memory.NewStore(), nil
	case DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
