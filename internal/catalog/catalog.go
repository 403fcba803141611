// Package catalog holds stored dataset metadata records and the persistence
// contract the record store drivers implement.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"datasetmd/pkg/metadata"
)

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("catalog: record not found")

// Record is a dataset metadata document stored under a stable id.
type Record struct {
	ID        string            `json:"id"`
	Dataset   *metadata.Dataset `json:"dataset"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Title returns the dataset title, or "" when the record has none.
func (r Record) Title() string {
	if r.Dataset == nil || r.Dataset.Base == nil {
		return ""
	}
	return r.Dataset.Base.Title
}

// Store persists records. Put creates or replaces by ID and stamps the
// timestamps; List returns records ordered by ID.
type Store interface {
	Put(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// NewRecord wraps ds in a record keyed by its base identifier, or by a fresh
// UUID when the dataset has none.
func NewRecord(ds *metadata.Dataset) Record {
	id := ""
	if ds != nil && ds.Base != nil {
		id = strings.TrimSpace(ds.Base.Identifier)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return Record{ID: id, Dataset: ds}
}
