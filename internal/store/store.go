// Package store is the boundary to the document database holding object
// records. Backends: MongoDB (the production store), SQLite (single-file
// deployments) and an in-memory store for tests and dry runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/config"
)

var (
	// ErrNotFound is returned by FindOne when no record has the identifier.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRecord is returned by Insert for records without a type.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrDuplicateID is returned by Insert when the identifier is taken.
	ErrDuplicateID = errors.New("duplicate record id")
)

// Filter selects the records of one type that are (Template) or are not
// templates. A record is a template when its register field is "0"; records
// without a register field are never templates.
type Filter struct {
	Type     string
	Template bool
}

// Matches applies the filter to a record in memory.
func (f Filter) Matches(r *api.Record) bool {
	return r.Meta.Type == f.Type && r.IsTemplate() == f.Template
}

// Store is the query/insert surface consumed by the filesystem and ingest.
// Returned records are copies owned by the caller.
type Store interface {
	FindOne(ctx context.Context, id string) (*api.Record, error)
	Find(ctx context.Context, f Filter) ([]*api.Record, error)
	// All returns every record; used by queries that span types.
	All(ctx context.Context) ([]*api.Record, error)
	// Insert persists rec and returns its identifier. An empty rec.ID is
	// assigned by the store.
	Insert(ctx context.Context, rec *api.Record) (string, error)
	Close() error
}

// Open connects to the backend named in cfg.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		return OpenMongo(ctx, cfg.Host, cfg.DB, cfg.Collection)
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath(), cfg.Collection)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func checkInsert(rec *api.Record) error {
	if rec == nil || rec.Meta.Type == "" {
		return fmt.Errorf("%w: empty type", ErrInvalidRecord)
	}
	return nil
}
