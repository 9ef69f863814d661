// Package history persists summaries of past cleaning runs.
//
// A run summary holds counts and the per-stage report, never the records
// themselves. Three stores are available: in-memory (default, lost on
// restart), SQLite for single-host deployments and PostgreSQL.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/emailclean/internal/pipeline"
)

// ErrNotFound is returned by Get when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Status is the terminal state of a run.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID         uuid.UUID       `json:"id"`
	FileName   string          `json:"file_name"`
	Source     string          `json:"source"`
	Status     Status          `json:"status"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Input      int             `json:"input"`
	Kept       int             `json:"kept"`
	Removed    int             `json:"removed"`
	Report     pipeline.Report `json:"report"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store records and retrieves run summaries. Implementations are safe for
// concurrent use.
type Store interface {
	// Save inserts the run, replacing any run with the same ID.
	Save(ctx context.Context, run Run) error

	// Get returns the run with the given ID or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (Run, error)

	// List returns up to limit runs, most recently started first.
	// A limit <= 0 returns every run.
	List(ctx context.Context, limit int) ([]Run, error)

	// Prune deletes runs that finished before the cutoff and reports how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)

	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. dsn is a file path for SQLite and a
// connection URL for PostgreSQL; the memory store ignores it.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "sqlite3":
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres, "postgresql", "pgx":
		s, err := OpenPostgres(ctx, dsn, pool)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}
