package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  file_name TEXT NOT NULL,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  error TEXT,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  input INTEGER NOT NULL,
  kept INTEGER NOT NULL,
  removed INTEGER NOT NULL,
  report TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and initializes the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite history store needs a database path")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, run Run) error {
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}

	var runErr *string
	if run.Error != "" {
		runErr = &run.Error
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (id, file_name, source, status, error, started_at, finished_at, input, kept, removed, report)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  file_name = excluded.file_name,
  source = excluded.source,
  status = excluded.status,
  error = excluded.error,
  started_at = excluded.started_at,
  finished_at = excluded.finished_at,
  input = excluded.input,
  kept = excluded.kept,
  removed = excluded.removed,
  report = excluded.report`,
		run.ID.String(),
		run.FileName,
		run.Source,
		string(run.Status),
		runErr,
		formatSQLiteTime(run.StartedAt),
		formatSQLiteTime(run.FinishedAt),
		run.Input,
		run.Kept,
		run.Removed,
		string(report),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

const sqliteColumns = `id, file_name, source, status, error, started_at, finished_at, input, kept, removed, report`

func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM runs WHERE id = ?`, id.String())
	run, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + sqliteColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLite) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE finished_at < ?`, formatSQLiteTime(before))
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row rowScanner) (Run, error) {
	var (
		run               Run
		id, status        string
		runErr            sql.NullString
		started, finished string
		report            string
	)
	err := row.Scan(&id, &run.FileName, &run.Source, &status, &runErr,
		&started, &finished, &run.Input, &run.Kept, &run.Removed, &report)
	if err != nil {
		return Run{}, err
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.Status = Status(status)
	run.Error = runErr.String
	if run.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
		return Run{}, fmt.Errorf("invalid started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(sqliteTimeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("invalid finished_at: %w", err)
	}
	if err := json.Unmarshal([]byte(report), &run.Report); err != nil {
		return Run{}, fmt.Errorf("decoding run report: %w", err)
	}
	return run, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
