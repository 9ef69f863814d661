package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig tunes the PostgreSQL connection pool. Zero values keep the
// pgxpool defaults.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS clean_runs (
  id UUID PRIMARY KEY,
  file_name TEXT NOT NULL,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  error TEXT,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  input INTEGER NOT NULL,
  kept INTEGER NOT NULL,
  removed INTEGER NOT NULL,
  report JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clean_runs_started_at ON clean_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_clean_runs_finished_at ON clean_runs(finished_at);
`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to url, verifies the connection and creates the
// runs table if needed.
func OpenPostgres(ctx context.Context, url string, cfg PoolConfig) (*Postgres, error) {
	if url == "" {
		return nil, errors.New("postgres history store needs a connection URL")
	}

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, run Run) error {
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
INSERT INTO clean_runs (id, file_name, source, status, error, started_at, finished_at, input, kept, removed, report)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
  file_name = EXCLUDED.file_name,
  source = EXCLUDED.source,
  status = EXCLUDED.status,
  error = EXCLUDED.error,
  started_at = EXCLUDED.started_at,
  finished_at = EXCLUDED.finished_at,
  input = EXCLUDED.input,
  kept = EXCLUDED.kept,
  removed = EXCLUDED.removed,
  report = EXCLUDED.report`,
		pgtype.UUID{Bytes: [16]byte(run.ID), Valid: true},
		run.FileName,
		run.Source,
		string(run.Status),
		pgtype.Text{String: run.Error, Valid: run.Error != ""},
		run.StartedAt,
		run.FinishedAt,
		run.Input,
		run.Kept,
		run.Removed,
		report,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

const postgresColumns = `id, file_name, source, status, error, started_at, finished_at, input, kept, removed, report`

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+postgresColumns+` FROM clean_runs WHERE id = $1`,
		pgtype.UUID{Bytes: [16]byte(id), Valid: true})
	run, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	return run, nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + postgresColumns + ` FROM clean_runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (p *Postgres) Prune(ctx context.Context, before time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM clean_runs WHERE finished_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanPostgresRun(row pgx.Row) (Run, error) {
	var (
		run    Run
		id     pgtype.UUID
		status string
		runErr pgtype.Text
		report []byte
	)
	err := row.Scan(&id, &run.FileName, &run.Source, &status, &runErr,
		&run.StartedAt, &run.FinishedAt, &run.Input, &run.Kept, &run.Removed, &report)
	if err != nil {
		return Run{}, err
	}

	run.ID = uuid.UUID(id.Bytes)
	run.Status = Status(status)
	run.Error = runErr.String
	if err := json.Unmarshal(report, &run.Report); err != nil {
		return Run{}, fmt.Errorf("decoding run report: %w", err)
	}
	return run, nil
}
