package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/emailclean/internal/pipeline"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRun(offset time.Duration, name string) Run {
	start := base.Add(offset)
	return Run{
		ID:         uuid.New(),
		FileName:   name,
		Source:     "cli",
		Status:     StatusDone,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Input:      9,
		Kept:       1,
		Removed:    8,
		Report: pipeline.Report{
			Input: 9,
			Kept:  1,
			Stages: []pipeline.StageReport{
				{Stage: pipeline.StageNullGuard, Before: 9, After: 8, Removed: 1},
				{Stage: pipeline.StageFrequency, Before: 7, After: 2, Removed: 5, OverThreshold: 1},
				{Stage: pipeline.StageNames, Before: 2, After: 2, Skipped: true, Notice: "column NOMBRES not present; names left unchanged"},
			},
		},
	}
}

func assertSameRun(t *testing.T, want, got Run) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.FileName, got.FileName)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Error, got.Error)
	assert.True(t, want.StartedAt.Equal(got.StartedAt), "started_at %v != %v", want.StartedAt, got.StartedAt)
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt), "finished_at %v != %v", want.FinishedAt, got.FinishedAt)
	assert.Equal(t, want.Input, got.Input)
	assert.Equal(t, want.Kept, got.Kept)
	assert.Equal(t, want.Removed, got.Removed)
	assert.Equal(t, want.Report, got.Report)
}

// exerciseStore runs the behavior every Store must share.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	older := sampleRun(0, "enero.csv")
	newer := sampleRun(time.Hour, "febrero.csv")
	failed := sampleRun(2*time.Hour, "roto.csv")
	failed.Status = StatusFailed
	failed.Error = "EMAIL column missing"

	for _, r := range []Run{older, newer, failed} {
		require.NoError(t, s.Save(ctx, r))
	}

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(ctx, newer.ID)
		require.NoError(t, err)
		assertSameRun(t, newer, got)

		got, err = s.Get(ctx, failed.ID)
		require.NoError(t, err)
		assertSameRun(t, failed, got)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		runs, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, failed.ID, runs[0].ID)
		assert.Equal(t, newer.ID, runs[1].ID)
		assert.Equal(t, older.ID, runs[2].ID)

		runs, err = s.List(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("save replaces", func(t *testing.T) {
		updated := older
		updated.Kept = 3
		require.NoError(t, s.Save(ctx, updated))

		got, err := s.Get(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Kept)

		runs, err := s.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 3)
	})

	t.Run("prune", func(t *testing.T) {
		n, err := s.Prune(ctx, base.Add(90*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		runs, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, failed.ID, runs[0].ID)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	run := sampleRun(0, "persistido.csv")
	require.NoError(t, s.Save(ctx, run))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assertSameRun(t, run, got)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("EMAILCLEAN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("EMAILCLEAN_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, url, PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, `TRUNCATE clean_runs`)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "", "", PoolConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, "SQLite", filepath.Join(t.TempDir(), "h.db"), PoolConfig{})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "sqlite", "", PoolConfig{})
	assert.Error(t, err)

	_, err = Open(ctx, "postgres", "", PoolConfig{})
	assert.Error(t, err)

	_, err = Open(ctx, "mongodb", "x", PoolConfig{})
	assert.Error(t, err)
}

func TestRun_Duration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, sampleRun(0, "x.csv").Duration())
}
