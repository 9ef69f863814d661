package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a Store kept in process memory.
type Memory struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]Run
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[uuid.UUID]Run)}
}

func (m *Memory) Save(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	out := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, run := range m.runs {
		if run.FinishedAt.Before(before) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
