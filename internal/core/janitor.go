package core

// janitor.go expires finished runs.
//
// Downloadable results live in memory for the configured retention and
// history records are pruned on the same schedule. The janitor is
// long-running and context-aware; it logs failures but never stops the
// application.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is how often expired runs are removed.
const DefaultJanitorInterval = 10 * time.Minute

// StartJanitor removes expired runs immediately, then every interval,
// until ctx is cancelled.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	slog.Info("run janitor started", "interval", interval, "retention", s.retention)

	s.Expire(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("run janitor stopped")
			return
		case <-ticker.C:
			s.Expire(ctx)
		}
	}
}

// Expire drops downloadable results past their expiry and prunes history
// records older than the retention. It returns how many results were
// dropped from memory.
func (s *Service) Expire(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	dropped := 0
	for id, res := range s.runs {
		if !now.Before(res.ExpiresAt) {
			delete(s.runs, id)
			dropped++
		}
	}
	s.mu.Unlock()

	pruned, err := s.store.Prune(ctx, now.Add(-s.retention))
	if err != nil {
		slog.Error("history prune failed", "error", err)
	}

	if dropped > 0 || pruned > 0 {
		slog.Info("expired runs", "results_dropped", dropped, "history_pruned", pruned)
	}
	return dropped
}
