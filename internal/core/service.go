package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/emailclean/internal/config"
	"github.com/JonMunkholm/emailclean/internal/csv"
	"github.com/JonMunkholm/emailclean/internal/dataset"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/logging"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/report"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

var (
	// ErrNoFile is returned when a clean request carries no input.
	ErrNoFile = errors.New("no file provided")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrRunNotFound is returned for unknown or expired run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// Run sources recorded in history.
const (
	SourceCLI = "cli"
	SourceWeb = "web"
)

// Service runs the cleaning pipeline on uploaded or local files, keeps the
// results of recent runs for download and records every run in history.
type Service struct {
	pipeline  *pipeline.Pipeline
	catalogue rules.Catalogue
	encoding  csv.Encoding
	store     history.Store
	limiter   *RunLimiter

	timeout   time.Duration
	retention time.Duration
	listLimit int
	now       func() time.Time

	mu   sync.RWMutex
	runs map[uuid.UUID]*RunResult
}

// RunResult holds a finished run: its summary plus the data needed to
// produce the kept and removed files.
type RunResult struct {
	Run       history.Run   `json:"run"`
	Stats     csv.ReadStats `json:"read"`
	ExpiresAt time.Time     `json:"expires_at"`

	Kept    dataset.Dataset `json:"-"`
	Removed []string        `json:"-"`
}

// WriteKept writes the kept records as CSV.
func (r *RunResult) WriteKept(w io.Writer) error {
	return csv.WriteDataset(w, r.Kept)
}

// WriteRemoved writes the pattern-filter removals as CSV.
func (r *RunResult) WriteRemoved(w io.Writer) error {
	return csv.WriteRemoved(w, r.Removed)
}

// PipelineResult rebuilds the pipeline.Result of the run.
func (r *RunResult) PipelineResult() pipeline.Result {
	return pipeline.Result{Kept: r.Kept, Removed: r.Removed, Report: r.Run.Report}
}

// CleanRequest describes one file to clean.
type CleanRequest struct {
	FileName string
	Source   string
	Input    io.Reader

	// Encoding overrides the configured input encoding when set.
	Encoding csv.Encoding

	// Sink receives stage reports in addition to the run log.
	Sink pipeline.Sink
}

// NewService builds a Service from configuration. The rule catalogue is read
// from cfg.Rules.File when set, otherwise the built-in catalogue is used.
func NewService(store history.Store, cfg *config.Config) (*Service, error) {
	cat := rules.Default()
	if cfg.Rules.File != "" {
		loaded, err := rules.LoadFile(cfg.Rules.File)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}

	rule, err := pipeline.ParseNameRule(cfg.Rules.NameRule)
	if err != nil {
		return nil, err
	}
	enc, err := csv.ParseEncoding(cfg.Rules.Encoding)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(pipeline.Config{
		Patterns: cat.Patterns(),
		NameRule: rule,
		Compile:  pipeline.CompileOptions{ReportGroups: cfg.Rules.ReportGroups},
	})
	if err != nil {
		return nil, err
	}

	if store == nil {
		store = history.NewMemory()
	}

	return &Service{
		pipeline:  p,
		catalogue: cat,
		encoding:  enc,
		store:     store,
		limiter:   NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		timeout:   cfg.Upload.Timeout,
		retention: cfg.Store.Retention,
		listLimit: cfg.Store.ListLimit,
		now:       time.Now,
		runs:      make(map[uuid.UUID]*RunResult),
	}, nil
}

// Catalogue returns the exclusion rules the service runs with.
func (s *Service) Catalogue() rules.Catalogue {
	return s.catalogue
}

// Clean reads req.Input, runs the pipeline and registers the result.
// Failed runs are recorded in history but not kept for download.
func (s *Service) Clean(ctx context.Context, req CleanRequest) (*RunResult, error) {
	if req.Input == nil {
		return nil, ErrNoFile
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id := uuid.New()
	ctx = logging.ContextWithRunID(ctx, id.String())
	logger := logging.WithFields(ctx, "file", req.FileName, "source", req.Source)

	enc := s.encoding
	if req.Encoding != "" {
		enc = req.Encoding
	}

	run := history.Run{
		ID:        id,
		FileName:  req.FileName,
		Source:    req.Source,
		StartedAt: s.now(),
	}
	logger.Info("run started", "encoding", enc)

	d, stats, err := csv.Read(contextReader{ctx: ctx, r: req.Input}, csv.ReadOptions{Encoding: enc})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.recordFailure(ctx, run, err)
		return nil, fmt.Errorf("reading %s: %w", req.FileName, err)
	}
	if stats.Skipped > 0 {
		logger.Warn("malformed lines skipped", "count", stats.Skipped, "lines", stats.SkippedLines)
	}

	p := s.pipeline.WithSink(report.Multi(report.LogSink{Logger: logger}, req.Sink))
	res, err := p.Run(d)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.recordFailure(ctx, run, err)
		return nil, err
	}

	run.Status = history.StatusDone
	run.FinishedAt = s.now()
	run.Input = res.Report.Input
	run.Kept = res.Report.Kept
	run.Removed = res.Report.RemovedTotal()
	run.Report = res.Report

	result := &RunResult{
		Run:       run,
		Stats:     stats,
		ExpiresAt: run.FinishedAt.Add(s.retention),
		Kept:      res.Kept,
		Removed:   res.Removed,
	}

	if err := s.store.Save(ctx, run); err != nil {
		logger.Error("failed to record run", "error", err)
	}

	s.mu.Lock()
	s.runs[id] = result
	s.mu.Unlock()

	logger.Info("run finished",
		"input", run.Input,
		"kept", run.Kept,
		"removed", run.Removed,
		"pattern_removed", len(res.Removed),
		"duration_ms", run.Duration().Milliseconds(),
	)
	for _, n := range res.Report.Notices() {
		logger.Info("stage notice", "notice", n)
	}

	return result, nil
}

func (s *Service) recordFailure(ctx context.Context, run history.Run, cause error) {
	run.Status = history.StatusFailed
	run.Error = cause.Error()
	run.FinishedAt = s.now()

	logger := logging.FromContext(ctx)
	logger.Warn("run failed", "error", cause, "code", MapError(cause).Code)

	// The run context may be the reason for the failure, so the record is
	// written without it.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.Save(saveCtx, run); err != nil {
		logger.Error("failed to record run", "error", err)
	}
}

// Result returns a registered run that has not expired.
func (s *Service) Result(id uuid.UUID) (*RunResult, error) {
	s.mu.RLock()
	res, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok || !s.now().Before(res.ExpiresAt) {
		return nil, ErrRunNotFound
	}
	return res, nil
}

// Summary returns the history record for id. Runs whose files expired are
// still found as long as the store keeps them.
func (s *Service) Summary(ctx context.Context, id uuid.UUID) (history.Run, error) {
	if res, err := s.Result(id); err == nil {
		return res.Run, nil
	}
	return s.store.Get(ctx, id)
}

// History lists recent runs, newest first.
func (s *Service) History(ctx context.Context) ([]history.Run, error) {
	return s.store.List(ctx, s.listLimit)
}

// LimiterStatus returns the current run limiter state.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until all active runs complete or ctx is cancelled.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// contextReader fails reads once ctx is done, so a slow or stalled upload
// stops at the next read after the run deadline.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
