package report

import (
	"log/slog"

	"github.com/JonMunkholm/emailclean/internal/pipeline"
)

// LogSink logs every stage report as a structured record.
type LogSink struct {
	Logger *slog.Logger
}

// StageDone implements pipeline.Sink.
func (s LogSink) StageDone(sr pipeline.StageReport) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if sr.Skipped {
		logger.Warn("stage skipped", "stage", sr.Stage, "notice", sr.Notice)
		return
	}

	attrs := []any{
		"stage", sr.Stage,
		"before", sr.Before,
		"after", sr.After,
		"removed", sr.Removed,
	}
	switch sr.Stage {
	case pipeline.StageFrequency:
		attrs = append(attrs, "over_threshold", sr.OverThreshold)
	case pipeline.StageFlag:
		attrs = append(attrs, "flagged", sr.Flagged)
	case pipeline.StageNames:
		attrs = append(attrs, "filled", sr.Filled)
	}
	logger.Debug("stage done", attrs...)
}

// Multi fans stage reports out to every non-nil sink, in order.
func Multi(sinks ...pipeline.Sink) pipeline.Sink {
	var live []pipeline.Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return pipeline.SinkFunc(func(sr pipeline.StageReport) {
		for _, s := range live {
			s.StageDone(sr)
		}
	})
}
