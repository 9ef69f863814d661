package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/emailclean/internal/dataset"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

func sampleResult(t *testing.T, sink pipeline.Sink) pipeline.Result {
	t.Helper()

	var rows []dataset.Record
	for i := 0; i < 5; i++ {
		rows = append(rows, dataset.Record{dataset.Text("same@gmail.com")})
	}
	for i := 0; i < 12; i++ {
		rows = append(rows, dataset.Record{dataset.Text(fmt.Sprintf("x%d@@gmail.com", i))})
	}
	rows = append(rows, dataset.Record{dataset.Text("maria.lopez@gmail.com")})
	d := dataset.MustNew([]string{dataset.ColumnEmail}, rows)

	p, err := pipeline.New(pipeline.Config{Patterns: rules.Default().Patterns(), Sink: sink})
	require.NoError(t, err)
	res, err := p.Run(d)
	require.NoError(t, err)
	return res
}

func TestPrinter_StageDone(t *testing.T) {
	var buf bytes.Buffer
	pr := NewPrinter(&buf, true)

	sampleResult(t, pr)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[2], "Excluded by pattern")
	assert.Contains(t, lines[2], "18 -> 6 (-12)")
	assert.Contains(t, lines[4], "skipped")
	assert.NotContains(t, buf.String(), "\x1b[", "no escape codes when color is off")
}

func TestPrinter_Summary(t *testing.T) {
	res := sampleResult(t, nil)

	var buf bytes.Buffer
	pr := NewPrinter(&buf, true)
	pr.Summary(res)
	out := buf.String()

	assert.Contains(t, out, "Initial records")
	assert.Contains(t, out, "18")
	assert.Contains(t, out, "Removed by pattern (12)")
	assert.Contains(t, out, "x0@@gmail.com")
	assert.Contains(t, out, "... and 2 more")
	assert.NotContains(t, out, "x11@@gmail.com")
	assert.Contains(t, out, "1 addresses over threshold")
	assert.Contains(t, out, "Notices")
	assert.Contains(t, out, dataset.ColumnFlag)
}

func TestPrinter_SummaryWithoutSample(t *testing.T) {
	res := sampleResult(t, nil)

	var buf bytes.Buffer
	pr := NewPrinter(&buf, true)
	pr.SampleSize = 0
	pr.Summary(res)

	assert.NotContains(t, buf.String(), "Removed by pattern")
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sampleResult(t, LogSink{Logger: logger})
	out := buf.String()

	assert.Contains(t, out, "stage=pattern_filter")
	assert.Contains(t, out, "over_threshold=1")
	assert.Contains(t, out, "stage skipped")
}

func TestMulti(t *testing.T) {
	var a, b int
	sink := Multi(
		pipeline.SinkFunc(func(pipeline.StageReport) { a++ }),
		nil,
		pipeline.SinkFunc(func(pipeline.StageReport) { b++ }),
	)
	sampleResult(t, sink)

	assert.Equal(t, 6, a)
	assert.Equal(t, 6, b)
}

func TestStageLabel_Unknown(t *testing.T) {
	assert.Equal(t, "custom", StageLabel("custom"))
}
