// Package report renders pipeline progress and run summaries for people
// (colored terminal text) and for machines (structured logs).
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/JonMunkholm/emailclean/internal/pipeline"
)

// DefaultSampleSize is how many removed addresses a summary lists.
const DefaultSampleSize = 10

var stageLabels = map[pipeline.Stage]string{
	pipeline.StageNullGuard: "Records without email",
	pipeline.StageNormalize: "Addresses normalized",
	pipeline.StagePatterns:  "Excluded by pattern",
	pipeline.StageFrequency: "Repeated addresses",
	pipeline.StageNames:     "Names normalized",
	pipeline.StageFlag:      "Flagged records",
}

// StageLabel returns the human readable name of a stage.
func StageLabel(s pipeline.Stage) string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Printer writes colored text. It implements pipeline.Sink so it can show
// progress while a run is in flight.
type Printer struct {
	out    io.Writer
	colors map[string]*color.Color

	// SampleSize bounds the removed-address list in Summary. Zero hides it.
	SampleSize int
}

// NewPrinter returns a Printer writing to w. With noColor set no escape
// sequences are written, whatever the terminal supports.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		out: w,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"positive": color.New(color.FgGreen),
			"negative": color.New(color.FgRed),
			"warning":  color.New(color.FgYellow),
			"item":     color.New(color.FgCyan),
		},
		SampleSize: DefaultSampleSize,
	}
	if noColor {
		for _, c := range p.colors {
			c.DisableColor()
		}
	}
	return p
}

// StageDone prints one progress line per finished stage.
func (p *Printer) StageDone(sr pipeline.StageReport) {
	label := fmt.Sprintf("%-24s", StageLabel(sr.Stage))

	switch {
	case sr.Skipped:
		p.colors["warning"].Fprintf(p.out, "  - %s skipped\n", label)
	case sr.Removed > 0:
		p.colors["negative"].Fprintf(p.out, "  - %s %d -> %d (-%d)\n", label, sr.Before, sr.After, sr.Removed)
	default:
		p.colors["positive"].Fprintf(p.out, "  - %s %d -> %d\n", label, sr.Before, sr.After)
	}
}

// Summary prints the end-of-run report: counts per stage, the first
// removed addresses and any notices.
func (p *Printer) Summary(res pipeline.Result) {
	rep := res.Report

	p.colors["title"].Fprintln(p.out, "Cleaning report")
	fmt.Fprintln(p.out, strings.Repeat("=", 40))
	fmt.Fprintf(p.out, "%-28s %d\n", "Initial records", rep.Input)

	p.colors["header"].Fprintln(p.out, "\nStages")
	for _, sr := range rep.Stages {
		fmt.Fprintf(p.out, "%-28s %s\n", StageLabel(sr.Stage), stageDetail(sr))
	}

	p.colors["header"].Fprintln(p.out, "\nTotals")
	fmt.Fprintf(p.out, "%-28s %d\n", "Removed", rep.RemovedTotal())
	p.colors["positive"].Fprintf(p.out, "%-28s %d\n", "Kept", rep.Kept)

	if p.SampleSize > 0 && len(res.Removed) > 0 {
		p.colors["header"].Fprintf(p.out, "\nRemoved by pattern (%d)\n", len(res.Removed))
		n := min(p.SampleSize, len(res.Removed))
		for _, addr := range res.Removed[:n] {
			p.colors["item"].Fprintf(p.out, "  %s\n", addr)
		}
		if len(res.Removed) > n {
			fmt.Fprintf(p.out, "  ... and %d more\n", len(res.Removed)-n)
		}
	}

	if notices := rep.Notices(); len(notices) > 0 {
		p.colors["header"].Fprintln(p.out, "\nNotices")
		for _, n := range notices {
			p.colors["warning"].Fprintf(p.out, "  %s\n", n)
		}
	}
}

// Files prints where the run's artifacts were written.
func (p *Printer) Files(paths ...string) {
	p.colors["header"].Fprintln(p.out, "\nFiles")
	for _, path := range paths {
		fmt.Fprintf(p.out, "  %s\n", path)
	}
}

func stageDetail(sr pipeline.StageReport) string {
	if sr.Skipped {
		return "skipped"
	}
	switch sr.Stage {
	case pipeline.StageFrequency:
		return fmt.Sprintf("-%d (%d addresses over threshold)", sr.Removed, sr.OverThreshold)
	case pipeline.StageNames:
		return fmt.Sprintf("%d filled", sr.Filled)
	case pipeline.StageNormalize:
		return fmt.Sprintf("%d rows", sr.After)
	case pipeline.StageFlag:
		return fmt.Sprintf("-%d", sr.Flagged)
	default:
		return fmt.Sprintf("-%d", sr.Removed)
	}
}
