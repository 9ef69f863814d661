package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/JonMunkholm/emailclean/internal/csv"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/report"
)

// Encodings offered by the upload form, in display order.
var Encodings = []csv.Encoding{csv.EncodingLatin1, csv.EncodingWindows1252, csv.EncodingUTF8}

// UploadPageParams holds the data for the upload page.
type UploadPageParams struct {
	Runs            []history.Run
	DefaultEncoding csv.Encoding
	MaxFileSize     int64
	PatternCount    int
	NameRule        string
}

// UploadPage renders the upload form followed by recent runs.
func UploadPage(p UploadPageParams) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)

		h.raw(`<section><h2>Clean a contact file</h2>`)
		h.raw(`<form method="post" action="/runs" enctype="multipart/form-data">`)
		h.raw(`<p><input type="file" name="file" accept=".csv,text/csv" required></p>`)
		h.raw(`<p><label>Encoding <select name="encoding">`)
		for _, enc := range Encodings {
			selected := ""
			if enc == p.DefaultEncoding {
				selected = " selected"
			}
			h.rawf(`<option value="%s"%s>%s</option>`, string(enc), selected, string(enc))
		}
		h.raw(`</select></label></p>`)
		h.raw(`<p><button type="submit">Clean</button></p></form>`)
		h.rawf(`<p class="muted">%d exclusion patterns, name rule %s, files up to %s.</p>`,
			p.PatternCount, p.NameRule, formatBytes(p.MaxFileSize))
		h.raw(`</section>`)

		h.component(RunTable(p.Runs))
		return h.err
	})
	return Layout("Upload", body)
}

// RunTable renders the run history.
func RunTable(runs []history.Run) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<section><h2>Recent runs</h2>`)
		if len(runs) == 0 {
			h.raw(`<p class="muted">No runs yet.</p></section>`)
			return h.err
		}

		h.raw(`<table><thead><tr><th>File</th><th>Started</th><th>Status</th>`)
		h.raw(`<th class="num">Input</th><th class="num">Kept</th><th class="num">Removed</th></tr></thead><tbody>`)
		for _, run := range runs {
			h.raw(`<tr>`)
			h.rawf(`<td><a href="%s">%s</a></td>`, runURL(run.ID, ""), run.FileName)
			h.rawf(`<td>%s</td>`, formatTime(run.StartedAt))
			if run.Status == history.StatusFailed {
				h.rawf(`<td class="failed" title="%s">failed</td>`, run.Error)
			} else {
				h.rawf(`<td>%s</td>`, string(run.Status))
			}
			h.rawf(`<td class="num">%d</td><td class="num">%d</td><td class="num">%d</td>`,
				run.Input, run.Kept, run.Removed)
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></section>`)
		return h.err
	})
}

// RunPageParams holds the data for a run result page.
type RunPageParams struct {
	Run     history.Run
	Stats   csv.ReadStats
	Removed []string

	// Downloadable is false once the result files expired.
	Downloadable bool
	ExpiresAt    time.Time
	SampleSize   int
}

// RunPage renders the report of one run with download links.
func RunPage(p RunPageParams) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		run := p.Run

		h.rawf(`<section><h2>%s</h2>`, run.FileName)
		h.rawf(`<p class="muted">Run %s, started %s, took %s.</p>`,
			run.ID.String(), formatTime(run.StartedAt), run.Duration().Round(time.Millisecond).String())

		if run.Status == history.StatusFailed {
			h.component(ErrorAlert("The run failed", run.Error, ""))
			h.raw(`</section>`)
			return h.err
		}

		h.raw(`<table><tbody>`)
		h.rawf(`<tr><th>Initial records</th><td class="num">%d</td></tr>`, run.Input)
		h.rawf(`<tr><th>Kept</th><td class="num">%d</td></tr>`, run.Kept)
		h.rawf(`<tr><th>Removed</th><td class="num">%d</td></tr>`, run.Removed)
		if p.Stats.Skipped > 0 {
			h.rawf(`<tr><th>Malformed lines skipped</th><td class="num">%d</td></tr>`, p.Stats.Skipped)
		}
		h.raw(`</tbody></table>`)

		if p.Downloadable {
			h.rawf(`<p><a href="%s">Download kept.csv</a> | <a href="%s">Download removed.csv</a>`,
				runURL(run.ID, "/kept.csv"), runURL(run.ID, "/removed.csv"))
			h.rawf(` <span class="muted">(available until %s)</span></p>`, formatTime(p.ExpiresAt))
		} else {
			h.raw(`<p class="muted">The result files of this run have expired.</p>`)
		}
		h.raw(`</section>`)

		h.component(StageTable(run.Report))
		if p.Downloadable {
			h.component(RemovedSample(p.Removed, p.SampleSize))
		}
		return h.err
	})
	return Layout(p.Run.FileName, body)
}

// StageTable renders the per-stage counts of a report.
func StageTable(rep pipeline.Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<section><h2>Stages</h2><table><thead><tr><th>Stage</th>`)
		h.raw(`<th class="num">Before</th><th class="num">After</th><th class="num">Removed</th></tr></thead><tbody>`)
		for _, sr := range rep.Stages {
			if sr.Skipped {
				h.rawf(`<tr><td>%s</td><td colspan="3" class="skipped">%s</td></tr>`,
					report.StageLabel(sr.Stage), sr.Notice)
				continue
			}
			h.rawf(`<tr><td>%s</td><td class="num">%d</td><td class="num">%d</td><td class="num">%d</td></tr>`,
				report.StageLabel(sr.Stage), sr.Before, sr.After, sr.Removed)
		}
		h.raw(`</tbody></table></section>`)
		return h.err
	})
}

// RemovedSample lists the first n addresses excluded by pattern.
func RemovedSample(removed []string, n int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.rawf(`<section><h2>Removed by pattern (%d)</h2>`, len(removed))
		if len(removed) == 0 {
			h.raw(`<p class="muted">None.</p></section>`)
			return h.err
		}
		if n <= 0 || n > len(removed) {
			n = len(removed)
		}
		h.raw(`<ul>`)
		for _, addr := range removed[:n] {
			h.rawf(`<li><code>%s</code></li>`, addr)
		}
		h.raw(`</ul>`)
		if rest := len(removed) - n; rest > 0 {
			h.rawf(`<p class="muted">... and %d more</p>`, rest)
		}
		h.raw(`</section>`)
		return h.err
	})
}

func runURL(id uuid.UUID, suffix string) templ.SafeURL {
	if suffix == "" {
		return templ.SafeURL("/runs/" + id.String())
	}
	return templ.SafeURL("/api/runs/" + id.String() + suffix)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.0f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
