package pipeline

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/JonMunkholm/emailclean/internal/dataset"
)

// CompileOptions scopes how a pattern catalogue is compiled.
type CompileOptions struct {
	// ReportGroups logs, at debug level, every pattern that contains
	// capturing groups. Groups never affect matching; the notice is off by
	// default and never fatal.
	ReportGroups bool

	// Logger receives the group notices. Defaults to slog.Default().
	Logger *slog.Logger
}

// Matcher tests addresses against the combined alternation of an ordered
// list of exclusion patterns.
type Matcher struct {
	re       *regexp.Regexp
	each     []*regexp.Regexp
	patterns []string
}

// CompilePatterns validates each pattern on its own, then compiles their
// alternation into a single matcher. Matching is case-sensitive and expects
// normalized (lowercase, whitespace-free) input.
//
// An empty list yields a matcher that excludes nothing.
func CompilePatterns(patterns []string, opts CompileOptions) (*Matcher, error) {
	m := &Matcher{patterns: append([]string(nil), patterns...)}
	if len(patterns) == 0 {
		return m, nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parts := make([]string, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &PatternError{Index: i, Pattern: p, Err: err}
		}
		if opts.ReportGroups && re.NumSubexp() > 0 {
			logger.Debug("exclusion pattern has capturing groups",
				"index", i,
				"pattern", p,
				"groups", re.NumSubexp(),
			)
		}
		m.each = append(m.each, re)
		parts[i] = "(?:" + p + ")"
	}

	combined, err := regexp.Compile(strings.Join(parts, "|"))
	if err != nil {
		return nil, &PatternError{Index: -1, Pattern: "<combined>", Err: err}
	}
	m.re = combined
	return m, nil
}

// Match reports whether addr is excluded.
func (m *Matcher) Match(addr string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(addr)
}

// Patterns returns the source patterns in catalogue order.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Explain returns the indexes of the individual patterns that match addr.
// It is slower than Match and meant for diagnostics only.
func (m *Matcher) Explain(addr string) []int {
	var hits []int
	for i, re := range m.each {
		if re.MatchString(addr) {
			hits = append(hits, i)
		}
	}
	return hits
}

// Filter removes every record whose address matches. The matched addresses
// are returned in row order, duplicates included.
func (m *Matcher) Filter(d dataset.Dataset, email int) (dataset.Dataset, []string, StageReport) {
	matched, kept := d.Partition(func(r dataset.Record) bool {
		return m.Match(r[email].String)
	})

	removed := make([]string, 0, matched.Len())
	for _, v := range matched.Column(email) {
		removed = append(removed, v.String)
	}

	return kept, removed, StageReport{
		Stage:   StagePatterns,
		Before:  d.Len(),
		After:   kept.Len(),
		Removed: len(removed),
	}
}
