// Package pipeline classifies contact records into a kept set and a removed
// set.
//
// Stages run in a fixed order, each a pure function from one Dataset to the
// next:
//
//	null guard -> address normalizer -> pattern filter ->
//	frequency dedup -> name normalizer -> flag filter
//
// The name normalizer and the flag filter depend on optional columns. Whether
// they run is decided once per run from the input schema; a missing column
// turns the stage into a reported no-op, never an error. A missing EMAIL
// column is the only schema problem that stops a run.
//
// Removal tracking is asymmetric on purpose: Result.Removed lists the
// addresses the pattern filter excluded, while the frequency and flag stages
// only report counts in Result.Report.
package pipeline

import (
	"github.com/JonMunkholm/emailclean/internal/dataset"
)

// Config configures a Pipeline.
type Config struct {
	// Patterns is the ordered exclusion catalogue.
	Patterns []string

	// NameRule selects the "MA" expansion mode. Empty means NameRuleSubstring.
	NameRule NameRule

	// Compile scopes pattern compilation diagnostics.
	Compile CompileOptions

	// Sink receives each stage report as soon as the stage finishes.
	Sink Sink
}

// Result is the output of one run.
type Result struct {
	// Kept holds the surviving records, original columns and order.
	Kept dataset.Dataset

	// Removed lists addresses excluded by the pattern filter, in row order,
	// duplicates included.
	Removed []string

	// Report holds the per-stage counts.
	Report Report
}

// Pipeline is a compiled, reusable cleaning pipeline. It holds no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	matcher  *Matcher
	nameRule NameRule
	sink     Sink
}

// New compiles the pattern catalogue and returns a ready pipeline.
func New(cfg Config) (*Pipeline, error) {
	m, err := CompilePatterns(cfg.Patterns, cfg.Compile)
	if err != nil {
		return nil, err
	}

	rule := cfg.NameRule
	if rule == "" {
		rule = NameRuleSubstring
	}

	var sink Sink = discardSink{}
	if cfg.Sink != nil {
		sink = cfg.Sink
	}

	return &Pipeline{matcher: m, nameRule: rule, sink: sink}, nil
}

// Run is a convenience entry point: compile patterns and run once.
func Run(d dataset.Dataset, patterns []string) (Result, error) {
	p, err := New(Config{Patterns: patterns})
	if err != nil {
		return Result{}, err
	}
	return p.Run(d)
}

// WithSink returns a copy of the pipeline reporting to sink.
func (p *Pipeline) WithSink(sink Sink) *Pipeline {
	cp := *p
	if sink == nil {
		sink = discardSink{}
	}
	cp.sink = sink
	return &cp
}

// Matcher exposes the compiled pattern matcher.
func (p *Pipeline) Matcher() *Matcher {
	return p.matcher
}

// Run classifies d. The input is never modified.
func (p *Pipeline) Run(d dataset.Dataset) (Result, error) {
	schema := d.Schema()

	email, ok := schema.Index(dataset.ColumnEmail)
	if !ok {
		return Result{}, &SchemaError{Column: dataset.ColumnEmail, Columns: schema.Columns()}
	}
	names := schema.Lookup(dataset.ColumnNames)
	flag := schema.Lookup(dataset.ColumnFlag)

	rep := Report{Input: d.Len()}
	emit := func(sr StageReport) {
		rep.Stages = append(rep.Stages, sr)
		p.sink.StageDone(sr)
	}

	cur, sr := DropNullEmails(d, email)
	emit(sr)

	cur, sr = NormalizeAddresses(cur, email)
	emit(sr)

	cur, removed, sr := p.matcher.Filter(cur, email)
	emit(sr)

	cur, sr = DropFrequent(cur, email, FrequencyThreshold)
	emit(sr)

	cur, sr = NormalizeNames(cur, names, p.nameRule)
	emit(sr)

	cur, sr = DropFlagged(cur, flag)
	emit(sr)

	rep.Kept = cur.Len()
	return Result{Kept: cur, Removed: removed, Report: rep}, nil
}
