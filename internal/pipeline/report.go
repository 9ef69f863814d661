package pipeline

// Stage identifies one step of the pipeline.
type Stage string

const (
	StageNullGuard Stage = "null_guard"
	StageNormalize Stage = "address_normalizer"
	StagePatterns  Stage = "pattern_filter"
	StageFrequency Stage = "frequency_dedup"
	StageNames     Stage = "name_normalizer"
	StageFlag      Stage = "flag_filter"
)

// StageReport carries the counts a stage emits when it finishes.
//
// Before and After are row counts around the stage. Removed is Before-After
// for exclusion stages and 0 for normalizers. The remaining fields are only
// set by the stage they belong to.
type StageReport struct {
	Stage   Stage  `json:"stage"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
	Removed int    `json:"removed"`
	Skipped bool   `json:"skipped,omitempty"`
	Notice  string `json:"notice,omitempty"`

	// OverThreshold is the number of distinct addresses that occurred more
	// than FrequencyThreshold times (frequency stage).
	OverThreshold int `json:"over_threshold,omitempty"`

	// Flagged is the number of records carrying the exclusion flag (flag stage).
	Flagged int `json:"flagged,omitempty"`

	// Filled is the number of names equal to the fill token after
	// normalization (name stage).
	Filled int `json:"filled,omitempty"`
}

// Sink receives stage reports as the pipeline progresses.
type Sink interface {
	StageDone(StageReport)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(StageReport)

// StageDone implements Sink.
func (f SinkFunc) StageDone(r StageReport) { f(r) }

type discardSink struct{}

func (discardSink) StageDone(StageReport) {}

// Report is the full side channel of one run.
//
// Only the pattern stage records which addresses it removed (Result.Removed).
// The frequency and flag stages report counts only; callers must not assume a
// unified list of every removed record exists.
type Report struct {
	Input  int           `json:"input"`
	Kept   int           `json:"kept"`
	Stages []StageReport `json:"stages"`
}

// Stage returns the report for a given stage.
func (r Report) Stage(s Stage) (StageReport, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr, true
		}
	}
	return StageReport{}, false
}

// RemovedTotal sums rows removed across all stages.
func (r Report) RemovedTotal() int {
	n := 0
	for _, sr := range r.Stages {
		n += sr.Removed
	}
	return n
}

// Notices returns the notices emitted by skipped stages, in stage order.
func (r Report) Notices() []string {
	var out []string
	for _, sr := range r.Stages {
		if sr.Notice != "" {
			out = append(out, sr.Notice)
		}
	}
	return out
}
