package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/emailclean/internal/dataset"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

var scenarioColumns = []string{"ID", dataset.ColumnEmail, dataset.ColumnNames, dataset.ColumnFlag}

func row(id string, email dataset.Value, name, flag string) dataset.Record {
	return dataset.Record{dataset.Text(id), email, dataset.Text(name), dataset.Text(flag)}
}

// scenario builds nine rows: five copies of one address (written with
// different case and spacing), one null address, one flagged record, one
// pattern match and one clean record.
func scenario() dataset.Dataset {
	return dataset.MustNew(scenarioColumns, []dataset.Record{
		row("1", dataset.Text("repetido@gmail.com"), "JUAN", "N"),
		row("2", dataset.Text(" Repetido@Gmail.com"), "JUAN", "N"),
		row("3", dataset.Null(), "SIN CORREO", "N"),
		row("4", dataset.Text("REPETIDO@gmail.com "), "JUAN", "N"),
		row("5", dataset.Text("a@@b.com"), "ANA", "N"),
		row("6", dataset.Text("repetido @gmail.com"), "JUAN", "N"),
		row("7", dataset.Text("flag.user@gmail.com"), "PEDRO", "Y"),
		row("8", dataset.Text("repetido@gmail.com"), "JUAN", "N"),
		row("9", dataset.Text("Maria.Lopez@gmail.com"), "MA Lopez", "y"),
	})
}

func newDefault(t *testing.T, rule NameRule, sink Sink) *Pipeline {
	t.Helper()
	p, err := New(Config{Patterns: rules.Default().Patterns(), NameRule: rule, Sink: sink})
	require.NoError(t, err)
	return p
}

func TestRun_Scenario(t *testing.T) {
	var seen []Stage
	p := newDefault(t, "", SinkFunc(func(r StageReport) { seen = append(seen, r.Stage) }))

	res, err := p.Run(scenario())
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageNullGuard, StageNormalize, StagePatterns, StageFrequency, StageNames, StageFlag}, seen)

	require.Equal(t, 1, res.Kept.Len())
	assert.Equal(t, dataset.Record{
		dataset.Text("9"),
		dataset.Text("maria.lopez@gmail.com"),
		dataset.Text("MARIA"),
		dataset.Text("y"),
	}, res.Kept.Row(0))

	assert.Equal(t, []string{"a@@b.com"}, res.Removed)

	rep := res.Report
	assert.Equal(t, 9, rep.Input)
	assert.Equal(t, 1, rep.Kept)

	null, _ := rep.Stage(StageNullGuard)
	assert.Equal(t, 1, null.Removed)
	assert.Equal(t, 8, null.After)

	pat, _ := rep.Stage(StagePatterns)
	assert.Equal(t, 1, pat.Removed)

	freq, _ := rep.Stage(StageFrequency)
	assert.Equal(t, 1, freq.OverThreshold)
	assert.Equal(t, 5, freq.Removed)

	names, _ := rep.Stage(StageNames)
	assert.Zero(t, names.Filled)

	flag, _ := rep.Stage(StageFlag)
	assert.Equal(t, 2, flag.Before)
	assert.Equal(t, 1, flag.Flagged)
	assert.Equal(t, 1, flag.After)

	assert.Equal(t, rep.Input, rep.Kept+rep.RemovedTotal())
	assert.Empty(t, rep.Notices())
}

func TestRun_DoesNotModifyInput(t *testing.T) {
	in := scenario()
	before := in.Strings()

	_, err := newDefault(t, "", nil).Run(in)
	require.NoError(t, err)

	assert.Equal(t, before, in.Strings())
}

func TestRun_FrequencyBoundary(t *testing.T) {
	var vals []string
	vals = append(vals, repeat("cinco@gmail.com", 5)...)
	vals = append(vals, repeat("cuatro@gmail.com", 4)...)

	res, err := newDefault(t, "", nil).Run(emails(vals...))
	require.NoError(t, err)

	assert.Equal(t, repeat("cuatro@gmail.com", 4), columnStrings(res.Kept, 0))
	assert.Empty(t, res.Removed, "frequency removals are not listed")
}

func TestRun_FrequencyCountsNormalizedAddresses(t *testing.T) {
	// Five rows share an address but two of them carry a space inside,
	// which normalization removes, so all five count together.
	vals := []string{"dup@gmail.com", "dup@gmail.com", "dup@gmail.com", "du p@gmail.com", "dup@ gmail.com"}

	res, err := newDefault(t, "", nil).Run(emails(vals...))
	require.NoError(t, err)
	assert.Zero(t, res.Kept.Len())
}

func TestRun_MissingEmailColumn(t *testing.T) {
	d := dataset.MustNew([]string{"CORREO"}, []dataset.Record{{dataset.Text("a@x.com")}})

	_, err := newDefault(t, "", nil).Run(d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingEmailColumn))

	var serr *SchemaError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, []string{"CORREO"}, serr.Columns)
}

func TestRun_OptionalColumnsMissing(t *testing.T) {
	res, err := newDefault(t, "", nil).Run(emails("maria.lopez@gmail.com", "MARIA.LOPEZ@gmail.com"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Kept.Len())
	notices := res.Report.Notices()
	require.Len(t, notices, 2)
	assert.Contains(t, notices[0], dataset.ColumnNames)
	assert.Contains(t, notices[1], dataset.ColumnFlag)
}

func TestRun_EmptyDataset(t *testing.T) {
	d := dataset.MustNew(scenarioColumns, nil)
	res, err := newDefault(t, "", nil).Run(d)
	require.NoError(t, err)
	assert.Zero(t, res.Kept.Len())
	assert.Empty(t, res.Removed)
	assert.Len(t, res.Report.Stages, 6)
}

func TestRun_InvalidPattern(t *testing.T) {
	_, err := Run(emails("a@x.com"), []string{"[broken"})
	var perr *PatternError
	assert.True(t, errors.As(err, &perr))
}

func TestRun_CountsAddUp(t *testing.T) {
	// Deterministic mix of clean, junk, repeated, flagged and null rows.
	var rows []dataset.Record
	for i := 0; i < 200; i++ {
		var email dataset.Value
		switch {
		case i%17 == 0:
			email = dataset.Null()
		case i%11 == 0:
			email = dataset.Text(fmt.Sprintf("prueba%d@gmail.com", i))
		case i%7 == 0:
			email = dataset.Text("comun@gmail.com")
		case i%5 == 0:
			email = dataset.Text(fmt.Sprintf("grupo%d@gmail.com", i%3))
		default:
			email = dataset.Text(fmt.Sprintf("cliente.%03d@gmail.com", i))
		}
		flag := "N"
		if i%13 == 0 {
			flag = "Y"
		}
		rows = append(rows, row(fmt.Sprint(i), email, "NOMBRE", flag))
	}
	d := dataset.MustNew(scenarioColumns, rows)

	res, err := newDefault(t, "", nil).Run(d)
	require.NoError(t, err)

	rep := res.Report
	assert.Equal(t, d.Len(), rep.Kept+rep.RemovedTotal())

	pat, _ := rep.Stage(StagePatterns)
	assert.Equal(t, pat.Removed, len(res.Removed))
}

func TestRun_Idempotent(t *testing.T) {
	p := newDefault(t, NameRuleToken, nil)

	first, err := p.Run(scenario())
	require.NoError(t, err)

	second, err := p.Run(first.Kept)
	require.NoError(t, err)

	assert.Equal(t, first.Kept.Strings(), second.Kept.Strings())
	assert.Empty(t, second.Removed)
	assert.Zero(t, second.Report.RemovedTotal())
}

func TestRun_SubstringRuleRewritesNamesOnRerun(t *testing.T) {
	// Substring expansion is not idempotent: "MARIA" contains "MA".
	// Membership and addresses stay stable.
	p := newDefault(t, NameRuleSubstring, nil)

	first, err := p.Run(scenario())
	require.NoError(t, err)
	second, err := p.Run(first.Kept)
	require.NoError(t, err)

	assert.Equal(t, columnStrings(first.Kept, 1), columnStrings(second.Kept, 1))
	assert.Equal(t, "MARIARIA", second.Kept.Value(0, 2).String)
}
