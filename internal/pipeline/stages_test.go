package pipeline

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/emailclean/internal/dataset"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

func emails(vals ...string) dataset.Dataset {
	rows := make([]dataset.Record, len(vals))
	for i, v := range vals {
		rows[i] = dataset.Record{dataset.Text(v)}
	}
	return dataset.MustNew([]string{dataset.ColumnEmail}, rows)
}

func columnStrings(d dataset.Dataset, col int) []string {
	out := make([]string, 0, d.Len())
	for _, v := range d.Column(col) {
		out = append(out, v.String)
	}
	return out
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John.Doe@Mail.COM", "john.doe@mail.com"},
		{"  padded@x.com  ", "padded@x.com"},
		{"inner space@x .com", "innerspace@x.com"},
		{"\tTab@X.com\n", "tab@x.com"},
		{"a \t b@c.d", "ab@c.d"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.in))
		})
	}
}

func TestDropNullEmails(t *testing.T) {
	d := dataset.MustNew([]string{"ID", dataset.ColumnEmail}, []dataset.Record{
		{dataset.Text("1"), dataset.Text("a@x.com")},
		{dataset.Text("2"), dataset.Null()},
		{dataset.Text("3"), dataset.Text("")},
	})

	out, rep := DropNullEmails(d, 1)

	assert.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"1", "3"}, columnStrings(out, 0))
	assert.Equal(t, StageReport{Stage: StageNullGuard, Before: 3, After: 2, Removed: 1}, rep)
}

func TestNormalizeAddresses_LeavesNullAlone(t *testing.T) {
	d := dataset.MustNew([]string{dataset.ColumnEmail}, []dataset.Record{
		{dataset.Text(" A@B.com ")},
		{dataset.Null()},
	})

	out, rep := NormalizeAddresses(d, 0)

	assert.Equal(t, dataset.Text("a@b.com"), out.Value(0, 0))
	assert.Equal(t, dataset.Null(), out.Value(1, 0))
	assert.Equal(t, 0, rep.Removed)
	assert.Equal(t, " A@B.com ", d.Value(0, 0).String, "input must not change")
}

func defaultMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := CompilePatterns(rules.Default().Patterns(), CompileOptions{})
	require.NoError(t, err)
	return m
}

func TestDefaultCatalogue_Excludes(t *testing.T) {
	m := defaultMatcher(t)
	excluded := []string{
		"a@@b.com",
		"john.doe@example.com",
		"test..a@x.com",
		"juan@gmail.com.",
		"sinarroba.com",
		"dos@arrobas@x.com",
		"dummy123@gmail.com",
		"prueba@hotmail.com",
		"no.tiene@gmail.com",
		"notiene@gmail.com",
		"sin_correo@x.com",
		"ab@gmail.com",
		"1@x.com",
		"12345@gmail.com",
		"user@yopmail.com",
		"user@gmial.com",
		"ñandu@x.com",
		"_abc@x.com",
		".abc@x.com",
		"jose@gmail.com",
		"abc@x.com",
		"zzz@x.com",
		"user.com@x.com",
		"a,b@x.com",
		"x.no.da@gmail.com",
		".ángela@x.com",
		"-abc@x.com",
		"",
	}
	for _, addr := range excluded {
		assert.True(t, m.Match(addr), "expected %q to be excluded", addr)
	}
}

func TestDefaultCatalogue_Keeps(t *testing.T) {
	m := defaultMatcher(t)
	kept := []string{
		"maria.lopez@gmail.com",
		"carlos.ruiz@hotmail.com",
		"jose.perez@gmail.com",
		"ana.torres@outlook.com",
		"abc1@empresa.mx",
		// Accented letters are word characters.
		"ángela@gmail.com",
		"élise.martin@hotmail.com",
		"ó@x.com",
		"aéno.da@gmail.com",
	}
	for _, addr := range kept {
		assert.False(t, m.Match(addr), "expected %q to be kept (hits %v)", addr, m.Explain(addr))
	}
}

func TestMatcher_Explain(t *testing.T) {
	m := defaultMatcher(t)
	hits := m.Explain("a@@b.com")
	assert.Contains(t, hits, 0)
	assert.Contains(t, hits, 7)
	assert.Empty(t, m.Explain("maria.lopez@gmail.com"))
}

func TestCompilePatterns_Empty(t *testing.T) {
	m, err := CompilePatterns(nil, CompileOptions{})
	require.NoError(t, err)
	assert.False(t, m.Match(""))
	assert.False(t, m.Match("a@@b.com"))
}

func TestCompilePatterns_InvalidPattern(t *testing.T) {
	_, err := CompilePatterns([]string{"@@", "(unclosed"}, CompileOptions{})
	require.Error(t, err)

	var perr *PatternError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Index)
	assert.Equal(t, "(unclosed", perr.Pattern)
}

func TestCompilePatterns_ReportGroupsIsScoped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := CompilePatterns([]string{"(a)", "b"}, CompileOptions{Logger: logger})
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "group notices are off by default")

	_, err = CompilePatterns([]string{"(a)", "b"}, CompileOptions{ReportGroups: true, Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "capturing groups")
	assert.Contains(t, buf.String(), "index=0")
	assert.NotContains(t, buf.String(), "index=1")
}

func TestMatcher_Filter_KeepsOrderAndDuplicates(t *testing.T) {
	m, err := CompilePatterns([]string{"@@"}, CompileOptions{})
	require.NoError(t, err)

	d := emails("x@@y.com", "ok@y.com", "x@@y.com", "fine@y.com", "z@@y.com")
	kept, removed, rep := m.Filter(d, 0)

	assert.Equal(t, []string{"ok@y.com", "fine@y.com"}, columnStrings(kept, 0))
	assert.Equal(t, []string{"x@@y.com", "x@@y.com", "z@@y.com"}, removed)
	assert.Equal(t, StageReport{Stage: StagePatterns, Before: 5, After: 2, Removed: 3}, rep)
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestDropFrequent_Boundary(t *testing.T) {
	var vals []string
	vals = append(vals, repeat("five@x.com", 5)...)
	vals = append(vals, repeat("four@x.com", 4)...)
	vals = append(vals, "one@x.com")
	vals = append(vals, repeat("six@x.com", 6)...)

	out, rep := DropFrequent(emails(vals...), 0, FrequencyThreshold)

	got := columnStrings(out, 0)
	assert.Equal(t, append(repeat("four@x.com", 4), "one@x.com"), got)
	assert.Equal(t, 2, rep.OverThreshold)
	assert.Equal(t, 11, rep.Removed)
	assert.Equal(t, 16, rep.Before)
	assert.Equal(t, 5, rep.After)
}

func TestDropFrequent_KeepsOrder(t *testing.T) {
	out, rep := DropFrequent(emails("b@x.com", "a@x.com", "b@x.com"), 0, FrequencyThreshold)
	assert.Equal(t, []string{"b@x.com", "a@x.com", "b@x.com"}, columnStrings(out, 0))
	assert.Zero(t, rep.OverThreshold)
	assert.Zero(t, rep.Removed)
}

func TestDropFlagged(t *testing.T) {
	d := dataset.MustNew([]string{dataset.ColumnEmail, dataset.ColumnFlag}, []dataset.Record{
		{dataset.Text("a@x.com"), dataset.Text("Y")},
		{dataset.Text("b@x.com"), dataset.Text("y")},
		{dataset.Text("c@x.com"), dataset.Text("N")},
		{dataset.Text("d@x.com"), dataset.Null()},
		{dataset.Text("e@x.com"), dataset.Text(" Y")},
		{dataset.Text("f@x.com"), dataset.Text("Y")},
	})

	out, rep := DropFlagged(d, d.Schema().Lookup(dataset.ColumnFlag))

	assert.Equal(t, []string{"b@x.com", "c@x.com", "d@x.com", "e@x.com"}, columnStrings(out, 0))
	assert.Equal(t, 6, rep.Before)
	assert.Equal(t, 4, rep.After)
	assert.Equal(t, 2, rep.Flagged)
	assert.Equal(t, 2, rep.Removed)
	assert.False(t, rep.Skipped)
}

func TestDropFlagged_MissingColumn(t *testing.T) {
	d := emails("a@x.com")
	out, rep := DropFlagged(d, d.Schema().Lookup(dataset.ColumnFlag))

	assert.Equal(t, 1, out.Len())
	assert.True(t, rep.Skipped)
	assert.Contains(t, rep.Notice, dataset.ColumnFlag)
}
