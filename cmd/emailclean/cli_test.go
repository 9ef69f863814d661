package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/emailclean/internal/core"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

const contactsCSV = "ID,EMAIL,NOMBRES,FLG_REPEP\n" +
	"1,repetido@gmail.com,JUAN,N\n" +
	"2, Repetido@Gmail.com,JUAN,N\n" +
	"3,,SIN CORREO,N\n" +
	"4,REPETIDO@gmail.com ,JUAN,N\n" +
	"5,a@@b.com,ANA,N\n" +
	"6,repetido @gmail.com,JUAN,N\n" +
	"7,flag.user@gmail.com,PEDRO,Y\n" +
	"8,repetido@gmail.com,JUAN,N\n" +
	"9,Maria.Lopez@gmail.com,MA Lopez,y\n"

// clearEnv blanks the settings the commands read so the host environment
// does not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_HOST", "SERVER_PORT", "HISTORY_DRIVER", "HISTORY_DSN", "DATABASE_URL",
		"RUN_RETENTION", "UPLOAD_MAX_CONCURRENT", "UPLOAD_TIMEOUT", "UPLOAD_MAX_WAIT_TIME",
		"NAME_MA_RULE", "INPUT_ENCODING", "RULES_FILE", "RULES_REPORT_GROUPS", "OUTPUT_DIR",
		"LOG_LEVEL", "LOG_FORMAT", "REQUIRE_API_KEY", "API_KEYS", "TRUSTED_PROXIES",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	code = run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestClean(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "contactos.csv", contactsCSV)
	outDir := filepath.Join(dir, "out")

	code, stdout, stderr := execute("clean", "--no-color", "--out-dir", outDir, input)
	require.Equal(t, ExitSuccess, code, stderr)

	kept, err := os.ReadFile(filepath.Join(outDir, "kept.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ID,EMAIL,NOMBRES,FLG_REPEP\n9,maria.lopez@gmail.com,MARIA,y\n", string(kept))

	removed, err := os.ReadFile(filepath.Join(outDir, "removed.csv"))
	require.NoError(t, err)
	assert.Equal(t, "removed address\na@@b.com\n", string(removed))

	assert.Contains(t, stdout, "Cleaning report")
	assert.Contains(t, stdout, "Repeated addresses")
	assert.Contains(t, stdout, "a@@b.com")
	assert.Contains(t, stdout, filepath.Join(outDir, "kept.csv"))

	// The lock file is released but left behind.
	assert.FileExists(t, filepath.Join(outDir, core.LockFileName))
}

func TestClean_Quiet(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "contactos.csv", contactsCSV)

	code, stdout, stderr := execute("clean", "-q", "--out-dir", filepath.Join(dir, "out"), input)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
}

func TestClean_Verbose(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "contactos.csv", contactsCSV)

	code, stdout, stderr := execute("clean", "--no-color", "-v", "--out-dir", filepath.Join(dir, "out"), input)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Excluded by pattern")
	assert.Contains(t, stdout, "(-1)")
}

func TestClean_Flags(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "contactos.csv", "EMAIL,NOMBRES\nmarcos@gmail.com,MARCOS\nana@bloqueado.com,ANA\n")
	rulesFile := writeFile(t, dir, "reglas.yaml", "patterns:\n  - '@bloqueado\\.com$'\n")
	outDir := filepath.Join(dir, "out")

	code, _, stderr := execute("clean", "-q", "--ma-rule", "token", "--encoding", "utf8",
		"--rules", rulesFile, "--out-dir", outDir, input)
	require.Equal(t, ExitSuccess, code, stderr)

	kept, err := os.ReadFile(filepath.Join(outDir, "kept.csv"))
	require.NoError(t, err)
	assert.Equal(t, "EMAIL,NOMBRES\nmarcos@gmail.com,MARCOS\n", string(kept))

	removed, err := os.ReadFile(filepath.Join(outDir, "removed.csv"))
	require.NoError(t, err)
	assert.Equal(t, "removed address\nana@bloqueado.com\n", string(removed))
}

func TestClean_Errors(t *testing.T) {
	dir := t.TempDir()
	noEmail := writeFile(t, dir, "sin_email.csv", "ID,NOMBRES\n1,ANA\n")
	input := writeFile(t, dir, "contactos.csv", contactsCSV)
	badRules := writeFile(t, dir, "malas.yaml", "patterns:\n  - '('\n")
	out := filepath.Join(dir, "out")

	tests := []struct {
		name   string
		args   []string
		code   int
		stderr string
	}{
		{"missing EMAIL column", []string{"clean", "-q", "-o", out, noEmail}, ExitValidationError, "VAL001"},
		{"missing input", []string{"clean", "-q", "-o", out, filepath.Join(dir, "nope.csv")}, ExitInputError, "no such file"},
		{"invalid pattern", []string{"clean", "-q", "-o", out, "--rules", badRules, input}, ExitValidationError, "VAL002"},
		{"unknown encoding", []string{"clean", "-q", "-o", out, "--encoding", "ebcdic", input}, ExitInputError, "FILE003"},
		{"unknown name rule", []string{"clean", "-q", "-o", out, "--ma-rule", "always", input}, ExitValidationError, "VAL004"},
		{"no arguments", []string{"clean"}, ExitValidationError, "accepts 1 arg"},
		{"unknown flag", []string{"clean", "--bogus", input}, ExitValidationError, "unknown flag"},
		{"bad log level", []string{"--log-level", "loud", "clean", input}, ExitValidationError, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			code, _, stderr := execute(tt.args...)
			assert.Equal(t, tt.code, code, stderr)
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

func TestClean_LockedOutputDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "contactos.csv", contactsCSV)
	outDir := filepath.Join(dir, "out")

	unlock, err := core.LockDir(t.Context(), outDir, core.DefaultLockTimeout)
	require.NoError(t, err)
	defer unlock()

	code, _, stderr := execute("clean", "-q", "--lock-timeout", "50ms", "--out-dir", outDir, input)
	assert.Equal(t, ExitRuntimeError, code)
	assert.Contains(t, stderr, "RUN005")
}

func TestServe_InvalidListenFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"host with space", []string{"serve", "--host", "bad host"}, "SERVER_HOST"},
		{"host with path", []string{"serve", "--host", "example.com/x"}, "SERVER_HOST"},
		{"port out of range", []string{"serve", "--port", "70000"}, "SERVER_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			code, _, stderr := execute(tt.args...)
			assert.Equal(t, ExitValidationError, code, stderr)
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

func TestRules(t *testing.T) {
	clearEnv(t)

	code, stdout, stderr := execute("rules")
	require.Equal(t, ExitSuccess, code, stderr)

	cat, err := rules.Parse(bytes.NewBufferString(stdout))
	require.NoError(t, err)
	assert.Equal(t, rules.Default(), cat)
}

func TestRules_Export(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "reglas.yaml")

	code, stdout, stderr := execute("rules", "--export", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Empty(t, stdout)

	cat, err := rules.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rules.Default().Len(), cat.Len())
}

func TestRules_Explain(t *testing.T) {
	clearEnv(t)

	code, stdout, stderr := execute("rules", "explain", "--no-color", " A@@B.com", "Maria.Lopez@gmail.com")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "a@@b.com: excluded by")
	assert.Contains(t, stdout, "[structural] @@")
	assert.Contains(t, stdout, "maria.lopez@gmail.com: kept")
}

func TestRules_ExplainMatchesPipeline(t *testing.T) {
	cat := rules.Default()
	m, err := pipeline.CompilePatterns(cat.Patterns(), pipeline.CompileOptions{})
	require.NoError(t, err)

	var out bytes.Buffer
	explain(&out, true, cat, m, []string{"x@yopmail.com"})
	assert.Contains(t, out.String(), "[providers] @(yopmail)")
	assert.True(t, m.Match("x@yopmail.com"))
}

func TestHistory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("HISTORY_DRIVER", "sqlite")
	t.Setenv("HISTORY_DSN", filepath.Join(dir, "runs.db"))
	input := writeFile(t, dir, "contactos.csv", contactsCSV)

	code, stdout, stderr := execute("history")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "No runs recorded.")

	code, _, stderr = execute("clean", "-q", "--out-dir", filepath.Join(dir, "out"), input)
	require.Equal(t, ExitSuccess, code, stderr)

	code, stdout, stderr = execute("history", "--limit", "5")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "contactos.csv")
	assert.Contains(t, stdout, "done")
	assert.Contains(t, stdout, "cli")

	code, _, stderr = execute("history", "not-a-uuid")
	assert.Equal(t, ExitValidationError, code)
	assert.Contains(t, stderr, "invalid run id")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := execute("version")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "emailclean dev")

	code, _, _ = execute("version", "extra")
	assert.Equal(t, ExitValidationError, code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{usageError{errors.New("bad flag")}, ExitValidationError},
		{fmt.Errorf("run: %w", pipeline.ErrMissingEmailColumn), ExitValidationError},
		{core.ErrFileTooLarge, ExitInputError},
		{fmt.Errorf("open input: %w", os.ErrNotExist), ExitInputError},
		{core.ErrRunNotFound, ExitRuntimeError},
		{errors.New("boom"), ExitRuntimeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}
