package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/emailclean/internal/csv"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

func TestMapError(t *testing.T) {
	_, reErr := regexp.Compile("(")

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing email column", &pipeline.SchemaError{Column: "EMAIL", Columns: []string{"CORREO"}}, "VAL001"},
		{"wrapped missing email column", fmt.Errorf("run: %w", pipeline.ErrMissingEmailColumn), "VAL001"},
		{"pattern error", &pipeline.PatternError{Index: 2, Pattern: "(", Err: reErr}, "VAL002"},
		{"empty catalogue", rules.ErrEmptyCatalogue, "VAL003"},
		{"rule file read error", errors.New("reading rule catalogue rules.yaml: permission denied"), "VAL003"},
		{"name rule", errors.New(`unknown name rule "word" (want substring, value, token or off)`), "VAL004"},
		{"file too large sentinel", fmt.Errorf("upload: %w", ErrFileTooLarge), "FILE001"},
		{"max bytes reader", errors.New("http: request body too large"), "FILE001"},
		{"bad csv", errors.New("invalid csv header: bare quote"), "FILE002"},
		{"unsupported encoding", errors.New(`unsupported encoding "ebcdic"`), "FILE003"},
		{"no file", ErrNoFile, "FILE004"},
		{"not multipart", errors.New("request Content-Type isn't multipart/form-data"), "FILE006"},
		{"empty file", fmt.Errorf("reading a.csv: %w", csv.ErrNoHeader), "FILE005"},
		{"busy", ErrTooManyRuns, "RUN001"},
		{"run not found", ErrRunNotFound, "RUN002"},
		{"history not found", history.ErrNotFound, "RUN002"},
		{"cancelled", fmt.Errorf("read csv: %w", context.Canceled), "RUN003"},
		{"deadline", fmt.Errorf("read csv: %w", context.DeadlineExceeded), "RUN004"},
		{"locked", fmt.Errorf("out: %w", ErrOutputLocked), "RUN005"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown", errors.New("something unexpected happened"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.err != nil {
				assert.NotEmpty(t, got.Message)
				assert.NotEmpty(t, got.Action)
			}
		})
	}
}

func TestMapError_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "FILE002", MapError(errors.New("INVALID CSV")).Code)
}

func TestFormatUserError(t *testing.T) {
	assert.Equal(t, "", FormatUserError(nil))
	assert.Equal(t,
		"The file has no EMAIL column (Code: VAL001). Rename the address column to EMAIL and try again",
		FormatUserError(pipeline.ErrMissingEmailColumn))
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.True(t, IsUserFacing(ErrTooManyRuns))
	assert.False(t, IsUserFacing(errors.New("segfault in module")))
}
