package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingEmailColumn is returned when the input has no EMAIL column.
// Every stage keys on that column, so the pipeline refuses to start.
var ErrMissingEmailColumn = errors.New("missing required column EMAIL")

// SchemaError describes an input whose schema cannot be processed.
type SchemaError struct {
	Column  string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column %s (have: %s)", e.Column, strings.Join(e.Columns, ", "))
}

// Unwrap lets errors.Is match ErrMissingEmailColumn.
func (e *SchemaError) Unwrap() error {
	return ErrMissingEmailColumn
}

// PatternError reports an exclusion pattern that failed to compile.
type PatternError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid exclusion pattern #%d %q: %v", e.Index, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
