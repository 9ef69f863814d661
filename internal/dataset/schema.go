package dataset

import "fmt"

// Column names the pipeline gives meaning to. Every other column is opaque.
const (
	ColumnEmail = "EMAIL"
	ColumnNames = "NOMBRES"
	ColumnFlag  = "FLG_REPEP"
)

// Schema is the ordered, fixed set of column names of a Dataset.
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema builds a schema. Column names must be unique; matching is exact
// and case-sensitive.
func NewSchema(columns []string) (Schema, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return Schema{}, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	return Schema{
		columns: append([]string(nil), columns...),
		index:   idx,
	}, nil
}

// Columns returns a copy of the column names in order.
func (s Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Len returns the number of columns.
func (s Schema) Len() int {
	return len(s.columns)
}

// Index returns the position of a column.
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Has reports whether the column exists.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// OptionalColumn is the result of a schema capability check: the column is
// either present at Index or absent.
type OptionalColumn struct {
	Name    string
	Index   int
	Present bool
}

// Lookup performs a capability check for an optional column.
func (s Schema) Lookup(name string) OptionalColumn {
	i, ok := s.index[name]
	return OptionalColumn{Name: name, Index: i, Present: ok}
}
