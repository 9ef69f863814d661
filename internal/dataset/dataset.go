// Package dataset holds the in-memory table the cleaning pipeline operates on.
//
// A Dataset is an ordered sequence of records that share one schema. Values
// may be absent (null), mirroring the pgtype.Text{Valid: false} convention
// used for empty CSV cells elsewhere in the project.
//
// Datasets are values: operations never modify the receiver, they return a
// new Dataset. Records are never written after construction, so filtered
// datasets may share records with their source; MapColumn copies every row
// it rewrites.
package dataset

import (
	"fmt"
)

// Value is a single cell. Valid is false when the cell is absent.
type Value struct {
	String string
	Valid  bool
}

// Text returns a present value.
func Text(s string) Value {
	return Value{String: s, Valid: true}
}

// Null returns an absent value.
func Null() Value {
	return Value{}
}

// Record is one row, aligned to its Dataset's schema.
type Record []Value

// Dataset is an immutable table of records sharing one schema.
type Dataset struct {
	schema Schema
	rows   []Record
}

// New builds a Dataset from column names and rows.
// Every row must have exactly one value per column.
func New(columns []string, rows []Record) (Dataset, error) {
	schema, err := NewSchema(columns)
	if err != nil {
		return Dataset{}, err
	}

	for i, row := range rows {
		if len(row) != schema.Len() {
			return Dataset{}, fmt.Errorf("row %d has %d values, expected %d", i, len(row), schema.Len())
		}
	}

	owned := make([]Record, len(rows))
	for i, row := range rows {
		owned[i] = append(Record(nil), row...)
	}

	return Dataset{schema: schema, rows: owned}, nil
}

// MustNew is New for literals in tests and fixtures; it panics on error.
func MustNew(columns []string, rows []Record) Dataset {
	d, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return d
}

// Schema returns the dataset's schema.
func (d Dataset) Schema() Schema {
	return d.schema
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.rows)
}

// Row returns a copy of the record at index i.
func (d Dataset) Row(i int) Record {
	return append(Record(nil), d.rows[i]...)
}

// Value returns the value of column col in row i.
func (d Dataset) Value(i, col int) Value {
	return d.rows[i][col]
}

// Column returns a copy of every value in column col, in row order.
func (d Dataset) Column(col int) []Value {
	out := make([]Value, len(d.rows))
	for i, row := range d.rows {
		out[i] = row[col]
	}
	return out
}

// Filter returns the records for which keep returns true, in original order.
func (d Dataset) Filter(keep func(Record) bool) Dataset {
	out := make([]Record, 0, len(d.rows))
	for _, row := range d.rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return Dataset{schema: d.schema, rows: out}
}

// Partition splits the dataset by match: matched records first, others second.
// Both halves keep original relative order.
func (d Dataset) Partition(match func(Record) bool) (matched, rest Dataset) {
	var in, out []Record
	for _, row := range d.rows {
		if match(row) {
			in = append(in, row)
		} else {
			out = append(out, row)
		}
	}
	return Dataset{schema: d.schema, rows: in}, Dataset{schema: d.schema, rows: out}
}

// MapColumn returns a dataset where column col of every record is replaced
// by fn applied to the old value. Other columns are copied unchanged.
func (d Dataset) MapColumn(col int, fn func(Value) Value) Dataset {
	out := make([]Record, len(d.rows))
	for i, row := range d.rows {
		next := append(Record(nil), row...)
		next[col] = fn(row[col])
		out[i] = next
	}
	return Dataset{schema: d.schema, rows: out}
}

// Strings returns the table as rows of strings, absent values rendered as "".
// The first row is the header.
func (d Dataset) Strings() [][]string {
	out := make([][]string, 0, len(d.rows)+1)
	out = append(out, d.schema.Columns())
	for _, row := range d.rows {
		line := make([]string, len(row))
		for j, v := range row {
			line[j] = v.String
		}
		out = append(out, line)
	}
	return out
}
