// Package csv reads contact lists into datasets and writes the cleaning
// results back out.
//
// Reading follows the conventions of the spreadsheet exports this tool is
// fed: Latin-1 text by default, comma separated, lenient quoting. Lines with
// more fields than the header are skipped, short lines are padded with
// absent values, and the usual null spellings ("", "NA", "NULL", ...) become
// absent values.
package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/JonMunkholm/emailclean/internal/dataset"
)

// ErrNoHeader is returned when the input has no header line.
var ErrNoHeader = errors.New("empty file: no header row")

// DefaultNullTokens are cell values read as absent. Matching is exact.
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// maxSkippedLines bounds how many skipped line numbers are kept in ReadStats.
const maxSkippedLines = 100

// ReadOptions controls parsing.
type ReadOptions struct {
	// Encoding of the input bytes. Empty means EncodingLatin1.
	Encoding Encoding

	// NullTokens overrides DefaultNullTokens when non-nil.
	NullTokens []string
}

// ReadStats describes what the reader did besides producing rows.
type ReadStats struct {
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
	Padded  int `json:"padded"`

	// SkippedLines lists the 1-based line numbers of the first skipped lines.
	SkippedLines []int `json:"skipped_lines,omitempty"`
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts ReadOptions) (dataset.Dataset, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.Dataset{}, ReadStats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read parses a CSV stream into a dataset. The first non-empty line is the
// header.
func Read(r io.Reader, opts ReadOptions) (dataset.Dataset, ReadStats, error) {
	var stats ReadStats

	nulls := opts.NullTokens
	if nulls == nil {
		nulls = DefaultNullTokens
	}
	isNull := make(map[string]bool, len(nulls))
	for _, t := range nulls {
		isNull[t] = true
	}

	cr := stdcsv.NewReader(decodeReader(r, opts.Encoding))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return dataset.Dataset{}, stats, ErrNoHeader
	}
	if err != nil {
		return dataset.Dataset{}, stats, fmt.Errorf("invalid csv header: %w", err)
	}
	columns := uniqueColumns(header)

	var rows []dataset.Record
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *stdcsv.ParseError
			if errors.As(err, &perr) {
				stats.skip(perr.StartLine)
				continue
			}
			return dataset.Dataset{}, stats, fmt.Errorf("read csv: %w", err)
		}

		if len(rec) > len(columns) {
			line, _ := cr.FieldPos(0)
			stats.skip(line)
			continue
		}

		row := make(dataset.Record, len(columns))
		for i := range columns {
			if i >= len(rec) || isNull[rec[i]] {
				row[i] = dataset.Null()
				continue
			}
			row[i] = dataset.Text(rec[i])
		}
		if len(rec) < len(columns) {
			stats.Padded++
		}
		rows = append(rows, row)
	}

	stats.Rows = len(rows)
	d, err := dataset.New(columns, rows)
	if err != nil {
		return dataset.Dataset{}, stats, err
	}
	return d, stats, nil
}

func (s *ReadStats) skip(line int) {
	s.Skipped++
	if len(s.SkippedLines) < maxSkippedLines {
		s.SkippedLines = append(s.SkippedLines, line)
	}
}

// uniqueColumns names blank headers "Unnamed: i" and suffixes repeated
// names with ".1", ".2", ... so every column can be addressed.
func uniqueColumns(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}

	for i, h := range header {
		name := h
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			candidate := name
			for {
				n++
				candidate = name + "." + strconv.Itoa(n)
				if !taken[candidate] {
					break
				}
			}
			seen[name] = n
			taken[candidate] = true
			out[i] = candidate
			continue
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
