package csv

import (
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/emailclean/internal/dataset"
)

// RemovedHeader is the single column name of the removed-address file.
const RemovedHeader = "removed address"

// Default output file names inside an output directory.
const (
	KeptFileName    = "kept.csv"
	RemovedFileName = "removed.csv"
)

// WriteDataset writes d as UTF-8 CSV, header first. Absent values are
// written as empty fields.
func WriteDataset(w io.Writer, d dataset.Dataset) error {
	cw := stdcsv.NewWriter(w)
	if err := cw.WriteAll(d.Strings()); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// WriteRemoved writes the pattern-filter removals, one address per line,
// under the RemovedHeader column.
func WriteRemoved(w io.Writer, removed []string) error {
	cw := stdcsv.NewWriter(w)
	if err := cw.Write([]string{RemovedHeader}); err != nil {
		return fmt.Errorf("write removed header: %w", err)
	}
	for _, addr := range removed {
		if err := cw.Write([]string{addr}); err != nil {
			return fmt.Errorf("write removed address: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Output holds the two files written for one run.
type Output struct {
	KeptPath    string
	RemovedPath string
}

// WriteOutputs writes kept.csv and removed.csv into dir, creating it if
// needed. Each file is written to a temporary name and renamed into place.
func WriteOutputs(dir string, kept dataset.Dataset, removed []string) (Output, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create output dir: %w", err)
	}

	out := Output{
		KeptPath:    filepath.Join(dir, KeptFileName),
		RemovedPath: filepath.Join(dir, RemovedFileName),
	}
	if err := writeFileAtomic(out.KeptPath, func(w io.Writer) error { return WriteDataset(w, kept) }); err != nil {
		return Output{}, err
	}
	if err := writeFileAtomic(out.RemovedPath, func(w io.Writer) error { return WriteRemoved(w, removed) }); err != nil {
		return Output{}, err
	}
	return out, nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
