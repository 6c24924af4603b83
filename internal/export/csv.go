package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/etlq/internal/model"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// ErrInvalidOutfile is returned for export paths that do not end in .csv.
var ErrInvalidOutfile = errors.New("output file must end with .csv")

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"time stamp", "severity", "code", "description"}

// CheckOutfile rejects paths that do not end in .csv, and a bare ".csv" name.
func CheckOutfile(path string) error {
	if filepath.Ext(path) != ".csv" || filepath.Base(path) == ".csv" {
		return fmt.Errorf("%w: %s", ErrInvalidOutfile, path)
	}
	return nil
}

// WriteCSV writes the header followed by one row per record and returns how
// many records were written.
func WriteCSV(w io.Writer, seq iter.Seq[model.Record]) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}

	n := 0
	for r := range seq {
		if err := cw.Write([]string{r.FormatTime(), r.Severity, r.Code, r.Description}); err != nil {
			return n, err
		}
		n++
	}

	cw.Flush()
	return n, cw.Error()
}

// WriteCSVFile exports seq to path. The path is checked before anything is
// created, and the file only appears once it has been fully written.
func WriteCSVFile(path string, seq iter.Seq[model.Record]) (int, error) {
	if err := CheckOutfile(path); err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return 0, fmt.Errorf("export: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("export: create tmp: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := WriteCSV(tmp, seq)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("export: write csv: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("export: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("export: close: %w", err)
	}
	if err := os.Chmod(tmpPath, defaultFileMode); err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("export: chmod: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("export: rename: %w", err)
	}
	return n, nil
}
