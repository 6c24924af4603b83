package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/etlq/internal/model"
)

func testRecords() []model.Record {
	return []model.Record{
		{
			Timestamp:   time.Date(2021, 1, 1, 10, 0, 0, 0, time.UTC),
			Severity:    "ERROR",
			Description: "null values in column",
			Code:        "CODE1",
		},
		{
			Timestamp:   time.Date(2021, 1, 1, 11, 30, 5, 0, time.UTC),
			Severity:    "WARNING",
			Description: `rows "skipped", see report`,
			Code:        "CODE2",
		},
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	n, err := WriteText(&buf, slices.Values(testRecords()))
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if n != 2 {
		t.Errorf("WriteText wrote %d records, want 2", n)
	}

	want := "1: 2021-01-01 10:00:00 - validation code: CODE1 - with level [ERROR]\nnull values in column\n" +
		"2: 2021-01-01 11:30:05 - validation code: CODE2 - with level [WARNING]\nrows \"skipped\", see report\n"
	if buf.String() != want {
		t.Errorf("WriteText output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteCSV_HeaderAlwaysWritten(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, slices.Values([]model.Record(nil)))
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if n != 0 {
		t.Errorf("WriteCSV wrote %d records, want 0", n)
	}
	if buf.String() != "time stamp,severity,code,description\n" {
		t.Errorf("empty export = %q, want header only", buf.String())
	}
}

func TestWriteCSVFile_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "out", "results.csv")
	records := testRecords()

	n, err := WriteCSVFile(path, slices.Values(records))
	if err != nil {
		t.Fatalf("WriteCSVFile: %v", err)
	}
	if n != len(records) {
		t.Errorf("WriteCSVFile wrote %d records, want %d", n, len(records))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("read %d rows, want %d", len(rows), len(records)+1)
	}
	if !slices.Equal(rows[0], CSVHeader) {
		t.Errorf("header = %v, want %v", rows[0], CSVHeader)
	}
	for i, r := range records {
		want := []string{r.FormatTime(), r.Severity, r.Code, r.Description}
		if !slices.Equal(rows[i+1], want) {
			t.Errorf("row %d = %v, want %v", i+1, rows[i+1], want)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestWriteCSVFile_InvalidSuffix(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	for _, name := range []string{"results.txt", "results", "results.CSV", "results.csv.bak"} {
		path := filepath.Join(dir, name)
		_, err := WriteCSVFile(path, slices.Values(testRecords()))
		if !errors.Is(err, ErrInvalidOutfile) {
			t.Errorf("WriteCSVFile(%q) error = %v, want ErrInvalidOutfile", name, err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Errorf("WriteCSVFile(%q) created a file", name)
		}
	}
}

func TestCheckOutfile(t *testing.T) {
	t.Parallel()
	if err := CheckOutfile("reports/out.csv"); err != nil {
		t.Errorf("CheckOutfile(out.csv) = %v, want nil", err)
	}
	if err := CheckOutfile("..csv"); err != nil {
		t.Errorf("CheckOutfile(..csv) = %v, want nil", err)
	}
	if err := CheckOutfile("out.json"); err == nil || !strings.Contains(err.Error(), "out.json") {
		t.Errorf("CheckOutfile(out.json) = %v, want error naming the path", err)
	}
	for _, bad := range []string{".csv", "reports/.csv", "out.CSV", "out.csv.bak", "csv"} {
		if err := CheckOutfile(bad); !errors.Is(err, ErrInvalidOutfile) {
			t.Errorf("CheckOutfile(%q) = %v, want ErrInvalidOutfile", bad, err)
		}
	}
}
