package query

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tinytelemetry/etlq/internal/export"
	"github.com/tinytelemetry/etlq/internal/store"
)

// Result describes what Execute did.
type Result struct {
	Mode    Mode
	Count   int    // records printed or exported
	Outfile string // resolved export path, empty when results were printed
}

// Executor runs requests against a store, printing results or exporting
// them to CSV.
type Executor struct {
	store  *store.Store
	root   string
	logger zerolog.Logger
}

// NewExecutor creates an executor. Relative outfiles are resolved against root.
func NewExecutor(s *store.Store, root string, logger zerolog.Logger) *Executor {
	return &Executor{store: s, root: root, logger: logger}
}

// Store returns the store the executor queries.
func (e *Executor) Store() *store.Store { return e.store }

// Execute runs r. Head and tail results are always printed to w. Filtered
// results go to the CSV outfile when one is given; an outfile without the .csv
// suffix is rejected before anything is written.
func (e *Executor) Execute(w io.Writer, r Request) (Result, error) {
	start := time.Now()
	res := Result{Mode: r.Mode()}
	seq := Run(e.store, r)

	if res.Mode != ModeFilter || r.Outfile == "" {
		n, err := export.WriteText(w, seq)
		res.Count = n
		if err != nil {
			return res, fmt.Errorf("query: print: %w", err)
		}
		e.logDone(res, start)
		return res, nil
	}

	path := ResolvePath(e.root, r.Outfile)
	n, err := export.WriteCSVFile(path, seq)
	res.Count = n
	if err != nil {
		return res, err
	}
	res.Outfile = path
	e.logDone(res, start)
	return res, nil
}

func (e *Executor) logDone(res Result, start time.Time) {
	e.logger.Debug().
		Stringer("mode", res.Mode).
		Int("count", res.Count).
		Str("outfile", res.Outfile).
		Dur("took", time.Since(start)).
		Msg("query executed")
}

// ResolvePath joins a relative path onto root. Absolute paths and an empty
// root leave p unchanged.
func ResolvePath(root, p string) string {
	if root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
