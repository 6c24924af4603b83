package export

import (
	"fmt"
	"io"
	"iter"

	"github.com/tinytelemetry/etlq/internal/model"
)

// WriteText writes each record in its human-readable form, numbered from 1,
// and returns how many records were written.
func WriteText(w io.Writer, seq iter.Seq[model.Record]) (int, error) {
	n := 0
	for r := range seq {
		if _, err := fmt.Fprintf(w, "%d: %s\n", n+1, r); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
