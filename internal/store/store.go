package store

import (
	"iter"
	"slices"

	"github.com/tinytelemetry/etlq/internal/filter"
	"github.com/tinytelemetry/etlq/internal/model"
)

// Store holds the loaded records in file order. It is read-only after Load,
// so it is safe to share between the shell, the API server and the SQL mirror.
type Store struct {
	records []model.Record
}

// Load wraps a finished record sequence. The slice is owned by the store.
func Load(records []model.Record) *Store {
	return &Store{records: records}
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Head returns the first n records in file order. n larger than the store
// returns everything; n <= 0 returns nothing.
func (s *Store) Head(n int) []model.Record {
	if n <= 0 {
		return nil
	}
	n = min(n, len(s.records))
	return slices.Clone(s.records[:n])
}

// Tail returns the last n records in file order (not reversed). Bounds
// behave as in Head.
func (s *Store) Tail(n int) []model.Record {
	if n <= 0 {
		return nil
	}
	n = min(n, len(s.records))
	return slices.Clone(s.records[len(s.records)-n:])
}

// All yields every record in file order.
func (s *Store) All() iter.Seq[model.Record] {
	return slices.Values(s.records)
}

// Query lazily yields the records for which every predicate holds, in file
// order. An empty predicate list yields nothing: Head and Tail are the way to
// read the store unfiltered.
func (s *Store) Query(preds []filter.Predicate) iter.Seq[model.Record] {
	preds = slices.Clone(preds)
	return func(yield func(model.Record) bool) {
		if len(preds) == 0 {
			return
		}
		for _, r := range s.records {
			if !filter.MatchAll(preds, r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}
