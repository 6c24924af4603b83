package filter

import (
	"time"

	"github.com/tinytelemetry/etlq/internal/model"
)

// Predicate is a boolean test over a single record.
type Predicate interface {
	Match(r model.Record) bool
}

// PredicateFunc adapts an ordinary function to a Predicate.
type PredicateFunc func(r model.Record) bool

func (f PredicateFunc) Match(r model.Record) bool { return f(r) }

// DateRange matches records whose timestamp falls within [From, To].
// A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (d DateRange) Match(r model.Record) bool {
	if !d.From.IsZero() && r.Timestamp.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && r.Timestamp.After(d.To) {
		return false
	}
	return true
}

// Severity matches records with exactly this severity.
type Severity string

func (s Severity) Match(r model.Record) bool { return r.Severity == string(s) }

// Code matches records with exactly this validation code.
type Code string

func (c Code) Match(r model.Record) bool { return r.Code == string(c) }

// MatchAll reports whether every predicate holds for r, evaluating them in order
// and stopping at the first that fails.
func MatchAll(preds []Predicate, r model.Record) bool {
	for _, p := range preds {
		if !p.Match(r) {
			return false
		}
	}
	return true
}
