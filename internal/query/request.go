package query

import (
	"iter"
	"slices"
	"time"

	"github.com/tinytelemetry/etlq/internal/filter"
	"github.com/tinytelemetry/etlq/internal/model"
	"github.com/tinytelemetry/etlq/internal/store"
)

// Mode is the kind of query a request resolves to.
type Mode int

const (
	ModeFilter Mode = iota
	ModeHead
	ModeTail
)

func (m Mode) String() string {
	switch m {
	case ModeHead:
		return "head"
	case ModeTail:
		return "tail"
	default:
		return "filter"
	}
}

// Request is the query contract shared by the shell and the HTTP API.
// Zero values mean "not given".
type Request struct {
	Head      int
	Tail      int
	StartDate time.Time
	EndDate   time.Time
	Severity  string
	Code      string
	Limit     int
	Outfile   string
}

// Mode resolves precedence: a positive Head wins, then a positive Tail,
// otherwise the request is a filtered query.
func (r Request) Mode() Mode {
	switch {
	case r.Head > 0:
		return ModeHead
	case r.Tail > 0:
		return ModeTail
	default:
		return ModeFilter
	}
}

// Criteria returns the filter part of the request.
func (r Request) Criteria() filter.Criteria {
	return filter.Criteria{
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Severity:  r.Severity,
		Code:      r.Code,
	}
}

// Run resolves r against s. Head and tail requests ignore every other field;
// filtered requests are bounded by Limit.
func Run(s *store.Store, r Request) iter.Seq[model.Record] {
	switch r.Mode() {
	case ModeHead:
		return slices.Values(s.Head(r.Head))
	case ModeTail:
		return slices.Values(s.Tail(r.Tail))
	default:
		return filter.Limit(s.Query(filter.Build(r.Criteria())), r.Limit)
	}
}
