package filter

import "time"

// Criteria holds the optional filter values of a query. Zero values mean
// "not given".
type Criteria struct {
	StartDate time.Time
	EndDate   time.Time
	Severity  string
	Code      string
}

// IsEmpty reports whether no criterion is set.
func (c Criteria) IsEmpty() bool {
	return c.StartDate.IsZero() && c.EndDate.IsZero() && c.Severity == "" && c.Code == ""
}

// Build translates criteria into an ordered predicate list: date range,
// severity, code. Criteria that are not given contribute no predicate, so
// empty criteria build an empty list.
func Build(c Criteria) []Predicate {
	var preds []Predicate

	if !c.StartDate.IsZero() || !c.EndDate.IsZero() {
		preds = append(preds, DateRange{From: c.StartDate, To: c.EndDate})
	}
	if c.Severity != "" {
		preds = append(preds, Severity(c.Severity))
	}
	if c.Code != "" {
		preds = append(preds, Code(c.Code))
	}

	return preds
}
