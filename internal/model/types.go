package model

import (
	"fmt"
	"time"
)

// TimeLayout is the fixed timestamp format used by log lines, query dates and exports.
const TimeLayout = "2006-01-02 15:04:05"

// Record represents a single parsed validation event.
// It is the canonical type for the store, filters, and every export format.
type Record struct {
	Timestamp   time.Time // second precision, no zone
	Severity    string    // ERROR/WARNING/INFO; unknown levels are kept verbatim
	Description string
	Code        string // validation rule identifier
}

// FormatTime renders the record timestamp using TimeLayout.
func (r Record) FormatTime() string {
	return r.Timestamp.Format(TimeLayout)
}

// String returns the two-line human-readable form of the record.
func (r Record) String() string {
	return fmt.Sprintf("%s - validation code: %s - with level [%s]\n%s",
		r.FormatTime(), r.Code, r.Severity, r.Description)
}

// SeverityCount represents the number of records at one severity level.
type SeverityCount struct {
	Severity string
	Count    int64
}
