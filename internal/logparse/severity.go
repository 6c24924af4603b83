package logparse

// Severities lists the levels the validation process emits, most severe first.
// Parsed records may still carry other levels; those are stored verbatim.
var Severities = []string{"ERROR", "WARNING", "INFO"}

// IsKnownSeverity reports whether severity is one of Severities.
// Matching is exact: the query surface compares severities by equality.
func IsKnownSeverity(severity string) bool {
	for _, s := range Severities {
		if s == severity {
			return true
		}
	}
	return false
}

// SeverityRank orders severities for display. Known levels sort in the order of
// Severities; anything else sorts after them.
func SeverityRank(severity string) int {
	for i, s := range Severities {
		if s == severity {
			return i
		}
	}
	return len(Severities)
}
