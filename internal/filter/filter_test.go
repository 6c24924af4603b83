package filter

import (
	"slices"
	"testing"
	"time"

	"github.com/tinytelemetry/etlq/internal/model"
)

func ts(s string) time.Time {
	t, err := time.Parse(model.TimeLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDateRange(t *testing.T) {
	t.Parallel()
	rec := model.Record{Timestamp: ts("2021-01-01 10:00:00")}

	tests := []struct {
		name  string
		r     DateRange
		match bool
	}{
		{"start only, before", DateRange{From: ts("2021-01-01 09:00:00")}, true},
		{"start only, equal", DateRange{From: ts("2021-01-01 10:00:00")}, true},
		{"start only, after", DateRange{From: ts("2021-01-01 10:00:01")}, false},
		{"end only, after", DateRange{To: ts("2021-01-01 11:00:00")}, true},
		{"end only, equal", DateRange{To: ts("2021-01-01 10:00:00")}, true},
		{"end only, before", DateRange{To: ts("2021-01-01 09:59:59")}, false},
		{"both, inside", DateRange{From: ts("2021-01-01 00:00:00"), To: ts("2021-01-02 00:00:00")}, true},
		{"both, outside", DateRange{From: ts("2021-01-02 00:00:00"), To: ts("2021-01-03 00:00:00")}, false},
		{"inverted", DateRange{From: ts("2021-01-02 00:00:00"), To: ts("2021-01-01 00:00:00")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Match(rec); got != tt.match {
				t.Errorf("Match = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestSeverityAndCode_ExactMatch(t *testing.T) {
	t.Parallel()
	rec := model.Record{Severity: "ERROR", Code: "CODE1"}

	if !Severity("ERROR").Match(rec) {
		t.Error("Severity(ERROR) should match")
	}
	if Severity("error").Match(rec) {
		t.Error("Severity(error) should not match: comparison is exact")
	}
	if !Code("CODE1").Match(rec) {
		t.Error("Code(CODE1) should match")
	}
	if Code("CODE").Match(rec) {
		t.Error("Code(CODE) should not match a prefix")
	}
}

func TestBuild_Order(t *testing.T) {
	t.Parallel()
	preds := Build(Criteria{
		StartDate: ts("2021-01-01 00:00:00"),
		Severity:  "ERROR",
		Code:      "CODE1",
	})
	if len(preds) != 3 {
		t.Fatalf("Build returned %d predicates, want 3", len(preds))
	}
	if _, ok := preds[0].(DateRange); !ok {
		t.Errorf("preds[0] = %T, want DateRange", preds[0])
	}
	if preds[1] != Severity("ERROR") {
		t.Errorf("preds[1] = %#v, want Severity(ERROR)", preds[1])
	}
	if preds[2] != Code("CODE1") {
		t.Errorf("preds[2] = %#v, want Code(CODE1)", preds[2])
	}
}

func TestBuild_OmitsMissingCriteria(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		c    Criteria
		want int
	}{
		{"empty", Criteria{}, 0},
		{"end date only", Criteria{EndDate: ts("2021-01-01 00:00:00")}, 1},
		{"both dates share one predicate", Criteria{StartDate: ts("2021-01-01 00:00:00"), EndDate: ts("2021-01-02 00:00:00")}, 1},
		{"code only", Criteria{Code: "X"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Build(tt.c)); got != tt.want {
				t.Errorf("len(Build) = %d, want %d", got, tt.want)
			}
			if tt.c.IsEmpty() != (tt.want == 0) {
				t.Errorf("IsEmpty = %v with %d predicates", tt.c.IsEmpty(), tt.want)
			}
		})
	}
}

func TestMatchAll_ShortCircuits(t *testing.T) {
	t.Parallel()
	calls := 0
	never := PredicateFunc(func(model.Record) bool { calls++; return false })
	counted := PredicateFunc(func(model.Record) bool { calls++; return true })

	if MatchAll([]Predicate{never, counted}, model.Record{}) {
		t.Error("MatchAll should fail when the first predicate fails")
	}
	if calls != 1 {
		t.Errorf("predicate calls = %d, want 1", calls)
	}
	if !MatchAll(nil, model.Record{}) {
		t.Error("MatchAll(nil) should hold")
	}
}

func counting(n int, pulled *int) func(yield func(int) bool) {
	return func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			*pulled++
			if !yield(i) {
				return
			}
		}
	}
}

func TestLimit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		source int
		n      int
		want   int
	}{
		{"bound below source", 10, 3, 3},
		{"bound equals source", 5, 5, 5},
		{"source ends early", 2, 5, 2},
		{"zero means unbounded", 4, 0, 4},
		{"negative means unbounded", 4, -1, 4},
		{"empty source", 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pulled := 0
			got := slices.Collect(Limit(counting(tt.source, &pulled), tt.n))
			if len(got) != tt.want {
				t.Errorf("Limit yielded %d values, want %d", len(got), tt.want)
			}
			if pulled != tt.want {
				t.Errorf("source produced %d values, want %d", pulled, tt.want)
			}
		})
	}
}

func TestLimit_ConsumerStopsEarly(t *testing.T) {
	t.Parallel()
	pulled := 0
	for v := range Limit(counting(10, &pulled), 5) {
		if v == 1 {
			break
		}
	}
	if pulled != 2 {
		t.Errorf("source produced %d values, want 2", pulled)
	}
}
