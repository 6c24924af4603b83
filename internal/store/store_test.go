package store

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/tinytelemetry/etlq/internal/filter"
	"github.com/tinytelemetry/etlq/internal/model"
)

func newTestStore(t *testing.T, n int) *Store {
	t.Helper()
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	severities := []string{"ERROR", "WARNING", "INFO"}
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Severity:    severities[i%len(severities)],
			Description: fmt.Sprintf("event %d", i),
			Code:        fmt.Sprintf("CODE%d", i),
		}
	}
	return Load(records)
}

func codes(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Code
	}
	return out
}

func TestHead(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 5)

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"CODE0", "CODE1"}},
		{5, []string{"CODE0", "CODE1", "CODE2", "CODE3", "CODE4"}},
		{50, []string{"CODE0", "CODE1", "CODE2", "CODE3", "CODE4"}},
		{0, []string{}},
		{-3, []string{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			if got := codes(s.Head(tt.n)); !slices.Equal(got, tt.want) {
				t.Errorf("Head(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestHead_IdempotentAndPrefix(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 6)

	if !slices.Equal(s.Head(3), s.Head(3)) {
		t.Error("Head(3) is not idempotent")
	}
	for n1 := 0; n1 <= 7; n1++ {
		for n2 := n1; n2 <= 7; n2++ {
			small, large := s.Head(n1), s.Head(n2)
			if !slices.Equal(small, large[:len(small)]) {
				t.Errorf("Head(%d) is not a prefix of Head(%d)", n1, n2)
			}
		}
	}
}

func TestTail_KeepsFileOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 5)

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"CODE3", "CODE4"}},
		{9, []string{"CODE0", "CODE1", "CODE2", "CODE3", "CODE4"}},
		{0, []string{}},
		{-1, []string{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			if got := codes(s.Tail(tt.n)); !slices.Equal(got, tt.want) {
				t.Errorf("Tail(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestHead_DoesNotAliasStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 3)
	head := s.Head(1)
	head[0].Code = "MUTATED"
	if s.Head(1)[0].Code != "CODE0" {
		t.Error("mutating a Head result changed the store")
	}
}

func TestQuery_EmptyPredicatesYieldNothing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 4)
	if got := slices.Collect(s.Query(nil)); len(got) != 0 {
		t.Errorf("Query(nil) yielded %d records, want 0", len(got))
	}
	if got := slices.Collect(s.Query([]filter.Predicate{})); len(got) != 0 {
		t.Errorf("Query([]) yielded %d records, want 0", len(got))
	}
}

func TestQuery_AlwaysTrueReturnsEverything(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 4)
	always := filter.PredicateFunc(func(model.Record) bool { return true })

	got := slices.Collect(s.Query([]filter.Predicate{always}))
	if !slices.Equal(got, slices.Collect(s.All())) {
		t.Errorf("Query(always) = %v, want full store", codes(got))
	}
}

func TestQuery_Severity(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 3)

	got := slices.Collect(s.Query(filter.Build(filter.Criteria{Severity: "ERROR"})))
	if len(got) != 1 || got[0].Severity != "ERROR" || got[0].Code != "CODE0" {
		t.Errorf("Query(severity=ERROR) = %+v, want the single ERROR record", got)
	}
}

func TestQuery_ANDsPredicates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 9)

	preds := filter.Build(filter.Criteria{
		StartDate: time.Date(2021, 1, 1, 2, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2021, 1, 1, 7, 0, 0, 0, time.UTC),
		Severity:  "INFO",
	})
	got := codes(slices.Collect(s.Query(preds)))
	if want := []string{"CODE2", "CODE5"}; !slices.Equal(got, want) {
		t.Errorf("Query = %v, want %v", got, want)
	}
}

func TestQuery_IsLazy(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 100)
	evaluated := 0
	counted := filter.PredicateFunc(func(model.Record) bool {
		evaluated++
		return true
	})

	seq := s.Query([]filter.Predicate{counted})
	if evaluated != 0 {
		t.Fatalf("Query evaluated %d records before iteration", evaluated)
	}

	got := slices.Collect(filter.Limit(seq, 3))
	if len(got) != 3 {
		t.Fatalf("limited query yielded %d records, want 3", len(got))
	}
	if evaluated != 3 {
		t.Errorf("predicate evaluated %d records, want 3", evaluated)
	}
}
