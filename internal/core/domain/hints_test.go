package domain

import "testing"

func TestListHints_CloneIsIndependent(t *testing.T) {
	hints := NewListHints(Filter{Name: "name", Value: "bob"}, Filter{Name: "domain_id", Value: "corp"})
	clone := hints.Clone()

	clone.Consume("name")
	if _, ok := hints.Exact("name"); !ok {
		t.Fatalf("consuming on the clone must not touch the original")
	}
	if _, ok := clone.Exact("name"); ok {
		t.Fatalf("clone still has the consumed filter")
	}
}

func TestListHints_NilSafety(t *testing.T) {
	var hints *ListHints

	if hints.Clone() != nil {
		t.Fatalf("nil clones to nil")
	}
	if _, ok := hints.Exact("name"); ok {
		t.Fatalf("nil hints have no filters")
	}
	hints.Consume("name") // must not panic
}

func TestListHints_Consume(t *testing.T) {
	hints := NewListHints(
		Filter{Name: "name", Value: "bob"},
		Filter{Name: "enabled", Value: "true"},
	)
	hints.Consume("name")

	if len(hints.Filters) != 1 || hints.Filters[0].Name != "enabled" {
		t.Fatalf("unexpected filters: %+v", hints.Filters)
	}
}
