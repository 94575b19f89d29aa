package domain

// Filter is a single exact-match constraint on a list operation.
type Filter struct {
	Name  string
	Value string
}

// ListHints carries caller-supplied filters into the store adapters. The
// relational adapter is allowed to consume (mutate) the hints it satisfies,
// so callers that need the hints again afterwards must pass a Clone.
type ListHints struct {
	Filters []Filter
}

// NewListHints builds hints from the given filters.
func NewListHints(filters ...Filter) *ListHints {
	return &ListHints{Filters: filters}
}

// Clone returns a deep copy of the hints. Safe on nil.
func (h *ListHints) Clone() *ListHints {
	if h == nil {
		return nil
	}
	c := &ListHints{Filters: make([]Filter, len(h.Filters))}
	copy(c.Filters, h.Filters)
	return c
}

// Exact returns the value of the named exact-match filter, if present.
func (h *ListHints) Exact(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	for _, f := range h.Filters {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Consume removes the named filter, signalling that the adapter has already
// applied it and no further layer needs to.
func (h *ListHints) Consume(name string) {
	if h == nil {
		return
	}
	kept := h.Filters[:0]
	for _, f := range h.Filters {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	h.Filters = kept
}
