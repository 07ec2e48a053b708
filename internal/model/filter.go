package model

import "fmt"

// Filter scopes a ticket listing to a status, or to everything.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterPending      Filter = "pending"
	FilterAutoResolved Filter = "auto_resolved"
	FilterEscalated    Filter = "escalated"
)

// Valid reports whether f is a known filter value.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterPending, FilterAutoResolved, FilterEscalated:
		return true
	}
	return false
}

// Matches reports whether t belongs in a listing scoped to f.
func (f Filter) Matches(t Ticket) bool {
	return f == FilterAll || Status(f) == t.Status()
}

// ParseFilter converts a query-string value to a Filter. An empty value
// means "all", matching the listing API's default.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	f := Filter(s)
	if !f.Valid() {
		return "", fmt.Errorf("model: unknown status filter %q", s)
	}
	return f, nil
}
