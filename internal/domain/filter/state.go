// Package filter holds the active filter values of a search session.
package filter

import (
	"fmt"

	"github.com/kailas-cloud/picmap/internal/domain/facet"
)

// Wildcard means a facet imposes no constraint.
const Wildcard = "*"

// Entry is one active (non-wildcard) filter.
type Entry struct {
	Facet facet.Definition
	Value string
}

// Key returns the canonical facet key of the entry.
func (e Entry) Key() string { return e.Facet.Key() }

// State maps every registry facet to exactly one value.
type State struct {
	registry *facet.Registry
	values   []string
}

// NewState creates a state with every facet wildcarded.
func NewState(r *facet.Registry) *State {
	s := &State{registry: r, values: make([]string, r.Len())}
	s.ResetAll()
	return s
}

// Registry returns the catalog the state is keyed by.
func (s *State) Registry() *facet.Registry { return s.registry }

// Set assigns a value. An empty value resets the facet to the wildcard.
func (s *State) Set(id, value string) error {
	i, ok := s.registry.IndexOf(id)
	if !ok {
		return fmt.Errorf("set %q: %w", id, facet.ErrNotFound)
	}
	if value == "" {
		value = Wildcard
	}
	s.values[i] = value
	return nil
}

// Get returns the value of a facet.
func (s *State) Get(id string) (string, error) {
	i, ok := s.registry.IndexOf(id)
	if !ok {
		return "", fmt.Errorf("get %q: %w", id, facet.ErrNotFound)
	}
	return s.values[i], nil
}

// Value returns the value of a facet, or the wildcard for an unknown id.
func (s *State) Value(id string) string {
	v, err := s.Get(id)
	if err != nil {
		return Wildcard
	}
	return v
}

// IsActive reports whether a facet holds a non-wildcard value.
func (s *State) IsActive(id string) bool {
	return s.Value(id) != Wildcard
}

// Reset sets a facet back to the wildcard.
func (s *State) Reset(id string) error {
	return s.Set(id, Wildcard)
}

// ResetAll wildcards every facet.
func (s *State) ResetAll() {
	for i := range s.values {
		s.values[i] = Wildcard
	}
}

// ActiveEntries returns the non-wildcard entries in registry order.
func (s *State) ActiveEntries() []Entry {
	var out []Entry
	for i, v := range s.values {
		if v == Wildcard {
			continue
		}
		out = append(out, Entry{Facet: s.registry.At(i), Value: v})
	}
	return out
}

// Entries returns every facet with its value (wildcards included) in registry order.
func (s *State) Entries() []Entry {
	out := make([]Entry, len(s.values))
	for i, v := range s.values {
		out[i] = Entry{Facet: s.registry.At(i), Value: v}
	}
	return out
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	c := &State{registry: s.registry, values: make([]string, len(s.values))}
	copy(c.values, s.values)
	return c
}

// Equal reports whether two states hold the same values over the same registry.
func (s *State) Equal(o *State) bool {
	if s.registry != o.registry || len(s.values) != len(o.values) {
		return false
	}
	for i := range s.values {
		if s.values[i] != o.values[i] {
			return false
		}
	}
	return true
}
