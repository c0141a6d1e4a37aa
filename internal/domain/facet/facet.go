// Package facet holds the static catalog of user-filterable dimensions.
package facet

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup matches no facet. Callers treat it
// as "not a facet" and ignore the input.
var ErrNotFound = errors.New("facet not found")

// Kind selects how a facet value turns into a query constraint.
type Kind int

const (
	// Terms matches a vocabulary id on a keyword field.
	Terms Kind = iota
	// Text is a free-text query-string expression.
	Text
	// DateRange matches a year range against one or more date fields.
	DateRange
	// Spatial is a geographic bounding box.
	Spatial
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Terms:
		return "terms"
	case Text:
		return "text"
	case DateRange:
		return "date_range"
	case Spatial:
		return "spatial"
	default:
		return "unknown"
	}
}

// Definition describes one facet. Scope "" is the root scope.
type Definition struct {
	ID               string
	Label            string
	FieldName        string
	DisplayFieldName string
	Scope            string
	Kind             Kind

	// FilterScope is the scope whose documents the constraint applies to.
	// Empty means Scope.
	FilterScope string
	// GeoField is the geo_point field of a Spatial facet.
	GeoField string
	// RangeFields are the date fields OR-ed by a DateRange facet.
	RangeFields []string
	// IDField receives numeric Text values (lookup by id instead of name).
	IDField string
	// Phrase renders the facet in a filter summary; %s is the value label.
	Phrase string
}

// Key returns the canonical key used by the URL codec and aggregations.
func (d Definition) Key() string {
	return JoinKey(d.Scope, d.FieldName)
}

// ConstraintScope returns the scope a constraint on this facet lands on.
func (d Definition) ConstraintScope() string {
	if d.FilterScope != "" {
		return d.FilterScope
	}
	return d.Scope
}

// Aggregatable reports whether the backend can bucket this facet's values.
func (d Definition) Aggregatable() bool {
	return d.Kind == Terms && d.DisplayFieldName != ""
}

// JoinKey renders a (scope, field) pair as "scope.field", or "field" at root.
func JoinKey(scope, field string) string {
	if scope == "" {
		return field
	}
	return scope + "." + field
}

// SplitKey is the inverse of JoinKey: the prefix before the first dot is
// the scope, the remainder the field name.
func SplitKey(key string) (scope, field string) {
	before, after, found := strings.Cut(key, ".")
	if !found {
		return "", key
	}
	return before, after
}
