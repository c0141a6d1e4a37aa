// Package query builds the structured parent/child search query compiled
// from a filter state.
package query

import (
	"strings"

	"github.com/kailas-cloud/picmap/internal/domain/geo"
)

// Relation selects which document type a query targets directly.
type Relation int

const (
	// ParentPrimary targets parent (constituent) documents.
	ParentPrimary Relation = iota
	// ChildPrimary targets child (address) documents.
	ChildPrimary
)

// String returns the relation name.
func (r Relation) String() string {
	if r == ChildPrimary {
		return "child"
	}
	return "parent"
}

// ParseRelation parses "parent" or "child".
func ParseRelation(s string) (Relation, bool) {
	switch strings.ToLower(s) {
	case "parent", "":
		return ParentPrimary, true
	case "child":
		return ChildPrimary, true
	default:
		return ParentPrimary, false
	}
}

// Direction is the kind of structural join.
type Direction int

const (
	// HasChild keeps parents with a matching child.
	HasChild Direction = iota
	// HasParent keeps children whose parent matches.
	HasParent
)

// String returns the DSL name of the join.
func (d Direction) String() string {
	if d == HasParent {
		return "has_parent"
	}
	return "has_child"
}

// TextClause is an AND of query-string expressions. No expressions means
// match everything.
type TextClause struct {
	exprs []string
}

// NewTextClause creates a clause from already escaped expressions.
func NewTextClause(exprs ...string) TextClause {
	return TextClause{exprs: append([]string(nil), exprs...)}
}

// MatchAll returns the universal clause.
func MatchAll() TextClause { return TextClause{} }

// IsMatchAll reports whether the clause matches every document.
func (c TextClause) IsMatchAll() bool { return len(c.exprs) == 0 }

// Expressions returns the AND-ed expressions.
func (c TextClause) Expressions() []string { return c.exprs }

// String renders the query-string syntax: "(a AND b)" or "*".
func (c TextClause) String() string {
	if c.IsMatchAll() {
		return "*"
	}
	return "(" + strings.Join(c.exprs, " AND ") + ")"
}

// Join restricts the enclosing query by a related document type.
type Join struct {
	Direction  Direction
	TargetType string
	Nested     *Search
}

// BoundingBox is a geo_bounding_box constraint.
type BoundingBox struct {
	Field string
	Box   geo.BBox
}

// TermsAggregation buckets the values of one facet field.
type TermsAggregation struct {
	Name  string
	Field string
	Size  int
}

// Search is one level of the query. The top level targets TargetType; a
// Join nests the other document type.
type Search struct {
	TargetType   string
	Must         []TextClause
	Join         *Join
	Spatial      *BoundingBox
	Aggregations []TermsAggregation
}

// AggregationNames returns the names of the requested aggregations in order.
func (s *Search) AggregationNames() []string {
	out := make([]string, len(s.Aggregations))
	for i, a := range s.Aggregations {
		out[i] = a.Name
	}
	return out
}

// Expressions returns every query-string expression of this level, without
// descending into the join.
func (s *Search) Expressions() []string {
	var out []string
	for _, c := range s.Must {
		out = append(out, c.Expressions()...)
	}
	return out
}
