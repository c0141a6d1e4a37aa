package facet

import (
	"fmt"
	"strings"
)

// Side is the document type a scope belongs to.
type Side int

const (
	// ParentSide is the primary (constituent) document.
	ParentSide Side = iota
	// ChildSide is the joined child (address) document.
	ChildSide
)

// String returns the side name.
func (s Side) String() string {
	if s == ChildSide {
		return "child"
	}
	return "parent"
}

// Schema names the two document types of the parent/child join.
type Schema struct {
	ParentType string
	ChildType  string
}

// DefaultSchema is the constituent/address join.
func DefaultSchema() Schema {
	return Schema{ParentType: "constituent", ChildType: "address"}
}

// Registry is a read-only ordered catalog of facets.
type Registry struct {
	schema Schema
	defs   []Definition
	byID   map[string]int
	byKey  map[string]int
}

// NewRegistry validates the definitions and freezes them in the given order.
func NewRegistry(schema Schema, defs ...Definition) (*Registry, error) {
	if schema.ParentType == "" || schema.ChildType == "" {
		return nil, fmt.Errorf("schema requires parent and child types")
	}
	r := &Registry{
		schema: schema,
		defs:   make([]Definition, 0, len(defs)),
		byID:   make(map[string]int, len(defs)),
		byKey:  make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("facet id is required")
		}
		if d.FieldName == "" {
			return nil, fmt.Errorf("facet %q: field name is required", d.ID)
		}
		if strings.Contains(d.FieldName, ".") {
			return nil, fmt.Errorf("facet %q: field name %q must not contain a dot", d.ID, d.FieldName)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate facet id %q", d.ID)
		}
		if _, dup := r.byKey[d.Key()]; dup {
			return nil, fmt.Errorf("duplicate facet key %q", d.Key())
		}
		switch d.Kind {
		case Spatial:
			if d.GeoField == "" {
				return nil, fmt.Errorf("facet %q: spatial facet requires a geo field", d.ID)
			}
		case DateRange:
			if len(d.RangeFields) == 0 {
				return nil, fmt.Errorf("facet %q: date range facet requires range fields", d.ID)
			}
		}
		d.RangeFields = append([]string(nil), d.RangeFields...)
		r.byID[d.ID] = len(r.defs)
		r.byKey[d.Key()] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// MustRegistry calls NewRegistry and panics on error.
func MustRegistry(schema Schema, defs ...Definition) *Registry {
	r, err := NewRegistry(schema, defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Schema returns the join schema.
func (r *Registry) Schema() Schema { return r.schema }

// Len returns the number of facets.
func (r *Registry) Len() int { return len(r.defs) }

// All returns the definitions in registry order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// At returns the i-th definition.
func (r *Registry) At(i int) Definition { return r.defs[i] }

// IndexOf returns the registry position of a facet id.
func (r *Registry) IndexOf(id string) (int, bool) {
	i, ok := r.byID[id]
	return i, ok
}

// FindByID looks a facet up by identity.
func (r *Registry) FindByID(id string) (Definition, error) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("id %q: %w", id, ErrNotFound)
	}
	return r.defs[i], nil
}

// FindByKey looks a facet up by its canonical (scope, field) key.
func (r *Registry) FindByKey(scope, field string) (Definition, error) {
	i, ok := r.byKey[JoinKey(scope, field)]
	if !ok {
		return Definition{}, fmt.Errorf("key %q: %w", JoinKey(scope, field), ErrNotFound)
	}
	return r.defs[i], nil
}

// SideOf returns the side a definition's constraint lands on.
func (r *Registry) SideOf(d Definition) Side {
	return r.ScopeSide(d.ConstraintScope())
}

// ScopeSide returns the side of a scope name. Only the child type is a
// child-side scope; object paths on the parent stay on the parent side.
func (r *Registry) ScopeSide(scope string) Side {
	if scope == r.schema.ChildType {
		return ChildSide
	}
	return ParentSide
}

// TypeOf returns the document type of a side.
func (r *Registry) TypeOf(s Side) string {
	if s == ChildSide {
		return r.schema.ChildType
	}
	return r.schema.ParentType
}
