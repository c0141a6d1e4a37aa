package query

import (
	"strings"

	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
	"github.com/kailas-cloud/picmap/internal/domain/geo"
)

// DefaultAggregationSize caps the buckets returned per facet.
const DefaultAggregationSize = 500

// Compiler turns a filter state into a Search.
type Compiler struct {
	registry *facet.Registry
	aggSize  int
}

// NewCompiler creates a compiler. aggSize <= 0 uses DefaultAggregationSize.
func NewCompiler(r *facet.Registry, aggSize int) *Compiler {
	if aggSize <= 0 {
		aggSize = DefaultAggregationSize
	}
	return &Compiler{registry: r, aggSize: aggSize}
}

// Registry returns the catalog the compiler resolves facets against.
func (c *Compiler) Registry() *facet.Registry { return c.registry }

// Compile builds the query for a relation. An empty state yields a
// match-everything query with the full aggregation set of the target side.
func (c *Compiler) Compile(s *filter.State, rel Relation) *Search {
	primary, other := facet.ParentSide, facet.ChildSide
	dir := HasChild
	if rel == ChildPrimary {
		primary, other = facet.ChildSide, facet.ParentSide
		dir = HasParent
	}

	var primaryExprs, otherExprs []string
	var spatial *BoundingBox
	for _, e := range s.ActiveEntries() {
		if e.Facet.Kind == facet.Spatial {
			if bb, ok := boundingBox(e); ok {
				spatial = bb
			}
			continue
		}
		expr := expression(e)
		if expr == "" {
			continue
		}
		if c.registry.SideOf(e.Facet) == primary {
			primaryExprs = append(primaryExprs, expr)
		} else {
			otherExprs = append(otherExprs, expr)
		}
	}

	nested := &Search{
		TargetType: c.registry.TypeOf(other),
		Must:       []TextClause{NewTextClause(otherExprs...)},
	}
	top := &Search{
		TargetType: c.registry.TypeOf(primary),
		Must:       []TextClause{NewTextClause(primaryExprs...)},
		Join: &Join{
			Direction:  dir,
			TargetType: nested.TargetType,
			Nested:     nested,
		},
		Aggregations: c.aggregations(primary),
	}

	// The geo field lives on the child document.
	if spatial != nil {
		if primary == facet.ChildSide {
			top.Spatial = spatial
		} else {
			nested.Spatial = spatial
		}
	}
	return top
}

// aggregations requests one terms aggregation per aggregatable facet whose
// field is reachable from the target side.
func (c *Compiler) aggregations(side facet.Side) []TermsAggregation {
	var out []TermsAggregation
	for _, d := range c.registry.All() {
		if !d.Aggregatable() || c.registry.SideOf(d) != side {
			continue
		}
		out = append(out, TermsAggregation{Name: d.Key(), Field: d.Key(), Size: c.aggSize})
	}
	return out
}

// HasText reports whether a free-text facet is active, in which case
// results are ranked by relevance first.
func HasText(s *filter.State) bool {
	for _, e := range s.ActiveEntries() {
		if e.Facet.Kind == facet.Text {
			return true
		}
	}
	return false
}

func expression(e filter.Entry) string {
	d := e.Facet
	switch d.Kind {
	case facet.Text:
		cleaned := strings.NewReplacer("(", "", ")", "", ":", "", ".", "").Replace(e.Value)
		if d.IDField != "" && filter.IsNumeric(cleaned) {
			return "(" + d.IDField + ":" + cleaned + ")"
		}
		return "(" + d.Key() + ":" + strings.ReplaceAll(e.Value, ".", "") + ")"
	case facet.DateRange:
		parts := make([]string, len(d.RangeFields))
		for i, f := range d.RangeFields {
			parts[i] = f + ":" + e.Value
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	default:
		return "(" + d.Key() + ":" + e.Value + ")"
	}
}

func boundingBox(e filter.Entry) (*BoundingBox, bool) {
	box, err := geo.ParseBBox(e.Value)
	if err != nil {
		return nil, false
	}
	return &BoundingBox{Field: e.Facet.GeoField, Box: box}, true
}
