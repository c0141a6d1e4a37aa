package elastic

import (
	"strings"

	"github.com/kailas-cloud/picmap/internal/domain/query"
)

type object = map[string]any

// requestBody renders the search body of a request. The join field term
// restricts the top level to the target doc type.
func requestBody(req query.Request, joinField string) object {
	body := object{
		"query":            searchClause(req.Query, joinField, true),
		"size":             req.PageSize,
		"track_total_hits": true,
	}
	if len(req.SearchAfter) > 0 {
		body["search_after"] = req.SearchAfter
	} else {
		body["from"] = req.Offset
	}
	if aggs := aggregations(req.Query); len(aggs) > 0 {
		body["aggs"] = aggs
	}
	if len(req.Sort) > 0 {
		body["sort"] = sortClause(req.Sort)
	}
	if src := sourceClause(req); src != nil {
		body["_source"] = src
	}
	return body
}

func searchClause(s *query.Search, joinField string, top bool) object {
	if s == nil {
		return object{"match_all": object{}}
	}

	must := make([]any, 0, len(s.Must))
	for _, c := range s.Must {
		if c.IsMatchAll() {
			continue
		}
		must = append(must, object{"query_string": object{"query": c.String()}})
	}
	if len(must) == 0 {
		must = append(must, object{"match_all": object{}})
	}

	var filter []any
	if top && joinField != "" && s.TargetType != "" {
		filter = append(filter, object{"term": object{joinField: s.TargetType}})
	}
	if s.Spatial != nil {
		filter = append(filter, boundingBox(s.Spatial))
	}
	if s.Join != nil && s.Join.Nested != nil {
		filter = append(filter, object{
			s.Join.Direction.String(): object{
				joinTypeKey(s.Join.Direction): s.Join.TargetType,
				"query":                       searchClause(s.Join.Nested, joinField, false),
			},
		})
	}

	b := object{"must": must}
	if len(filter) > 0 {
		b["filter"] = filter
	}
	return object{"bool": b}
}

// joinTypeKey names the related type: has_child takes "type", has_parent
// takes "parent_type".
func joinTypeKey(d query.Direction) string {
	if d == query.HasParent {
		return "parent_type"
	}
	return "type"
}

func boundingBox(bb *query.BoundingBox) object {
	return object{
		"geo_bounding_box": object{
			bb.Field: object{
				"top_left":     object{"lat": bb.Box.North, "lon": bb.Box.West},
				"bottom_right": object{"lat": bb.Box.South, "lon": bb.Box.East},
			},
		},
	}
}

func aggregations(s *query.Search) object {
	if s == nil || len(s.Aggregations) == 0 {
		return nil
	}
	out := make(object, len(s.Aggregations))
	for _, a := range s.Aggregations {
		out[a.Name] = object{"terms": object{"field": a.Field, "size": a.Size}}
	}
	return out
}

// sortClause converts "field:dir" specs. A bare field sorts ascending,
// except _score which keeps its natural order.
func sortClause(specs []string) []any {
	out := make([]any, 0, len(specs))
	for _, spec := range specs {
		field, dir, ok := strings.Cut(spec, ":")
		if !ok {
			out = append(out, field)
			continue
		}
		out = append(out, object{field: object{"order": dir}})
	}
	return out
}

func sourceClause(req query.Request) any {
	if len(req.SourceFields) == 0 && len(req.SourceExcludes) == 0 {
		return nil
	}
	src := object{}
	if len(req.SourceFields) > 0 {
		src["includes"] = req.SourceFields
	}
	if len(req.SourceExcludes) > 0 {
		src["excludes"] = req.SourceExcludes
	}
	return src
}
