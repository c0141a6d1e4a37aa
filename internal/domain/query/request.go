package query

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
)

// SortKey is the raw sort values of a hit, kept verbatim so long ids
// survive the round trip.
type SortKey []json.RawMessage

// String joins the raw values.
func (k SortKey) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}

// Request is one call to the search backend. When SearchAfter is set the
// backend seeks past that sort key instead of skipping Offset hits, which
// keeps deep pages below the backend's result window.
type Request struct {
	Query          *Search
	PageSize       int
	Offset         int
	SearchAfter    SortKey
	SourceFields   []string
	SourceExcludes []string
	Sort           []string
	TargetDocType  string
}

// Fingerprint renders the request as a canonical string. Equal requests
// have equal fingerprints.
func (r Request) Fingerprint() string {
	var b strings.Builder
	b.WriteString(r.TargetDocType)
	b.WriteString("|size=")
	b.WriteString(strconv.Itoa(r.PageSize))
	b.WriteString("|from=")
	b.WriteString(strconv.Itoa(r.Offset))
	b.WriteString("|after=")
	b.WriteString(r.SearchAfter.String())
	b.WriteString("|src=")
	b.WriteString(strings.Join(r.SourceFields, ","))
	b.WriteString("|excl=")
	b.WriteString(strings.Join(r.SourceExcludes, ","))
	b.WriteString("|sort=")
	b.WriteString(strings.Join(r.Sort, ","))
	b.WriteString("|q=")
	writeSearch(&b, r.Query)
	return b.String()
}

func writeSearch(b *strings.Builder, s *Search) {
	if s == nil {
		b.WriteString("nil")
		return
	}
	b.WriteString("{")
	b.WriteString(s.TargetType)
	for _, c := range s.Must {
		b.WriteString(" must")
		b.WriteString(c.String())
	}
	if s.Spatial != nil {
		b.WriteString(" geo:")
		b.WriteString(s.Spatial.Field)
		b.WriteString("=")
		box := s.Spatial.Box
		// Full precision; String() rounds and would merge distinct boxes.
		for i, v := range []float64{box.West, box.South, box.East, box.North} {
			if i > 0 {
				b.WriteString("_")
			}
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	for _, a := range s.Aggregations {
		b.WriteString(" agg:")
		b.WriteString(a.Name)
		b.WriteString("/")
		b.WriteString(a.Field)
		b.WriteString("/")
		b.WriteString(strconv.Itoa(a.Size))
	}
	if s.Join != nil {
		b.WriteString(" ")
		b.WriteString(s.Join.Direction.String())
		b.WriteString(":")
		b.WriteString(s.Join.TargetType)
		writeSearch(b, s.Join.Nested)
	}
	b.WriteString("}")
}

// Hit is one matching document. Source is the raw JSON document; Sort is
// set when the request was sorted.
type Hit struct {
	ID     string
	Score  float64
	Source []byte
	Sort   SortKey
}

// Response is the backend answer to a Request.
type Response struct {
	Total        int64
	Hits         []Hit
	Aggregations aggregation.Result
}
