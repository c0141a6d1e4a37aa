package picmap

import (
	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/geo"
	"github.com/kailas-cloud/picmap/internal/domain/record"
	"github.com/kailas-cloud/picmap/internal/domain/urlstate"
	searchuc "github.com/kailas-cloud/picmap/internal/usecase/search"
	"github.com/kailas-cloud/picmap/internal/usecase/session"
)

// Record types returned by the backend.
type (
	Point       = record.Point
	Address     = record.Address
	Constituent = record.Constituent
	FacetOption = aggregation.Option
	BBox        = geo.BBox
	ViewMode    = urlstate.ViewMode
)

// View modes carried in the "mode" fragment key.
const (
	ModeMorphing = urlstate.ModeMorphing
	ModeColumbus = urlstate.ModeColumbus
	Mode2D       = urlstate.Mode2D
	Mode3D       = urlstate.Mode3D
)

// Facet describes one filter dimension and its currently visible options.
type Facet struct {
	ID           string
	Label        string
	Key          string // fragment key
	Kind         string // terms, text, date_range, spatial
	Side         string // parent or child
	Aggregatable bool
	Options      []FacetOption
}

// ConstituentPage is one page of the constituent listing.
type ConstituentPage struct {
	Total int64
	From  int
	More  bool
	Items []Constituent
}

// Result is the outcome of one filter state.
type Result struct {
	Fragment     string // canonical fragment of the state
	Mode         ViewMode
	Filters      map[string]string // facet id → active value
	Total        int64
	Points       []Point
	Bounds       *BBox
	Constituents ConstituentPage
	Facets       map[string][]FacetOption
	Summary      string
	FromBaseData bool
}

// CompiledQuery is a filter state compiled for one document type.
type CompiledQuery struct {
	Relation    string // parent or child
	DocType     string
	QueryString string
	Body        []byte // Elasticsearch request body, nil without a backend
}

// SessionView is a consistent view of an interactive session.
type SessionView struct {
	ID         string
	Generation uint64
	Status     string // idle, fetching, done
	Result
	Err error // failure of the current generation
}

func pageFromDomain(p searchuc.ConstituentPage) ConstituentPage {
	return ConstituentPage{Total: p.Total, From: p.From, More: p.More(), Items: p.Items}
}

func resultFromDomain(r *searchuc.Result) *Result {
	filters := make(map[string]string)
	for _, e := range r.State.ActiveEntries() {
		filters[e.Facet.ID] = e.Value
	}
	return &Result{
		Fragment:     r.Fragment,
		Mode:         r.Mode,
		Filters:      filters,
		Total:        r.Total,
		Points:       r.Points,
		Bounds:       r.Bounds,
		Constituents: pageFromDomain(r.Constituents),
		Facets:       r.Facets,
		Summary:      r.Summary,
		FromBaseData: r.FromBaseData,
	}
}

func viewFromDomain(s session.Snapshot) SessionView {
	return SessionView{
		ID:         s.ID,
		Generation: s.Generation,
		Status:     s.Status,
		Result: Result{
			Fragment:     s.Fragment,
			Mode:         s.Mode,
			Filters:      s.Filters,
			Total:        s.Total,
			Points:       s.Points,
			Bounds:       s.Bounds,
			Constituents: pageFromDomain(s.Constituents),
			Facets:       s.Facets,
			Summary:      s.Summary,
			FromBaseData: s.FromBaseData,
		},
		Err: s.Err,
	}
}
