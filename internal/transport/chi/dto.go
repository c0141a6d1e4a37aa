package chi

import (
	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/geo"
	"github.com/kailas-cloud/picmap/internal/domain/record"
	"github.com/kailas-cloud/picmap/internal/domain/urlstate"
	searchuc "github.com/kailas-cloud/picmap/internal/usecase/search"
	"github.com/kailas-cloud/picmap/internal/usecase/session"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound           ErrorResponseCode = "not_found"
	ErrorResponseCodeSessionNotFound    ErrorResponseCode = "session_not_found"
	ErrorResponseCodeSessionClosed      ErrorResponseCode = "session_closed"
	ErrorResponseCodeInvalidFilter      ErrorResponseCode = "invalid_filter"
	ErrorResponseCodeTooManySessions    ErrorResponseCode = "too_many_sessions"
	ErrorResponseCodeRateLimited        ErrorResponseCode = "rate_limited"
	ErrorResponseCodeSearchBackendError ErrorResponseCode = "search_backend_error"
	ErrorResponseCodeSearchUnavailable  ErrorResponseCode = "search_unavailable"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// FacetResponse describes one facet and its visible options.
type FacetResponse struct {
	ID           string               `json:"id"`
	Label        string               `json:"label,omitempty"`
	Key          string               `json:"key"`
	Kind         string               `json:"kind"`
	Side         string               `json:"side"`
	Aggregatable bool                 `json:"aggregatable"`
	Options      []aggregation.Option `json:"options,omitempty"`
}

// FacetsResponse is the body of GET /v1/facets.
type FacetsResponse struct {
	ParentType string          `json:"parentType"`
	ChildType  string          `json:"childType"`
	Facets     []FacetResponse `json:"facets"`
}

// BoundsResponse frames a set of points.
type BoundsResponse struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// ConstituentPageResponse is one page of the constituent listing.
type ConstituentPageResponse struct {
	Total int64                `json:"total"`
	From  int                  `json:"from"`
	More  bool                 `json:"more"`
	Items []record.Constituent `json:"items"`
}

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Fragment     string                          `json:"fragment"`
	Mode         urlstate.ViewMode               `json:"mode"`
	Filters      map[string]string               `json:"filters"`
	Total        int64                           `json:"total"`
	Points       []record.Point                  `json:"points"`
	Bounds       *BoundsResponse                 `json:"bounds,omitempty"`
	Constituents ConstituentPageResponse         `json:"constituents"`
	Facets       map[string][]aggregation.Option `json:"facets"`
	Summary      string                          `json:"summary"`
	FromBaseData bool                            `json:"fromBaseData"`
}

// QueryResponse is the body of GET /v1/query.
type QueryResponse struct {
	Relation string `json:"relation"`
	DocType  string `json:"docType"`
	Query    string `json:"queryString"`
	Body     any    `json:"body"`
}

// AddressesResponse is the body of GET /v1/constituents/{id}/addresses.
type AddressesResponse struct {
	ConstituentID int64            `json:"constituentId"`
	Addresses     []record.Address `json:"addresses"`
}

// SessionResponse is the view of an interactive session.
type SessionResponse struct {
	ID           string                          `json:"id"`
	Generation   uint64                          `json:"generation"`
	Status       string                          `json:"status"`
	Fragment     string                          `json:"fragment"`
	Mode         urlstate.ViewMode               `json:"mode"`
	Filters      map[string]string               `json:"filters"`
	Total        int64                           `json:"total"`
	Points       []record.Point                  `json:"points"`
	Bounds       *BoundsResponse                 `json:"bounds,omitempty"`
	Constituents ConstituentPageResponse         `json:"constituents"`
	Facets       map[string][]aggregation.Option `json:"facets"`
	Summary      string                          `json:"summary"`
	FromBaseData bool                            `json:"fromBaseData"`
	Error        *ErrorResponse                  `json:"error,omitempty"`
}

// StateRequest is the body of PUT /v1/sessions/{id}/state.
type StateRequest struct {
	State string `json:"state"`
}

// FilterRequest is the body of PUT /v1/sessions/{id}/filters/{facet}.
type FilterRequest struct {
	Value string `json:"value"`
}

func boundsToResponse(b *geo.BBox) *BoundsResponse {
	if b == nil {
		return nil
	}
	return &BoundsResponse{West: b.West, South: b.South, East: b.East, North: b.North}
}

func pageToResponse(p searchuc.ConstituentPage) ConstituentPageResponse {
	items := p.Items
	if items == nil {
		items = []record.Constituent{}
	}
	return ConstituentPageResponse{Total: p.Total, From: p.From, More: p.More(), Items: items}
}

func pointsOrEmpty(pts []record.Point) []record.Point {
	if pts == nil {
		return []record.Point{}
	}
	return pts
}

func resultToResponse(res *searchuc.Result) SearchResponse {
	filters := make(map[string]string)
	for _, e := range res.State.ActiveEntries() {
		filters[e.Facet.ID] = e.Value
	}
	return SearchResponse{
		Fragment:     res.Fragment,
		Mode:         res.Mode,
		Filters:      filters,
		Total:        res.Total,
		Points:       pointsOrEmpty(res.Points),
		Bounds:       boundsToResponse(res.Bounds),
		Constituents: pageToResponse(res.Constituents),
		Facets:       res.Facets,
		Summary:      res.Summary,
		FromBaseData: res.FromBaseData,
	}
}

func snapshotToResponse(snap session.Snapshot) SessionResponse {
	resp := SessionResponse{
		ID:           snap.ID,
		Generation:   snap.Generation,
		Status:       snap.Status,
		Fragment:     snap.Fragment,
		Mode:         snap.Mode,
		Filters:      snap.Filters,
		Total:        snap.Total,
		Points:       pointsOrEmpty(snap.Points),
		Bounds:       boundsToResponse(snap.Bounds),
		Constituents: pageToResponse(snap.Constituents),
		Facets:       snap.Facets,
		Summary:      snap.Summary,
		FromBaseData: snap.FromBaseData,
	}
	if snap.Err != nil {
		resp.Error = &ErrorResponse{Code: errorCode(snap.Err), Message: safeDomainMessage(snap.Err)}
	}
	return resp
}
