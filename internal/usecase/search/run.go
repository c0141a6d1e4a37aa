package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
	"github.com/kailas-cloud/picmap/internal/domain/geo"
	"github.com/kailas-cloud/picmap/internal/domain/record"
	"github.com/kailas-cloud/picmap/internal/domain/summary"
	"github.com/kailas-cloud/picmap/internal/domain/urlstate"
	"github.com/kailas-cloud/picmap/internal/usecase/paginate"
)

// Result is the outcome of one filter state.
type Result struct {
	State        *filter.State
	Mode         urlstate.ViewMode
	Fragment     string
	Total        int64
	Points       []record.Point
	Bounds       *geo.BBox
	Constituents ConstituentPage
	Facets       map[string][]aggregation.Option
	Summary      string
	FromBaseData bool
}

// Search decodes a URL fragment and runs it to completion.
func (s *Service) Search(ctx context.Context, fragment string) (*Result, error) {
	st, frag := s.codec.DecodeState(fragment)
	return s.Run(ctx, st, frag.Mode)
}

// Run fetches every address page of the state plus the first constituent
// page and drills the facet panel down with their aggregations.
func (s *Service) Run(ctx context.Context, st *filter.State, mode urlstate.ViewMode) (*Result, error) {
	panel, err := s.Panel(ctx)
	if err != nil {
		return nil, err
	}
	panel.Sync(st)
	widgets := panel.Widgets()

	p := paginate.New[record.Address](s.opts.PageSize, func(res aggregation.Result) {
		s.applier.Apply(res, widgets)
	})

	var points []record.Point
	fromBase := false
	if len(st.ActiveEntries()) == 0 {
		if base, ok := s.BasePoints(ctx); ok {
			points, fromBase = base, true
		}
	}
	if !fromBase {
		err = paginate.Drain(ctx, p, func(ctx context.Context, req paginate.Request) (paginate.Page[record.Address], error) {
			return s.AddressPage(ctx, st, req)
		})
		if err != nil {
			return nil, fmt.Errorf("paginate addresses: %w", err)
		}
		points = Points(p.Records())
	}

	cons, err := s.Constituents(ctx, st, 0)
	if err != nil {
		return nil, err
	}
	s.applier.Apply(cons.Aggregations, widgets)

	total := int64(len(points))
	if !fromBase {
		total = p.Total()
	}
	return &Result{
		State:        st,
		Mode:         mode,
		Fragment:     s.codec.Encode(st, mode),
		Total:        total,
		Points:       points,
		Bounds:       Bounds(points),
		Constituents: cons,
		Facets:       panel.Snapshot(),
		Summary:      s.Describe(st, summary.Totals{Locations: total, Constituents: cons.Total}, panel),
		FromBaseData: fromBase,
	}, nil
}

// AllPoints drains the unfiltered address set from the backend, ignoring
// any stored base data. The base data is built from it.
func (s *Service) AllPoints(ctx context.Context) ([]record.Point, error) {
	st := filter.NewState(s.registry)
	p := paginate.New[record.Address](s.opts.PageSize, nil)
	err := paginate.Drain(ctx, p, func(ctx context.Context, req paginate.Request) (paginate.Page[record.Address], error) {
		return s.AddressPage(ctx, st, req)
	})
	if err != nil {
		return nil, fmt.Errorf("paginate all addresses: %w", err)
	}
	return Points(p.Records()), nil
}

// Describe renders the human summary with labels from the panel.
func (s *Service) Describe(st *filter.State, totals summary.Totals, panel aggregation.Panel) string {
	return s.describer.Describe(st, totals, func(id, v string) string {
		if w, ok := panel[id]; ok {
			return w.Label(v)
		}
		return v
	})
}

// Points converts addresses to map points, dropping unlocated ones.
func Points(addrs []record.Address) []record.Point {
	out := make([]record.Point, 0, len(addrs))
	for _, a := range addrs {
		if pt, ok := record.PointOf(a); ok {
			out = append(out, pt)
		}
	}
	return out
}

// Bounds frames the points, or nil when there are none.
func Bounds(points []record.Point) *geo.BBox {
	b := geo.NewBounds(geo.DefaultPadding)
	for _, pt := range points {
		b.Extend(pt.Lat, pt.Lon)
	}
	box, ok := b.Box()
	if !ok {
		return nil
	}
	return &box
}
