package session

import (
	"context"

	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
	"github.com/kailas-cloud/picmap/internal/domain/record"
	"github.com/kailas-cloud/picmap/internal/domain/summary"
	"github.com/kailas-cloud/picmap/internal/domain/urlstate"
	"github.com/kailas-cloud/picmap/internal/usecase/paginate"
	"github.com/kailas-cloud/picmap/internal/usecase/search"
)

// Engine is the part of the search service a session drives.
type Engine interface {
	Registry() *facet.Registry
	Codec() *urlstate.Codec
	Applier() *aggregation.Applier
	Options() search.Options
	Panel(ctx context.Context) (aggregation.Panel, error)
	AddressPage(ctx context.Context, st *filter.State, req paginate.Request) (paginate.Page[record.Address], error)
	FetchConstituents(ctx context.Context, st *filter.State, from, size int) (search.ConstituentPage, error)
	BasePoints(ctx context.Context) ([]record.Point, bool)
	Describe(st *filter.State, totals summary.Totals, panel aggregation.Panel) string
}
