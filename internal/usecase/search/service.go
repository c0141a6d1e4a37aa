package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
	"github.com/kailas-cloud/picmap/internal/domain/query"
	"github.com/kailas-cloud/picmap/internal/domain/record"
	"github.com/kailas-cloud/picmap/internal/domain/summary"
	"github.com/kailas-cloud/picmap/internal/domain/urlstate"
	"github.com/kailas-cloud/picmap/internal/logger"
	"github.com/kailas-cloud/picmap/internal/usecase/paginate"
)

// Sort orders of the constituent listing.
const (
	AlphaSort     = "AlphaSort.raw:asc"
	RelevanceSort = "_score"
	AddressSort   = "BeginDate:asc"

	// AddressCursorSort orders map pages by their unique id so the next
	// page can seek past the last hit.
	AddressCursorSort = "ConAddressID:asc"
)

// Options tune paging and the date range.
type Options struct {
	PageSize        int
	ResultLimit     int
	AggregationSize int
	MinYear         int
	MaxYear         int
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		PageSize:        1000,
		ResultLimit:     50,
		AggregationSize: query.DefaultAggregationSize,
		MinYear:         1700,
		MaxYear:         2017,
	}
}

// Service compiles filter states and runs them against the search backend.
type Service struct {
	registry  *facet.Registry
	compiler  *query.Compiler
	codec     *urlstate.Codec
	describer *summary.Describer
	applier   *aggregation.Applier
	client    Client
	vocab     VocabularyReader
	base      BaseDataReader
	opts      Options
}

// New creates a search service. base may be nil.
func New(
	r *facet.Registry, client Client, vocab VocabularyReader, base BaseDataReader, opts Options,
) *Service {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = def.ResultLimit
	}
	if opts.MinYear == 0 && opts.MaxYear == 0 {
		opts.MinYear, opts.MaxYear = def.MinYear, def.MaxYear
	}
	return &Service{
		registry:  r,
		compiler:  query.NewCompiler(r, opts.AggregationSize),
		codec:     urlstate.New(r, opts.MinYear, opts.MaxYear),
		describer: summary.NewDescriber(r, opts.MinYear, opts.MaxYear),
		applier:   aggregation.NewApplier(r),
		client:    client,
		vocab:     vocab,
		base:      base,
		opts:      opts,
	}
}

func (s *Service) Registry() *facet.Registry     { return s.registry }
func (s *Service) Codec() *urlstate.Codec        { return s.codec }
func (s *Service) Applier() *aggregation.Applier { return s.applier }
func (s *Service) Options() Options              { return s.opts }

// Compile builds the query of a state for one relation.
func (s *Service) Compile(st *filter.State, rel query.Relation) *query.Search {
	return s.compiler.Compile(st, rel)
}

// Panel creates facet widgets filled with the stored vocabularies.
func (s *Service) Panel(ctx context.Context) (aggregation.Panel, error) {
	vocab, err := s.vocab.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return aggregation.NewPanel(s.registry, vocab), nil
}

// AddressPage fetches one page of child documents matching the state.
func (s *Service) AddressPage(
	ctx context.Context, st *filter.State, req paginate.Request,
) (paginate.Page[record.Address], error) {
	resp, err := s.client.Search(ctx, query.Request{
		Query:         s.compiler.Compile(st, query.ChildPrimary),
		PageSize:      req.PageSize,
		Offset:        req.Offset,
		SearchAfter:   req.After,
		SourceFields:  record.AddressFields,
		Sort:          []string{AddressCursorSort},
		TargetDocType: s.registry.Schema().ChildType,
	})
	if err != nil {
		return paginate.Page[record.Address]{}, fmt.Errorf("search addresses: %w", err)
	}
	addrs, err := decodeHits[record.Address](resp.Hits)
	if err != nil {
		return paginate.Page[record.Address]{}, err
	}
	page := paginate.Page[record.Address]{
		Total:        resp.Total,
		Records:      addrs,
		Aggregations: resp.Aggregations,
	}
	if n := len(resp.Hits); n > 0 {
		page.After = resp.Hits[n-1].Sort
	}
	return page, nil
}

// ConstituentPage is one page of the constituent listing.
type ConstituentPage struct {
	Total        int64
	From         int
	Items        []record.Constituent
	Aggregations aggregation.Result
}

// More reports whether another page exists after this one.
func (p ConstituentPage) More() bool {
	return int64(p.From+len(p.Items)) < p.Total
}

// FetchConstituents fetches parent documents matching the state, sorted
// alphabetically, or by relevance first when a name query is active.
func (s *Service) FetchConstituents(
	ctx context.Context, st *filter.State, from, size int,
) (ConstituentPage, error) {
	sort := []string{AlphaSort}
	if query.HasText(st) {
		sort = []string{RelevanceSort, AlphaSort}
	}
	resp, err := s.client.Search(ctx, query.Request{
		Query:          s.compiler.Compile(st, query.ParentPrimary),
		PageSize:       size,
		Offset:         from,
		SourceExcludes: []string{s.registry.Schema().ChildType},
		Sort:           sort,
		TargetDocType:  s.registry.Schema().ParentType,
	})
	if err != nil {
		return ConstituentPage{}, fmt.Errorf("search constituents: %w", err)
	}
	items, err := decodeHits[record.Constituent](resp.Hits)
	if err != nil {
		return ConstituentPage{}, err
	}
	return ConstituentPage{Total: resp.Total, From: from, Items: items, Aggregations: resp.Aggregations}, nil
}

// Constituents returns one page of the listing of size ResultLimit.
func (s *Service) Constituents(ctx context.Context, st *filter.State, from int) (ConstituentPage, error) {
	if from < 0 {
		return ConstituentPage{}, fmt.Errorf("%w: negative offset %d", domain.ErrInvalidFilter, from)
	}
	return s.FetchConstituents(ctx, st, from, s.opts.ResultLimit)
}

// Addresses returns every address of one constituent ordered by begin date.
func (s *Service) Addresses(ctx context.Context, constituentID int64) ([]record.Address, error) {
	id := strconv.FormatInt(constituentID, 10)
	q := &query.Search{
		TargetType: s.registry.Schema().ChildType,
		Must:       []query.TextClause{query.NewTextClause("(ConstituentID:" + id + ")")},
	}

	p := paginate.New[record.Address](s.opts.PageSize, nil)
	err := paginate.Drain(ctx, p, func(ctx context.Context, req paginate.Request) (paginate.Page[record.Address], error) {
		resp, err := s.client.Search(ctx, query.Request{
			Query:         q,
			PageSize:      req.PageSize,
			Offset:        req.Offset,
			Sort:          []string{AddressSort},
			TargetDocType: q.TargetType,
		})
		if err != nil {
			return paginate.Page[record.Address]{}, err
		}
		addrs, err := decodeHits[record.Address](resp.Hits)
		if err != nil {
			return paginate.Page[record.Address]{}, err
		}
		return paginate.Page[record.Address]{Total: resp.Total, Records: addrs}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("constituent %s addresses: %w", id, err)
	}
	if p.Total() == 0 {
		return nil, fmt.Errorf("constituent %s: %w", id, domain.ErrNotFound)
	}
	return p.Records(), nil
}

// BasePoints returns the precomputed full address list, or false when the
// zero-filter path has to query the backend instead.
func (s *Service) BasePoints(ctx context.Context) ([]record.Point, bool) {
	if s.base == nil {
		return nil, false
	}
	pts, err := s.base.Points(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.FromContext(ctx).Warn("Base data unavailable, querying backend", zap.Error(err))
		}
		return nil, false
	}
	return pts, true
}

// BaseFacets returns the unfiltered aggregations of both document types,
// used to fill the facet panel on first load.
func (s *Service) BaseFacets(ctx context.Context) (aggregation.Result, error) {
	empty := filter.NewState(s.registry)
	out := make(aggregation.Result)
	for _, rel := range []query.Relation{query.ParentPrimary, query.ChildPrimary} {
		q := s.compiler.Compile(empty, rel)
		resp, err := s.client.Search(ctx, query.Request{
			Query:         q,
			PageSize:      0,
			TargetDocType: q.TargetType,
		})
		if err != nil {
			return nil, fmt.Errorf("base aggregations (%s): %w", rel, err)
		}
		for k, v := range resp.Aggregations {
			out[k] = v
		}
	}
	return out, nil
}

func decodeHits[T any](hits []query.Hit) ([]T, error) {
	out := make([]T, 0, len(hits))
	for _, h := range hits {
		var v T
		if err := sonic.Unmarshal(h.Source, &v); err != nil {
			return nil, fmt.Errorf("%w: decode hit %s: %v", domain.ErrSearchBackend, h.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
