// Package paginate drives the pagination of one result set. Each filter
// change starts a new generation; responses are tagged with the generation
// they were requested for and stale ones are dropped. The offset always
// advances; a page that reports a sort key also moves the seek cursor, so
// backends with a bounded result window can page past it.
package paginate

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

// ErrStaleGeneration is returned for a completion of a superseded generation.
var ErrStaleGeneration = errors.New("stale generation")

// ErrNotFetching is returned for a completion that arrives after its
// generation already finished.
var ErrNotFetching = errors.New("generation not fetching")

// State of the paginator.
type State int

const (
	Idle State = iota
	Fetching
	Done
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Done:
		return "done"
	default:
		return "idle"
	}
}

// Request is the next page to fetch.
type Request struct {
	Generation uint64
	Offset     int
	PageSize   int
	// After is the sort key of the last record received, nil on the first
	// page or when the backend pages by offset only.
	After query.SortKey
}

// Page is one backend response. After is the sort key of its last record.
type Page[T any] struct {
	Total        int64
	Records      []T
	Aggregations aggregation.Result
	After        query.SortKey
}

// AggregationSink receives the aggregations of the first page of a
// generation. Aggregations cover the whole filtered set, so later pages are
// not merged.
type AggregationSink func(aggregation.Result)

// Paginator is a pure state machine; it performs no I/O and is not safe for
// concurrent use.
type Paginator[T any] struct {
	pageSize int
	sink     AggregationSink

	state   State
	gen     uint64
	offset  int
	after   query.SortKey
	total   int64
	fetches int
	records []T
	err     error
}

// New creates a paginator. sink may be nil.
func New[T any](pageSize int, sink AggregationSink) *Paginator[T] {
	if pageSize <= 0 {
		panic(fmt.Sprintf("paginate: page size must be positive, got %d", pageSize))
	}
	return &Paginator[T]{pageSize: pageSize, sink: sink}
}

// Begin starts a new generation, discarding the previous one, and returns
// the first request.
func (p *Paginator[T]) Begin() Request {
	p.gen++
	p.state = Fetching
	p.offset = 0
	p.after = nil
	p.total = 0
	p.fetches = 0
	p.records = nil
	p.err = nil
	return p.request()
}

// Receive merges a page. It returns the next request and true while more
// pages remain.
func (p *Paginator[T]) Receive(gen uint64, page Page[T]) (Request, bool, error) {
	if err := p.check(gen); err != nil {
		return Request{}, false, err
	}

	p.fetches++
	if p.fetches == 1 && p.sink != nil && page.Aggregations != nil {
		p.sink(page.Aggregations)
	}
	p.total = page.Total
	p.records = append(p.records, page.Records...)

	if int64(p.offset+p.pageSize) < p.total {
		p.offset += p.pageSize
		p.after = page.After
		return p.request(), true, nil
	}
	p.state = Done
	return Request{}, false, nil
}

// Fail terminates the generation with an error. No retry is attempted.
func (p *Paginator[T]) Fail(gen uint64, err error) error {
	if cerr := p.check(gen); cerr != nil {
		return cerr
	}
	p.state = Done
	p.err = err
	return nil
}

// Complete installs a precomputed full result set as a finished generation
// without fetching. It returns the new generation.
func (p *Paginator[T]) Complete(records []T) uint64 {
	p.gen++
	p.state = Done
	p.offset = 0
	p.after = nil
	p.fetches = 0
	p.err = nil
	p.records = append([]T(nil), records...)
	p.total = int64(len(records))
	return p.gen
}

func (p *Paginator[T]) check(gen uint64) error {
	if gen != p.gen {
		return fmt.Errorf("%w: got %d, current %d", ErrStaleGeneration, gen, p.gen)
	}
	if p.state != Fetching {
		return fmt.Errorf("%w: generation %d is %s", ErrNotFetching, gen, p.state)
	}
	return nil
}

func (p *Paginator[T]) request() Request {
	return Request{Generation: p.gen, Offset: p.offset, PageSize: p.pageSize, After: p.after}
}

func (p *Paginator[T]) State() State       { return p.state }
func (p *Paginator[T]) Generation() uint64 { return p.gen }
func (p *Paginator[T]) PageSize() int      { return p.pageSize }
func (p *Paginator[T]) Offset() int        { return p.offset }
func (p *Paginator[T]) Total() int64       { return p.total }
func (p *Paginator[T]) Fetches() int       { return p.fetches }
func (p *Paginator[T]) Err() error         { return p.err }

// Accumulated returns the number of records merged so far.
func (p *Paginator[T]) Accumulated() int { return len(p.records) }

// Records returns the merged records. The slice is owned by the paginator
// until the next Begin or Complete.
func (p *Paginator[T]) Records() []T { return p.records }
