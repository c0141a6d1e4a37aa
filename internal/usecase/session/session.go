// Package session keeps interactive filter sessions. Every session is owned
// by one goroutine: filter state, pagination and facet widgets are only
// touched there. Backend fetches run on their own goroutines and report back
// tagged with the generation they were started for.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
	"github.com/kailas-cloud/picmap/internal/domain/geo"
	"github.com/kailas-cloud/picmap/internal/domain/record"
	"github.com/kailas-cloud/picmap/internal/domain/summary"
	"github.com/kailas-cloud/picmap/internal/domain/urlstate"
	"github.com/kailas-cloud/picmap/internal/logger"
	"github.com/kailas-cloud/picmap/internal/metrics"
	"github.com/kailas-cloud/picmap/internal/usecase/paginate"
	"github.com/kailas-cloud/picmap/internal/usecase/search"
)

type command struct {
	fn  func()
	ack chan struct{}
}

type completionKind int

const (
	addressPage completionKind = iota
	constituentPage
)

func (k completionKind) String() string {
	if k == constituentPage {
		return "constituents"
	}
	return "addresses"
}

type completion struct {
	kind completionKind
	gen  uint64
	page paginate.Page[record.Address]
	cons search.ConstituentPage
	more bool
	err  error
}

// Snapshot is a consistent view of a session.
type Snapshot struct {
	ID           string                          `json:"id"`
	Generation   uint64                          `json:"generation"`
	Status       string                          `json:"status"`
	Filters      map[string]string               `json:"filters"`
	Fragment     string                          `json:"fragment"`
	Mode         urlstate.ViewMode               `json:"mode"`
	Total        int64                           `json:"total"`
	Points       []record.Point                  `json:"points"`
	Bounds       *geo.BBox                       `json:"bounds,omitempty"`
	Constituents search.ConstituentPage          `json:"-"`
	Facets       map[string][]aggregation.Option `json:"facets"`
	Summary      string                          `json:"summary"`
	FromBaseData bool                            `json:"fromBaseData"`
	Err          error                           `json:"-"`
}

// Idle reports whether the snapshot's generation has finished.
func (s Snapshot) Idle() bool { return s.Status == paginate.Done.String() }

// Session is one interactive filter session.
type Session struct {
	id     string
	engine Engine
	ctx    context.Context
	stop   context.CancelFunc
	log    *zap.Logger

	cmds    chan command
	results chan completion
	done    chan struct{}

	lastUsed atomic.Int64

	// Owned by the loop goroutine.
	state     *filter.State
	mode      urlstate.ViewMode
	panel     aggregation.Panel
	widgets   map[string]aggregation.Widget
	base      []record.Point
	hasBase   bool
	pager     *paginate.Paginator[record.Address]
	points    []record.Point
	fromBase  bool
	cons      search.ConstituentPage
	consDone  bool
	consBusy  bool
	genCtx    context.Context
	genCancel context.CancelFunc
	genState  *filter.State
	waiters   []chan Snapshot
	err       error
}

func newSession(
	ctx context.Context, id string, engine Engine, panel aggregation.Panel,
	st *filter.State, mode urlstate.ViewMode,
) *Session {
	ctx, stop := context.WithCancel(ctx)
	ctx, log := logger.WithSession(ctx, id)

	s := &Session{
		id:      id,
		engine:  engine,
		ctx:     ctx,
		stop:    stop,
		log:     log,
		cmds:    make(chan command),
		results: make(chan completion),
		done:    make(chan struct{}),
		state:   st,
		mode:    mode,
		panel:   panel,
		widgets: panel.Widgets(),
	}
	s.base, s.hasBase = engine.BasePoints(ctx)
	s.pager = paginate.New[record.Address](engine.Options().PageSize, func(res aggregation.Result) {
		engine.Applier().Apply(res, s.widgets)
	})
	s.touch(time.Now())
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

func (s *Session) start() {
	go s.loop()
	_ = s.exec(s.ctx, s.restart)
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			if s.genCancel != nil {
				s.genCancel()
			}
			return
		case cmd := <-s.cmds:
			cmd.fn()
			close(cmd.ack)
		case c := <-s.results:
			s.handle(c)
		}
	}
}

// exec runs fn on the loop goroutine and waits for it to finish.
func (s *Session) exec(ctx context.Context, fn func()) error {
	ack := make(chan struct{})
	select {
	case s.cmds <- command{fn: fn, ack: ack}:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		s.touch(time.Now())
		return nil
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restart begins a new generation for the current state. Outstanding
// fetches of the previous generation are cancelled and their completions
// will be dropped.
func (s *Session) restart() {
	if s.genCancel != nil {
		s.genCancel()
	}
	s.genCtx, s.genCancel = context.WithCancel(s.ctx)
	s.genState = s.state.Clone()
	s.panel.Sync(s.state)
	s.points = nil
	s.fromBase = false
	s.cons = search.ConstituentPage{}
	s.consDone = false
	s.consBusy = false
	s.err = nil

	var gen uint64
	if len(s.state.ActiveEntries()) == 0 && s.hasBase {
		gen = s.pager.Complete(nil)
		s.points = append([]record.Point(nil), s.base...)
		s.fromBase = true
		s.panel.ShowAll()
		metrics.GenerationsTotal.WithLabelValues("base").Inc()
	} else {
		req := s.pager.Begin()
		gen = req.Generation
		go s.fetchAddresses(s.genCtx, s.genState, req)
	}
	s.consBusy = true
	go s.fetchConstituents(s.genCtx, s.genState, gen, 0, false)
	s.log.Debug("Generation started", zap.Uint64("generation", gen), zap.Bool("base_data", s.fromBase))
}

func (s *Session) fetchAddresses(ctx context.Context, st *filter.State, req paginate.Request) {
	page, err := s.engine.AddressPage(ctx, st, req)
	s.deliver(completion{kind: addressPage, gen: req.Generation, page: page, err: err})
}

func (s *Session) fetchConstituents(ctx context.Context, st *filter.State, gen uint64, from int, more bool) {
	page, err := s.engine.FetchConstituents(ctx, st, from, s.engine.Options().ResultLimit)
	s.deliver(completion{kind: constituentPage, gen: gen, cons: page, more: more, err: err})
}

func (s *Session) deliver(c completion) {
	select {
	case s.results <- c:
	case <-s.ctx.Done():
	}
}

func (s *Session) handle(c completion) {
	if c.gen != s.pager.Generation() {
		s.dropStale(c)
		return
	}
	switch c.kind {
	case addressPage:
		s.handleAddresses(c)
	case constituentPage:
		s.handleConstituents(c)
	}
	s.notify()
}

func (s *Session) dropStale(c completion) {
	metrics.StaleResponsesTotal.WithLabelValues(c.kind.String()).Inc()
	s.log.Debug("Stale response dropped",
		zap.String("kind", c.kind.String()),
		zap.Uint64("generation", c.gen),
		zap.Uint64("current", s.pager.Generation()),
	)
}

func (s *Session) handleAddresses(c completion) {
	if c.err != nil {
		if err := s.pager.Fail(c.gen, c.err); err != nil {
			s.dropStale(c)
			return
		}
		s.err = c.err
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		s.log.Warn("Generation failed", zap.Uint64("generation", c.gen), zap.Error(c.err))
		return
	}

	next, more, err := s.pager.Receive(c.gen, c.page)
	if err != nil {
		s.dropStale(c)
		return
	}
	metrics.PagesFetchedTotal.Inc()
	s.points = append(s.points, search.Points(c.page.Records)...)
	if more {
		go s.fetchAddresses(s.genCtx, s.genState, next)
		return
	}
	metrics.GenerationsTotal.WithLabelValues("done").Inc()
	s.log.Debug("Generation done",
		zap.Uint64("generation", c.gen),
		zap.Int64("total", s.pager.Total()),
		zap.Int("fetches", s.pager.Fetches()),
	)
}

func (s *Session) handleConstituents(c completion) {
	s.consBusy = false
	if c.err != nil {
		if !errors.Is(c.err, context.Canceled) {
			s.err = fmt.Errorf("constituents: %w", c.err)
			s.log.Warn("Constituent fetch failed", zap.Uint64("generation", c.gen), zap.Error(c.err))
		}
		s.consDone = true
		return
	}
	if c.more {
		s.cons.Items = append(s.cons.Items, c.cons.Items...)
		s.cons.Total = c.cons.Total
		return
	}
	s.cons = c.cons
	s.consDone = true
	s.engine.Applier().Apply(c.cons.Aggregations, s.widgets)
}

func (s *Session) idle() bool {
	return s.pager.State() == paginate.Done && s.consDone && !s.consBusy
}

func (s *Session) notify() {
	if !s.idle() || len(s.waiters) == 0 {
		return
	}
	snap := s.snapshot()
	for _, w := range s.waiters {
		w <- snap
	}
	s.waiters = nil
}

func (s *Session) snapshot() Snapshot {
	filters := make(map[string]string)
	for _, e := range s.state.ActiveEntries() {
		filters[e.Facet.ID] = e.Value
	}

	total := s.pager.Total()
	if s.fromBase {
		total = int64(len(s.points))
	}
	consTotal := int64(-1)
	if s.consDone {
		consTotal = s.cons.Total
	}
	points := append([]record.Point(nil), s.points...)
	cons := s.cons
	cons.Items = append([]record.Constituent(nil), s.cons.Items...)

	status := s.pager.State().String()
	if s.pager.State() == paginate.Done && !s.idle() {
		status = paginate.Fetching.String()
	}
	return Snapshot{
		ID:           s.id,
		Generation:   s.pager.Generation(),
		Status:       status,
		Filters:      filters,
		Fragment:     s.engine.Codec().Encode(s.state, s.mode),
		Mode:         s.mode,
		Total:        total,
		Points:       points,
		Bounds:       search.Bounds(points),
		Constituents: cons,
		Facets:       s.panel.Snapshot(),
		Summary:      s.engine.Describe(s.state, summary.Totals{Locations: total, Constituents: consTotal}, s.panel),
		FromBaseData: s.fromBase,
		Err:          s.err,
	}
}

// SetFilter sets one facet and starts a new generation when the value changed.
func (s *Session) SetFilter(ctx context.Context, facetID, value string) error {
	var err error
	if xerr := s.exec(ctx, func() {
		prev := s.state.Value(facetID)
		if err = s.state.Set(facetID, value); err != nil {
			return
		}
		if s.state.Value(facetID) != prev {
			s.restart()
		}
	}); xerr != nil {
		return xerr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return nil
}

// ResetFilter sets one facet back to the wildcard.
func (s *Session) ResetFilter(ctx context.Context, facetID string) error {
	return s.SetFilter(ctx, facetID, filter.Wildcard)
}

// ResetAll clears every facet.
func (s *Session) ResetAll(ctx context.Context) error {
	return s.exec(ctx, func() {
		if len(s.state.ActiveEntries()) == 0 && s.pager.State() != paginate.Idle {
			return
		}
		s.state.ResetAll()
		s.restart()
	})
}

// SetFragment replaces the whole state with a decoded URL fragment. Facets
// absent from the fragment are reset.
func (s *Session) SetFragment(ctx context.Context, fragment string) error {
	return s.exec(ctx, func() {
		st, frag := s.engine.Codec().DecodeState(fragment)
		s.mode = frag.Mode
		if st.Equal(s.state) && s.pager.State() != paginate.Idle {
			return
		}
		s.state = st
		s.restart()
	})
}

// MoreConstituents loads the next constituent page of the current
// generation. It is a no-op when nothing more exists or a fetch is running.
func (s *Session) MoreConstituents(ctx context.Context) error {
	return s.exec(ctx, func() {
		if !s.consDone || s.consBusy || !s.cons.More() {
			return
		}
		s.consBusy = true
		from := s.cons.From + len(s.cons.Items)
		go s.fetchConstituents(s.genCtx, s.genState, s.pager.Generation(), from, true)
	})
}

// Snapshot returns the current view without waiting.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := s.exec(ctx, func() { snap = s.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Wait blocks until the current generation has finished and returns its view.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	ch := make(chan Snapshot, 1)
	if err := s.exec(ctx, func() {
		if s.idle() {
			ch <- s.snapshot()
			return
		}
		s.waiters = append(s.waiters, ch)
	}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-ch:
		return snap, nil
	case <-s.done:
		return Snapshot{}, domain.ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Close stops the loop and cancels outstanding fetches.
func (s *Session) Close() {
	s.stop()
	<-s.done
}
