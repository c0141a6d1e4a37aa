package picmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/picmap/internal/db/redis"
	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
	"github.com/kailas-cloud/picmap/internal/domain/query"
	"github.com/kailas-cloud/picmap/internal/repository/basedata"
	"github.com/kailas-cloud/picmap/internal/repository/searchcache"
	"github.com/kailas-cloud/picmap/internal/repository/vocabulary"
	"github.com/kailas-cloud/picmap/internal/transport/elastic"
	"github.com/kailas-cloud/picmap/internal/transport/resilient"
	healthuc "github.com/kailas-cloud/picmap/internal/usecase/health"
	searchuc "github.com/kailas-cloud/picmap/internal/usecase/search"
	"github.com/kailas-cloud/picmap/internal/usecase/session"
)

const defaultReadinessTimeout = 10 * time.Second

// searchBackend executes compiled queries.
type searchBackend interface {
	Search(ctx context.Context, req query.Request) (query.Response, error)
}

// staticVocabulary serves vocabularies given at construction.
type staticVocabulary map[string]map[string]string

func (v staticVocabulary) Load(_ context.Context) (map[string]map[string]string, error) {
	return v, nil
}

// Client is the picmap SDK entry point.
type Client struct {
	store    *dbRedis.Store  // nil without WithValkey/WithRedis
	es       *elastic.Client // nil when the backend is injected
	backend  *resilient.Client
	search   *searchuc.Service
	sessions *session.Manager
	health   *healthuc.Service
	cache    *searchcache.Client
	vocab    *vocabulary.Repo
	base     *basedata.Repo
	obs      *observer

	stopSessions context.CancelFunc
	sessionsDone chan struct{}
}

// New creates a Client. The provided context is used for the initial
// readiness check of the key-value store.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.backend == nil && len(cfg.esAddrs) == 0 {
		return nil, errors.New("picmap: search backend address required (use WithElasticsearch)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store *dbRedis.Store
	if len(cfg.addrs) > 0 {
		store, err = createStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func createStore(ctx context.Context, cfg *clientConfig) (*dbRedis.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
	default:
		return nil, fmt.Errorf("picmap: unknown driver %q", cfg.driver)
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("picmap: create %s store: %w", cfg.driver, err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("picmap: database not ready: %w", err)
	}
	return s, nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	c := &Client{store: store, obs: obs}

	inner := cfg.backend
	if inner == nil {
		es, err := elastic.New(elastic.Config{
			Addresses: cfg.esAddrs,
			Username:  cfg.esUsername,
			Password:  cfg.esPassword,
			Index:     cfg.index,
			JoinField: cfg.joinField,
			Timeout:   cfg.timeout,
			Transport: cfg.transport,
		})
		if err != nil {
			return nil, fmt.Errorf("picmap: create search client: %w", err)
		}
		c.es = es
		inner = es
	}

	c.backend = resilient.New(inner, cfg.resilience, zap.NewNop())
	var client searchuc.Client = c.backend
	if store != nil {
		c.cache = searchcache.New(client, store, cfg.keyPrefix, cfg.cacheTTL, nil)
		if cfg.cacheTTL > 0 {
			client = c.cache
		}
	}

	registry := facet.DefaultCatalog()

	// Pass nil interfaces (not typed nil pointers) when the store is absent.
	var vocab searchuc.VocabularyReader = staticVocabulary(cfg.vocabulary)
	var base searchuc.BaseDataReader
	if store != nil {
		c.vocab = vocabulary.New(store, cfg.keyPrefix, registry, nil)
		c.base = basedata.New(store, cfg.keyPrefix)
		base = c.base
		if cfg.vocabulary == nil {
			vocab = c.vocab
		}
	}
	c.search = searchuc.New(registry, client, vocab, base, cfg.search)

	c.sessions = session.NewManager(c.search, session.Options{
		TTL:         cfg.sessionTTL,
		MaxSessions: cfg.maxSessions,
	})
	runCtx, cancel := context.WithCancel(context.Background())
	c.stopSessions = cancel
	c.sessionsDone = make(chan struct{})
	go func() {
		defer close(c.sessionsDone)
		c.sessions.Run(runCtx)
	}()

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	var checker healthuc.SearchChecker
	if c.es != nil {
		checker = c.es
	}
	c.health = healthuc.New(pinger, checker).WithBreaker(c.backend)
	return c, nil
}

// Close closes every session and releases all resources.
func (c *Client) Close() {
	if c.stopSessions != nil {
		c.stopSessions()
		<-c.sessionsDone
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks connectivity of the key-value store and the search backend.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store != nil {
		if err = c.store.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
	}
	if c.es != nil {
		if err = c.es.HealthCheck(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
	}
	return nil
}

// Facets returns every facet with the options present in the unfiltered index.
func (c *Client) Facets(ctx context.Context) (_ []Facet, err error) {
	start := time.Now()
	defer func() { c.obs.observe("facets", start, err) }()

	panel, err := c.search.Panel(ctx)
	if err != nil {
		return nil, err
	}
	base, err := c.search.BaseFacets(ctx)
	if err != nil {
		return nil, err
	}
	c.search.Applier().Apply(base, panel.Widgets())
	options := panel.Snapshot()

	reg := c.search.Registry()
	out := make([]Facet, 0, reg.Len())
	for _, d := range reg.All() {
		out = append(out, Facet{
			ID:           d.ID,
			Label:        d.Label,
			Key:          d.Key(),
			Kind:         d.Kind.String(),
			Side:         reg.SideOf(d).String(),
			Aggregatable: d.Aggregatable(),
			Options:      options[d.ID],
		})
	}
	return out, nil
}

// Search runs the filter state of a URL fragment to completion.
func (c *Client) Search(ctx context.Context, fragment string) (_ *Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	res, err := c.search.Search(ctx, fragment)
	if err != nil {
		return nil, err
	}
	return resultFromDomain(res), nil
}

// Query compiles the filter state of a fragment for "parent" or "child"
// documents without running it.
func (c *Client) Query(fragment, relation string) (*CompiledQuery, error) {
	rel, ok := query.ParseRelation(relation)
	if !ok {
		return nil, fmt.Errorf("%w: relation %q", domain.ErrInvalidFilter, relation)
	}
	st, _ := c.search.Codec().DecodeState(fragment)
	q := c.search.Compile(st, rel)

	parts := make([]string, len(q.Must))
	for i, clause := range q.Must {
		parts[i] = clause.String()
	}
	out := &CompiledQuery{
		Relation:    rel.String(),
		DocType:     q.TargetType,
		QueryString: strings.Join(parts, " AND "),
	}
	if c.es != nil {
		body, err := c.es.Body(query.Request{
			Query:         q,
			PageSize:      c.search.Options().PageSize,
			TargetDocType: q.TargetType,
		})
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	return out, nil
}

// Constituents returns one page of the constituents matching a fragment.
func (c *Client) Constituents(ctx context.Context, fragment string, from int) (_ ConstituentPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("constituents", start, err) }()

	st, _ := c.search.Codec().DecodeState(fragment)
	page, err := c.search.Constituents(ctx, st, from)
	if err != nil {
		return ConstituentPage{}, err
	}
	return pageFromDomain(page), nil
}

// Addresses returns every address of one constituent ordered by begin date.
func (c *Client) Addresses(ctx context.Context, constituentID int64) (_ []Address, err error) {
	start := time.Now()
	defer func() { c.obs.observe("addresses", start, err) }()

	return c.search.Addresses(ctx, constituentID)
}

// Encode renders filters (facet id → value) and a view mode as a canonical fragment.
func (c *Client) Encode(filters map[string]string, mode ViewMode) (string, error) {
	st := filter.NewState(c.search.Registry())
	for id, v := range filters {
		if err := st.Set(id, v); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
	}
	return c.search.Codec().Encode(st, mode), nil
}

// Decode parses a fragment into its active filters and view mode. Keys that
// do not name a facet are returned as ignored.
func (c *Client) Decode(fragment string) (filters map[string]string, mode ViewMode, ignored []string) {
	st, frag := c.search.Codec().DecodeState(fragment)
	filters = make(map[string]string)
	for _, e := range st.ActiveEntries() {
		filters[e.Facet.ID] = e.Value
	}
	return filters, frag.Mode, frag.Ignored
}

// SaveVocabulary replaces the stored value → label tables, keyed by facet id.
func (c *Client) SaveVocabulary(ctx context.Context, vocab map[string]map[string]string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("vocabulary.save", start, err) }()

	if c.vocab == nil {
		return ErrNoStore
	}
	return c.vocab.Save(ctx, vocab)
}

// RebuildBaseData drains every address from the backend and stores the
// points used for unfiltered views. Returns the number of points stored.
func (c *Client) RebuildBaseData(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("basedata.rebuild", start, err) }()

	if c.base == nil {
		return 0, ErrNoStore
	}
	pts, err := c.search.AllPoints(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.base.Save(ctx, pts); err != nil {
		return 0, err
	}
	return len(pts), nil
}

// FlushCache drops every cached search response and returns the number of
// entries removed. Call it after reindexing the backend.
func (c *Client) FlushCache(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("cache.flush", start, err) }()

	if c.cache == nil {
		return 0, ErrNoStore
	}
	return c.cache.Flush(ctx)
}
