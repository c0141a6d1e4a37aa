package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picmap/internal/config"
	dbRedis "github.com/kailas-cloud/picmap/internal/db/redis"
	"github.com/kailas-cloud/picmap/internal/domain/facet"
	logpkg "github.com/kailas-cloud/picmap/internal/logger"
	"github.com/kailas-cloud/picmap/internal/metrics"
	"github.com/kailas-cloud/picmap/internal/repository/basedata"
	"github.com/kailas-cloud/picmap/internal/repository/searchcache"
	"github.com/kailas-cloud/picmap/internal/repository/vocabulary"
	"github.com/kailas-cloud/picmap/internal/transport/elastic"
	"github.com/kailas-cloud/picmap/internal/transport/resilient"
	searchuc "github.com/kailas-cloud/picmap/internal/usecase/search"
	"github.com/kailas-cloud/picmap/internal/version"
)

// app is the composition root shared by the serve and seed commands.
type app struct {
	env     string
	cfg     config.Config
	logger  *zap.Logger
	store   *dbRedis.Store
	elastic *elastic.Client
	backend *resilient.Client
	cache   *searchcache.Client
	vocab   *vocabulary.Repo
	base    *basedata.Repo
	search  *searchuc.Service
}

// newApp loads the config and wires every dependency. With cached set, the
// search client is fronted by the response cache when configured.
func newApp(ctx context.Context, env string, cached bool) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Starting picmap",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Strings("elastic_addrs", cfg.Elastic.Addresses),
		zap.String("elastic_index", cfg.Elastic.Index),
	)

	// Both drivers speak RESP through the same rueidis store
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	es, err := elastic.New(elastic.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
		Index:     cfg.Elastic.Index,
		JoinField: cfg.Elastic.JoinField,
		Timeout:   time.Duration(cfg.Elastic.TimeoutSec) * time.Second,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	// Search client chain: Elasticsearch -> Resilient -> Instrumented -> Cached
	backend := resilient.New(es, resilienceConfig(cfg.Resilience), logger)
	var client searchuc.Client = searchuc.NewInstrumentedClient(backend)
	cache := searchcache.New(client, store, cfg.Storage.KeyPrefix,
		time.Duration(cfg.Search.CacheTTLSec)*time.Second, metrics.SearchCacheTotal)
	if cached && cfg.Search.CacheTTLSec > 0 {
		client = cache
		logger.Info("Search response cache enabled", zap.Int("ttl_sec", cfg.Search.CacheTTLSec))
	}

	registry := facet.DefaultCatalog()
	vocab := vocabulary.New(store, cfg.Storage.KeyPrefix, registry, metrics.VocabularyLoadsTotal)
	base := basedata.New(store, cfg.Storage.KeyPrefix)

	svc := searchuc.New(registry, client, vocab, base, searchuc.Options{
		PageSize:        cfg.Search.PageSize,
		ResultLimit:     cfg.Search.ResultLimit,
		AggregationSize: cfg.Search.AggregationSize,
		MinYear:         cfg.Search.MinYear,
		MaxYear:         cfg.Search.MaxYear,
	})

	return &app{
		env:     env,
		cfg:     cfg,
		logger:  logger,
		store:   store,
		elastic: es,
		backend: backend,
		cache:   cache,
		vocab:   vocab,
		base:    base,
		search:  svc,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

func resilienceConfig(c config.ResilienceConfig) resilient.Config {
	return resilient.Config{
		RetryMaxAttempts:        c.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(c.RetryInitialBackoffMs) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(c.RetryMaxBackoffMs) * time.Millisecond,
		RetryMultiplier:         c.RetryMultiplier,
		BreakerEnabled:          !c.BreakerDisabled,
		BreakerMinRequests:      c.BreakerMinRequests,
		BreakerFailureRatio:     c.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(c.BreakerOpenTimeoutSec) * time.Second,
		BreakerHalfOpenMaxCalls: c.BreakerHalfOpenMaxCalls,
		RateLimit:               c.RateLimit,
		RateBurst:               c.RateBurst,
	}
}
