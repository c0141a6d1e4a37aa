// Package searchcache caches search backend responses in the key-value store.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/picmap/internal/db"
	"github.com/kailas-cloud/picmap/internal/domain/query"
	"github.com/kailas-cloud/picmap/internal/logger"
)

// Searcher is the wrapped search backend.
type Searcher interface {
	Search(ctx context.Context, req query.Request) (query.Response, error)
}

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Client caches successful responses keyed by request fingerprint. Cache
// failures never fail a search.
type Client struct {
	inner      Searcher
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func New(inner Searcher, s store, prefix string, ttl time.Duration, cacheTotal *prometheus.CounterVec) *Client {
	return &Client{
		inner:      inner,
		store:      s,
		prefix:     prefix + "search_cache:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
	}
}

// Search returns a cached response or calls the inner backend.
func (c *Client) Search(ctx context.Context, req query.Request) (query.Response, error) {
	key := c.Key(req)

	if resp, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return resp, nil
	}

	c.incCache("miss")

	resp, err := c.inner.Search(ctx, req)
	if err != nil {
		return query.Response{}, err
	}

	c.putToCache(ctx, key, resp)
	return resp, nil
}

// Flush drops every cached response. Run it after the indexed data or the
// base data changed.
func (c *Client) Flush(ctx context.Context) (int, error) {
	n, err := c.store.DeletePrefix(ctx, c.prefix)
	if err != nil {
		return n, fmt.Errorf("flush search cache: %w", err)
	}
	return n, nil
}

// Key returns the cache key of a request.
func (c *Client) Key(req query.Request) string {
	h := sha256.Sum256([]byte(req.Fingerprint()))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *Client) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Client) getFromCache(ctx context.Context, key string) (query.Response, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			logger.FromContext(ctx).Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		return query.Response{}, false
	}
	if len(data) == 0 {
		return query.Response{}, false
	}

	var dto responseDTO
	if err := sonic.Unmarshal(data, &dto); err != nil {
		logger.FromContext(ctx).Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		return query.Response{}, false
	}
	return fromDTO(dto), true
}

func (c *Client) putToCache(ctx context.Context, key string, resp query.Response) {
	data, err := sonic.Marshal(toDTO(resp))
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to encode response", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		logger.FromContext(ctx).Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}
