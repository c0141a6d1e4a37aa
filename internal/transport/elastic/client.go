// Package elastic implements the search client on Elasticsearch parent/child
// indices.
package elastic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

// Config describes the cluster and index.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	JoinField string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client runs compiled queries.
type Client struct {
	es        *elasticsearch.Client
	index     string
	joinField string
	timeout   time.Duration
}

// New creates a client. No request is made until the first call.
func New(cfg Config) (*Client, error) {
	if cfg.Index == "" {
		return nil, fmt.Errorf("elastic: index is required")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elastic client: %w", err)
	}
	return &Client{es: es, index: cfg.Index, joinField: cfg.JoinField, timeout: cfg.Timeout}, nil
}

// Body renders the JSON search body sent for req.
func (c *Client) Body(req query.Request) ([]byte, error) {
	return sonic.ConfigStd.Marshal(requestBody(req, c.joinField))
}

// Search executes one request.
func (c *Client) Search(ctx context.Context, req query.Request) (query.Response, error) {
	body, err := c.Body(req)
	if err != nil {
		return query.Response{}, fmt.Errorf("encode search body: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return query.Response{}, fmt.Errorf("%w: %w", domain.ErrSearchBackend, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return query.Response{}, fmt.Errorf("%w: read body: %w", domain.ErrSearchBackend, err)
	}
	if res.IsError() {
		return query.Response{}, domain.NewBackendStatus(res.StatusCode, decodeError(data))
	}

	resp, err := decodeResponse(data)
	if err != nil {
		return query.Response{}, fmt.Errorf("%w: %w", domain.ErrSearchBackend, err)
	}
	return resp, nil
}

// HealthCheck pings the cluster.
func (c *Client) HealthCheck(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrSearchBackend, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return domain.NewBackendStatus(res.StatusCode, "ping")
	}
	return nil
}
