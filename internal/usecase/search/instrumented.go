package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picmap/internal/domain/query"
	"github.com/kailas-cloud/picmap/internal/logger"
	"github.com/kailas-cloud/picmap/internal/metrics"
)

// InstrumentedClient wraps a Client with request metrics and logging.
type InstrumentedClient struct {
	inner Client
}

// NewInstrumentedClient wraps a search client with observability.
func NewInstrumentedClient(inner Client) *InstrumentedClient {
	return &InstrumentedClient{inner: inner}
}

// Search delegates to the inner client and records duration, status and hits.
func (c *InstrumentedClient) Search(ctx context.Context, req query.Request) (query.Response, error) {
	start := time.Now()
	resp, err := c.inner.Search(ctx, req)
	duration := time.Since(start)

	metrics.SearchRequestDuration.WithLabelValues(req.TargetDocType).Observe(duration.Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(req.TargetDocType, "error").Inc()
		logger.FromContext(ctx).Error("Search request failed",
			zap.String("doc_type", req.TargetDocType),
			zap.Int("offset", req.Offset),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return query.Response{}, fmt.Errorf("search %s: %w", req.TargetDocType, err)
	}

	metrics.SearchRequestsTotal.WithLabelValues(req.TargetDocType, "ok").Inc()
	metrics.SearchHitsTotal.WithLabelValues(req.TargetDocType).Add(float64(len(resp.Hits)))
	logger.FromContext(ctx).Debug("Search request completed",
		zap.String("doc_type", req.TargetDocType),
		zap.Int("offset", req.Offset),
		zap.Int("hits", len(resp.Hits)),
		zap.Int64("total", resp.Total),
		zap.Duration("duration", duration),
	)
	return resp, nil
}
