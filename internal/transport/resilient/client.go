// Package resilient guards search backend calls with rate limiting, bounded
// retry and a circuit breaker.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

// Searcher is the wrapped backend.
type Searcher interface {
	Search(ctx context.Context, req query.Request) (query.Response, error)
}

// Client is a Searcher with resilience policies applied.
type Client struct {
	inner   Searcher
	cfg     Config
	breaker *gobreaker.CircuitBreaker[query.Response]
	limiter *rate.Limiter
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New wraps a searcher.
func New(inner Searcher, cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.normalize()
	c := &Client{inner: inner, cfg: cfg, logger: logger, sleep: sleepCtx}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	if cfg.BreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker[query.Response](gobreaker.Settings{
			Name:        "search",
			MaxRequests: cfg.BreakerHalfOpenMaxCalls,
			Timeout:     cfg.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.BreakerMinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !recordFailure(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
	return c
}

// Search runs the request under the configured policies.
func (c *Client) Search(ctx context.Context, req query.Request) (query.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return query.Response{}, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
	}
	if c.breaker == nil {
		return c.withRetry(ctx, req)
	}
	resp, err := c.breaker.Execute(func() (query.Response, error) {
		return c.withRetry(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return query.Response{}, fmt.Errorf("%w: %v", domain.ErrCircuitOpen, err)
	}
	return resp, err
}

// State returns the breaker state name, "disabled" without a breaker.
func (c *Client) State() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

func (c *Client) withRetry(ctx context.Context, req query.Request) (query.Response, error) {
	backoff := c.cfg.RetryInitialBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return query.Response{}, err
		}
		resp, err := c.inner.Search(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) || attempt >= c.cfg.RetryMaxAttempts {
			return query.Response{}, err
		}

		wait := min(backoff, c.cfg.RetryMaxBackoff)
		c.logger.Warn("Retrying search request",
			zap.String("doc_type", req.TargetDocType),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.RetryMaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if serr := c.sleep(ctx, wait); serr != nil {
			return query.Response{}, err
		}
		backoff = min(time.Duration(float64(backoff)*c.cfg.RetryMultiplier), c.cfg.RetryMaxBackoff)
	}
}

// retryable reports transient failures: network errors, 429 and 5xx.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *domain.BackendStatusError
	if errors.As(err, &status) {
		return status.Status == http.StatusTooManyRequests || status.Status >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// recordFailure decides whether an error counts against the breaker. Client
// errors and cancellations are not counted.
func recordFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var status *domain.BackendStatusError
	if errors.As(err, &status) {
		return status.Status == http.StatusTooManyRequests || status.Status >= http.StatusInternalServerError
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
