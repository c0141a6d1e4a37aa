package picmap

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/transport/resilient"
	searchuc "github.com/kailas-cloud/picmap/internal/usecase/search"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "valkey" or "redis"
	addrs     []string
	password  string
	keyPrefix string

	esAddrs    []string
	esUsername string
	esPassword string
	index      string
	joinField  string
	timeout    time.Duration
	transport  http.RoundTripper

	search      searchuc.Options
	resilience  resilient.Config
	cacheTTL    time.Duration
	sessionTTL  time.Duration
	maxSessions int
	vocabulary  map[string]map[string]string

	logger     *slog.Logger
	metricsReg prometheus.Registerer

	// backend replaces the Elasticsearch client, used by tests.
	backend searchBackend
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:  domain.KeyPrefix,
		index:      "pic",
		joinField:  "join_field",
		timeout:    30 * time.Second,
		search:     searchuc.DefaultOptions(),
		resilience: resilient.DefaultConfig(),
	}
}

// WithValkey stores vocabularies, base data and cached responses in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores vocabularies, base data and cached responses in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key prefix in the key-value store. Default: "picmap:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithElasticsearch sets the search backend nodes.
func WithElasticsearch(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esAddrs = addrs
	})
}

// WithBasicAuth sets Elasticsearch credentials.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esUsername = username
		c.esPassword = password
	})
}

// WithIndex sets the index name and its join field.
// Defaults: "pic", "join_field".
func WithIndex(index, joinField string) Option {
	return optionFunc(func(c *clientConfig) {
		c.index = index
		c.joinField = joinField
	})
}

// WithTimeout bounds each backend request. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithTransport replaces the HTTP transport of the Elasticsearch client.
func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = rt
	})
}

// WithPageSize sets the address page size. Default: 1000.
func WithPageSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.PageSize = n
	})
}

// WithResultLimit sets the constituent page size. Default: 50.
func WithResultLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.ResultLimit = n
	})
}

// WithYearRange sets the bounds of the date facet. Default: 1700..2017.
func WithYearRange(minYear, maxYear int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.MinYear = minYear
		c.search.MaxYear = maxYear
	})
}

// WithRateLimit caps backend requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.resilience.RateLimit = perSecond
		c.resilience.RateBurst = burst
	})
}

// WithoutCircuitBreaker disables the circuit breaker around the backend.
func WithoutCircuitBreaker() Option {
	return optionFunc(func(c *clientConfig) {
		c.resilience.BreakerEnabled = false
	})
}

// WithResponseCache caches backend responses in the key-value store.
// Requires WithValkey or WithRedis. Zero disables caching (default).
func WithResponseCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithSessionLimits sets the idle TTL and the maximum number of open sessions.
// Defaults: 30m, 1000.
func WithSessionLimits(ttl time.Duration, maxSessions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.sessionTTL = ttl
		c.maxSessions = maxSessions
	})
}

// WithVocabulary sets the value → label tables, keyed by facet id, instead
// of loading them from the key-value store.
func WithVocabulary(vocab map[string]map[string]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vocabulary = vocab
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

func withBackend(b searchBackend) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = b
	})
}
