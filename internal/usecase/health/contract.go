package health

import "context"

// DBPinger checks key-value store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SearchChecker checks search backend availability.
type SearchChecker interface {
	HealthCheck(ctx context.Context) error
}

// BreakerReporter exposes the circuit breaker state of the search backend.
type BreakerReporter interface {
	State() string
}
