package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	search  SearchChecker
	breaker BreakerReporter
}

// New creates a Service. db and search can be nil.
func New(db DBPinger, search SearchChecker) *Service {
	return &Service{db: db, search: search}
}

// WithBreaker adds the circuit breaker state to the report.
func (s *Service) WithBreaker(b BreakerReporter) *Service {
	s.breaker = b
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
	}

	if s.search != nil {
		if err := s.search.HealthCheck(ctx); err != nil {
			checks["search"] = CheckError
		} else {
			checks["search"] = CheckOK
		}
	}

	if s.breaker != nil {
		if s.breaker.State() == "open" {
			checks["circuit"] = CheckError
		} else {
			checks["circuit"] = CheckOK
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
