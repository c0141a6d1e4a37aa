package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockSearchChecker struct {
	err error
}

func (m *mockSearchChecker) HealthCheck(_ context.Context) error { return m.err }

type mockBreaker struct {
	state string
}

func (m *mockBreaker) State() string { return m.state }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockSearchChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["search"] != CheckOK {
		t.Errorf("expected search %q, got %q", CheckOK, r.Checks["search"])
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, &mockSearchChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["search"] != CheckOK {
		t.Errorf("expected search %q, got %q", CheckOK, r.Checks["search"])
	}
}

func TestCheck_SearchError(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockSearchChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["search"] != CheckError {
		t.Errorf("expected search %q, got %q", CheckError, r.Checks["search"])
	}
}

func TestCheck_BothFail(t *testing.T) {
	svc := New(
		&mockDBPinger{err: errors.New("db down")},
		&mockSearchChecker{err: errors.New("es down")},
	)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_NoSearch(t *testing.T) {
	svc := New(&mockDBPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["search"]; ok {
		t.Error("search check should be absent when search is nil")
	}
}

func TestCheck_Breaker(t *testing.T) {
	tests := []struct {
		state  string
		want   CheckResult
		status Status
	}{
		{"closed", CheckOK, Healthy},
		{"half-open", CheckOK, Healthy},
		{"disabled", CheckOK, Healthy},
		{"open", CheckError, Degraded},
	}
	for _, tc := range tests {
		t.Run(tc.state, func(t *testing.T) {
			svc := New(&mockDBPinger{}, &mockSearchChecker{}).WithBreaker(&mockBreaker{state: tc.state})
			r := svc.Check(context.Background())
			if r.Checks["circuit"] != tc.want {
				t.Errorf("circuit = %q, want %q", r.Checks["circuit"], tc.want)
			}
			if r.Status != tc.status {
				t.Errorf("status = %q, want %q", r.Status, tc.status)
			}
		})
	}
}

func TestCheck_NoDatabase(t *testing.T) {
	svc := New(nil, &mockSearchChecker{err: errors.New("down")})
	r := svc.Check(context.Background())

	if _, ok := r.Checks["database"]; ok {
		t.Error("database check must be skipped without a pinger")
	}
	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}
