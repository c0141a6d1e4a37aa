package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/logger"
	"github.com/kailas-cloud/picmap/internal/metrics"
)

const (
	// DefaultTTL evicts sessions idle for longer.
	DefaultTTL = 30 * time.Minute
	// DefaultMaxSessions caps concurrently open sessions.
	DefaultMaxSessions = 1000
)

// Options configure a Manager.
type Options struct {
	TTL         time.Duration
	MaxSessions int
}

// Manager owns the open sessions. Its map is the only shared state.
type Manager struct {
	engine Engine
	opts   Options
	newID  func() string
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(engine Engine, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		engine:   engine,
		opts:     opts,
		newID:    uuid.NewString,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session initialized from a URL fragment and starts its
// first generation. The session outlives ctx but keeps its logger.
func (m *Manager) Create(ctx context.Context, fragment string) (*Session, error) {
	m.mu.Lock()
	full := len(m.sessions) >= m.opts.MaxSessions
	m.mu.Unlock()
	if full {
		return nil, fmt.Errorf("%w: limit %d", domain.ErrTooManySessions, m.opts.MaxSessions)
	}

	panel, err := m.engine.Panel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	st, frag := m.engine.Codec().DecodeState(fragment)

	id := m.newID()
	s := newSession(context.WithoutCancel(ctx), id, m.engine, panel, st, frag.Mode)

	m.mu.Lock()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		s.stop()
		return nil, fmt.Errorf("%w: limit %d", domain.ErrTooManySessions, m.opts.MaxSessions)
	}
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	s.start()
	logger.FromContext(ctx).Info("Session created", zap.String("session", id), zap.Int("active", n))
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	s.touch(m.now())
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	metrics.ActiveSessions.Set(float64(n))
	s.Close()
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict closes sessions idle for longer than the TTL and returns how many
// were closed.
func (m *Manager) Evict() int {
	now := m.now()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(now) > m.opts.TTL {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		metrics.ActiveSessions.Set(float64(n))
	}
	return len(expired)
}

// Run evicts idle sessions until ctx is done, then closes all of them.
func (m *Manager) Run(ctx context.Context) {
	interval := m.opts.TTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				log.Info("Expired sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	metrics.ActiveSessions.Set(0)
}
