package picmap

import (
	"context"
	"time"

	"github.com/kailas-cloud/picmap/internal/usecase/session"
)

// Session is an interactive filter session. Each change starts a new
// generation; results of superseded generations are discarded.
type Session struct {
	s        *session.Session
	sessions *session.Manager
	obs      *observer
}

// OpenSession starts a session from a URL fragment.
func (c *Client) OpenSession(ctx context.Context, fragment string) (_ *Session, err error) {
	start := time.Now()
	defer func() { c.obs.observe("session.open", start, err) }()

	s, err := c.sessions.Create(ctx, fragment)
	if err != nil {
		return nil, err
	}
	return &Session{s: s, sessions: c.sessions, obs: c.obs}, nil
}

// Session returns an open session by id.
func (c *Client) Session(id string) (*Session, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return &Session{s: s, sessions: c.sessions, obs: c.obs}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.s.ID() }

// Set sets one facet. An unchanged value does not refetch.
func (s *Session) Set(ctx context.Context, facetID, value string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("session.set", start, err) }()

	return s.s.SetFilter(ctx, facetID, value)
}

// Reset sets one facet back to the wildcard.
func (s *Session) Reset(ctx context.Context, facetID string) error {
	return s.s.ResetFilter(ctx, facetID)
}

// ResetAll clears every facet.
func (s *Session) ResetAll(ctx context.Context) error {
	return s.s.ResetAll(ctx)
}

// SetFragment replaces the whole state with a URL fragment.
func (s *Session) SetFragment(ctx context.Context, fragment string) error {
	return s.s.SetFragment(ctx, fragment)
}

// MoreConstituents loads the next constituent page.
func (s *Session) MoreConstituents(ctx context.Context) error {
	return s.s.MoreConstituents(ctx)
}

// View returns the current view without waiting.
func (s *Session) View(ctx context.Context) (SessionView, error) {
	snap, err := s.s.Snapshot(ctx)
	if err != nil {
		return SessionView{}, err
	}
	return viewFromDomain(snap), nil
}

// Wait blocks until the current generation has finished.
func (s *Session) Wait(ctx context.Context) (_ SessionView, err error) {
	start := time.Now()
	defer func() { s.obs.observe("session.wait", start, err) }()

	snap, err := s.s.Wait(ctx)
	if err != nil {
		return SessionView{}, err
	}
	return viewFromDomain(snap), nil
}

// Close closes the session.
func (s *Session) Close() error {
	return s.sessions.Delete(s.s.ID())
}
