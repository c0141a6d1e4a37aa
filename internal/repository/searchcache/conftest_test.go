package searchcache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/picmap/internal/db"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

type mockSearcher struct {
	resp  query.Response
	err   error
	calls int
}

func (m *mockSearcher) Search(_ context.Context, _ query.Request) (query.Response, error) {
	m.calls++
	return m.resp, m.err
}

// mockKVStore is an in-memory implementation of the consumer interface.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockKVStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	if m.setErr != nil {
		return 0, m.setErr
	}
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func newTestClient(t *testing.T, inner *mockSearcher) (*Client, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	return New(inner, ms, "picmap:", time.Minute, nil), ms
}
