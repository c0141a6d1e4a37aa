package vocabulary

import (
	"context"
	"testing"

	"github.com/kailas-cloud/picmap/internal/db"
	"github.com/kailas-cloud/picmap/internal/domain/facet"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	replaceFn      func(ctx context.Context, hashes []db.Hash) error
	reads          int
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	m.reads++
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) ReplaceHashes(ctx context.Context, hashes []db.Hash) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, hashes)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "picmap:", facet.DefaultCatalog(), nil), ms
}
