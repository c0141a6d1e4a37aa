package search

import (
	"context"

	"github.com/kailas-cloud/picmap/internal/domain/query"
	"github.com/kailas-cloud/picmap/internal/domain/record"
)

// Client executes compiled queries against the search backend.
type Client interface {
	Search(ctx context.Context, req query.Request) (query.Response, error)
}

// VocabularyReader loads the value → label table of every facet, keyed by
// facet id.
type VocabularyReader interface {
	Load(ctx context.Context) (map[string]map[string]string, error)
}

// BaseDataReader loads the precomputed full address list used when no
// filter is active. It returns domain.ErrNotFound when none is stored.
type BaseDataReader interface {
	Points(ctx context.Context) ([]record.Point, error)
}
