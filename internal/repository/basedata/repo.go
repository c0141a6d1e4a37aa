// Package basedata stores the precomputed full address list shown when no
// filter is active.
package basedata

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/kailas-cloud/picmap/internal/db"
	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/record"
)

// store is the consumer interface for base data (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements usecase/search.BaseDataReader. The value is a JSON array
// of flat point tuples, see record.PointsFromTuples.
type Repo struct {
	store store
	key   string

	mu     sync.Mutex
	cached []record.Point
}

// New creates a base data repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, key: Key(prefix)}
}

// Key returns the key holding the base data.
func Key(prefix string) string {
	return prefix + "basedata"
}

// Points returns the stored points. It returns domain.ErrNotFound when
// nothing is stored. A successful read is cached.
func (r *Repo) Points(ctx context.Context) ([]record.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return r.cached, nil
	}

	data, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("base data: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read base data: %w", err)
	}

	var flat []float64
	if err := sonic.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode base data: %w", err)
	}
	pts, err := record.PointsFromTuples(flat)
	if err != nil {
		return nil, fmt.Errorf("decode base data: %w", err)
	}
	r.cached = pts
	return pts, nil
}

// Save stores pts as the new base data.
func (r *Repo) Save(ctx context.Context, pts []record.Point) error {
	data, err := sonic.Marshal(record.TuplesFromPoints(pts))
	if err != nil {
		return fmt.Errorf("encode base data: %w", err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("write base data: %w", err)
	}

	r.mu.Lock()
	r.cached = append([]record.Point{}, pts...)
	r.mu.Unlock()
	return nil
}
