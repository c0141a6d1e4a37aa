// Package vocabulary stores the value → label table of every aggregatable
// facet as one hash per facet.
package vocabulary

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/picmap/internal/db"
	"github.com/kailas-cloud/picmap/internal/domain/facet"
)

// store is the consumer interface for vocabularies (ISP).
type store interface {
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ReplaceHashes(ctx context.Context, hashes []db.Hash) error
}

// Repo implements usecase/search.VocabularyReader.
type Repo struct {
	store  store
	prefix string
	ids    []string
	loads  *prometheus.CounterVec

	mu     sync.RWMutex
	cached map[string]map[string]string
}

// New creates a vocabulary repository for the aggregatable facets of r.
// loads is a counter vec with label "result" ("cache"/"store"/"error"), may be nil.
func New(s store, prefix string, r *facet.Registry, loads *prometheus.CounterVec) *Repo {
	var ids []string
	for _, d := range r.All() {
		if d.Aggregatable() {
			ids = append(ids, d.ID)
		}
	}
	return &Repo{store: s, prefix: prefix, ids: ids, loads: loads}
}

// Key returns the hash key of one facet vocabulary.
func Key(prefix, facetID string) string {
	return prefix + "vocab:" + facetID
}

// FacetIDs returns the facets this repository reads.
func (r *Repo) FacetIDs() []string {
	return append([]string(nil), r.ids...)
}

// Load returns every vocabulary keyed by facet id. The first successful
// read is cached for the life of the repository. Callers must not modify
// the returned maps.
func (r *Repo) Load(ctx context.Context) (map[string]map[string]string, error) {
	r.mu.RLock()
	cached := r.cached
	r.mu.RUnlock()
	if cached != nil {
		r.inc("cache")
		return cached, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		r.inc("cache")
		return r.cached, nil
	}

	if len(r.ids) == 0 {
		r.cached = map[string]map[string]string{}
		return r.cached, nil
	}

	keys := make([]string, len(r.ids))
	for i, id := range r.ids {
		keys[i] = Key(r.prefix, id)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		r.inc("error")
		return nil, fmt.Errorf("read vocabularies: %w", err)
	}

	out := make(map[string]map[string]string, len(r.ids))
	for i, id := range r.ids {
		m := hashes[i]
		if m == nil {
			m = map[string]string{}
		}
		out[id] = m
	}
	r.cached = out
	r.inc("store")
	return out, nil
}

// Save replaces the stored vocabularies of the given facets in one
// transaction and drops the cache. Unknown facet ids are rejected before
// anything is written.
func (r *Repo) Save(ctx context.Context, vocab map[string]map[string]string) error {
	known := make(map[string]bool, len(r.ids))
	for _, id := range r.ids {
		known[id] = true
	}

	hashes := make([]db.Hash, 0, len(vocab))
	for id, labels := range vocab {
		if !known[id] {
			return fmt.Errorf("save vocabulary %q: %w", id, facet.ErrNotFound)
		}
		hashes = append(hashes, db.Hash{Key: Key(r.prefix, id), Fields: labels})
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i].Key < hashes[j].Key })

	if err := r.store.ReplaceHashes(ctx, hashes); err != nil {
		return fmt.Errorf("save vocabularies: %w", err)
	}

	r.Invalidate()
	return nil
}

// Invalidate drops the cached vocabularies.
func (r *Repo) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *Repo) inc(result string) {
	if r.loads != nil {
		r.loads.WithLabelValues(result).Inc()
	}
}
