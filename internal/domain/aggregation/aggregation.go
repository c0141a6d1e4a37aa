// Package aggregation applies terms-aggregation results to facet widgets so
// that each facet only offers values reachable under the other filters.
package aggregation

import (
	"github.com/kailas-cloud/picmap/internal/domain/facet"
)

// Bucket is one aggregated value with its document count.
type Bucket struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Result maps an aggregation name (the facet key) to its buckets.
type Result map[string][]Bucket

// Widget is the capability a facet control has to expose.
type Widget interface {
	CurrentValue() string
	SetValue(v string)
	Reset()
	HideAll()
	ShowValue(value, label string, count int64)
}

// Labeler is implemented by widgets that carry their own vocabulary.
type Labeler interface {
	Label(value string) string
}

// Applier resolves aggregation keys against a registry.
type Applier struct {
	registry *facet.Registry
}

// NewApplier creates an applier.
func NewApplier(r *facet.Registry) *Applier {
	return &Applier{registry: r}
}

// Apply hides every value of each aggregated facet, then shows exactly the
// returned buckets. Keys that do not resolve to a facet, and facets without
// a widget, are skipped. Returns the ids of the facets that were updated.
func (a *Applier) Apply(res Result, widgets map[string]Widget) []string {
	var applied []string
	for key, buckets := range res {
		d, err := a.registry.FindByKey(facet.SplitKey(key))
		if err != nil {
			continue
		}
		w, ok := widgets[d.ID]
		if !ok || w == nil {
			continue
		}
		w.HideAll()
		l, _ := w.(Labeler)
		for _, b := range buckets {
			label := b.Value
			if l != nil {
				label = l.Label(b.Value)
			}
			w.ShowValue(b.Value, label, b.Count)
		}
		applied = append(applied, d.ID)
	}
	return applied
}
