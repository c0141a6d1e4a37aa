package aggregation

import (
	"sort"

	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
)

// Option is one visible facet value.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ListWidget is an in-memory facet control backed by a vocabulary of
// value → label pairs. It is not safe for concurrent use.
type ListWidget struct {
	vocab   map[string]string
	current string
	visible map[string]Option
}

// NewListWidget creates a widget whose whole vocabulary is visible.
func NewListWidget(vocab map[string]string) *ListWidget {
	w := &ListWidget{
		vocab:   make(map[string]string, len(vocab)),
		current: filter.Wildcard,
		visible: make(map[string]Option, len(vocab)),
	}
	for v, l := range vocab {
		w.vocab[v] = l
	}
	w.ShowAll()
	return w
}

func (w *ListWidget) CurrentValue() string { return w.current }

func (w *ListWidget) SetValue(v string) {
	if v == "" {
		v = filter.Wildcard
	}
	w.current = v
}

func (w *ListWidget) Reset() { w.current = filter.Wildcard }

func (w *ListWidget) HideAll() { clear(w.visible) }

// ShowAll offers the whole vocabulary again, without counts.
func (w *ListWidget) ShowAll() {
	clear(w.visible)
	for v, l := range w.vocab {
		w.visible[v] = Option{Value: v, Label: l}
	}
}

func (w *ListWidget) ShowValue(value, label string, count int64) {
	if label == "" {
		label = w.Label(value)
	}
	w.visible[value] = Option{Value: value, Label: label, Count: count}
}

// Label returns the vocabulary label of a value, or the value itself.
func (w *ListWidget) Label(value string) string {
	if l, ok := w.vocab[value]; ok {
		return l
	}
	return value
}

// IsVisible reports whether a value is currently offered.
func (w *ListWidget) IsVisible(value string) bool {
	_, ok := w.visible[value]
	return ok
}

// Visible returns the offered values ordered by label.
func (w *ListWidget) Visible() []Option {
	out := make([]Option, 0, len(w.visible))
	for _, o := range w.visible {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Panel holds one ListWidget per aggregatable facet.
type Panel map[string]*ListWidget

// NewPanel builds widgets for every aggregatable facet of the registry.
// vocabularies is keyed by facet id; missing entries start empty.
func NewPanel(r *facet.Registry, vocabularies map[string]map[string]string) Panel {
	p := make(Panel)
	for _, d := range r.All() {
		if !d.Aggregatable() {
			continue
		}
		p[d.ID] = NewListWidget(vocabularies[d.ID])
	}
	return p
}

// Widgets exposes the panel through the Widget interface.
func (p Panel) Widgets() map[string]Widget {
	out := make(map[string]Widget, len(p))
	for id, w := range p {
		out[id] = w
	}
	return out
}

// Sync copies the values of a filter state into the widgets.
func (p Panel) Sync(s *filter.State) {
	for id, w := range p {
		w.SetValue(s.Value(id))
	}
}

// ShowAll resets every widget to its full vocabulary.
func (p Panel) ShowAll() {
	for _, w := range p {
		w.ShowAll()
	}
}

// Snapshot returns the visible options of every facet.
func (p Panel) Snapshot() map[string][]Option {
	out := make(map[string][]Option, len(p))
	for id, w := range p {
		out[id] = w.Visible()
	}
	return out
}
