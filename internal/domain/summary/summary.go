// Package summary renders a filter state as a short English sentence, e.g.
// "Birth locations in France for 12 French, Female constituents who worked
// as clerk".
package summary

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
)

// LabelFunc resolves the display label of a facet value.
type LabelFunc func(facetID, value string) string

// Totals are the counts shown in the sentence. A negative count is unknown.
type Totals struct {
	Locations    int64
	Constituents int64
}

// Describer renders summaries for one registry.
type Describer struct {
	registry *facet.Registry
	minYear  int
	maxYear  int
}

// NewDescriber creates a describer. minYear/maxYear bound open date ranges.
func NewDescriber(r *facet.Registry, minYear, maxYear int) *Describer {
	return &Describer{registry: r, minYear: minYear, maxYear: maxYear}
}

// Describe builds the sentence for a state.
func (d *Describer) Describe(s *filter.State, totals Totals, label LabelFunc) string {
	if label == nil {
		label = func(_, v string) string { return v }
	}

	var locAdj, locTail, conAdj, conTail []string
	for _, e := range s.ActiveEntries() {
		def := e.Facet
		child := d.registry.SideOf(def) == facet.ChildSide
		switch def.Kind {
		case facet.Spatial:
			locTail = append(locTail, def.Phrase)
		case facet.Text:
			conTail = append(conTail, d.name(def, e.Value))
		case facet.DateRange:
			from, to := filter.ParseYearRange(e.Value, d.minYear, d.maxYear)
			conTail = append(conTail, phrase(def, fmt.Sprintf("%d to %d", from, to)))
		default:
			text := phrase(def, label(def.ID, e.Value))
			adjective := def.Phrase == "" || def.Phrase == "%s"
			switch {
			case child && adjective:
				locAdj = append(locAdj, text)
			case child:
				locTail = append(locTail, text)
			case adjective:
				conAdj = append(conAdj, text)
			default:
				conTail = append(conTail, text)
			}
		}
	}

	parts := make([]string, 0, 8)
	parts = append(parts, locAdj...)
	parts = append(parts, noun(totals.Locations, "location", "locations"))
	parts = append(parts, locTail...)
	parts = append(parts, "for")
	if totals.Constituents > 0 {
		parts = append(parts, strconv.FormatInt(totals.Constituents, 10))
	}
	if len(conAdj) > 0 {
		parts = append(parts, strings.Join(conAdj, ", "))
	}
	parts = append(parts, noun(totals.Constituents, "constituent", "constituents"))
	parts = append(parts, conTail...)

	out := strings.Join(parts, " ")
	return strings.ToUpper(out[:1]) + out[1:]
}

func (d *Describer) name(def facet.Definition, value string) string {
	text := filter.StripNameQuery(value)
	if filter.IsNumeric(text) {
		return "with ID " + text
	}
	return phrase(def, text)
}

func phrase(def facet.Definition, value string) string {
	if def.Phrase == "" {
		return value
	}
	if !strings.Contains(def.Phrase, "%s") {
		return def.Phrase
	}
	return fmt.Sprintf(def.Phrase, value)
}

func noun(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
