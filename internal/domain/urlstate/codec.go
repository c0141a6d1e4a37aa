// Package urlstate encodes filter state to and from a URL fragment.
//
// Grammar: key1=value1&key2=value2&...&mode=<0|1|2|3>. Keys are a bare
// field name (root scope) or scope.field. Anything after the last '#' is
// ignored. Values are percent-decoded.
package urlstate

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/picmap/internal/domain/facet"
	"github.com/kailas-cloud/picmap/internal/domain/filter"
	"github.com/kailas-cloud/picmap/internal/domain/geo"
)

// ModeKey is the reserved key carrying the view mode.
const ModeKey = "mode"

// ViewMode is the globe scene mode the fragment was produced in.
type ViewMode int

const (
	// ModeMorphing is a scene transition in progress.
	ModeMorphing ViewMode = 0
	// ModeColumbus is the 2.5D columbus view.
	ModeColumbus ViewMode = 1
	// Mode2D is the flat map.
	Mode2D ViewMode = 2
	// Mode3D is the globe.
	Mode3D ViewMode = 3
)

// DefaultMode is used when a fragment carries no valid mode.
const DefaultMode = Mode3D

// Valid reports whether m is a known mode.
func (m ViewMode) Valid() bool { return m >= ModeMorphing && m <= Mode3D }

// Assignment sets one facet.
type Assignment struct {
	FacetID string
	Value   string
}

// Inputs are the literal text-box values recovered from a fragment.
type Inputs struct {
	Name     string
	YearFrom int
	YearTo   int
}

// Fragment is a decoded URL fragment: a partial filter state plus the view mode.
type Fragment struct {
	Assignments []Assignment
	Mode        ViewMode
	HasMode     bool
	Inputs      Inputs
	// Ignored holds keys that did not resolve to a facet.
	Ignored []string
}

// ApplyTo writes the assignments into a state. Later assignments win.
func (f Fragment) ApplyTo(s *filter.State) {
	for _, a := range f.Assignments {
		// Assignments only ever reference registry facets.
		_ = s.Set(a.FacetID, a.Value)
	}
}

// Codec converts between filter state and URL fragments.
type Codec struct {
	registry *facet.Registry
	minYear  int
	maxYear  int
}

// New creates a codec. minYear/maxYear bound the date inputs.
func New(r *facet.Registry, minYear, maxYear int) *Codec {
	return &Codec{registry: r, minYear: minYear, maxYear: maxYear}
}

// Encode renders every facet (wildcards included) in registry order and
// appends the view mode.
func (c *Codec) Encode(s *filter.State, mode ViewMode) string {
	var b strings.Builder
	for _, e := range s.Entries() {
		b.WriteString(e.Key())
		b.WriteByte('=')
		b.WriteString(escapeValue(e.Value))
		b.WriteByte('&')
	}
	b.WriteString(ModeKey)
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(int(mode)))
	return b.String()
}

// Decode parses a fragment. Unknown keys and malformed values never fail.
func (c *Codec) Decode(fragment string) Fragment {
	out := Fragment{
		Mode:   DefaultMode,
		Inputs: Inputs{YearFrom: c.minYear, YearTo: c.maxYear},
	}

	fragment = trimFragment(fragment)
	if fragment == "" {
		return out
	}

	for _, piece := range strings.Split(fragment, "&") {
		if piece == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(piece, "=")
		value := unescapeValue(rawValue)

		if rawKey == ModeKey {
			if m, err := strconv.Atoi(value); err == nil && ViewMode(m).Valid() {
				out.Mode = ViewMode(m)
				out.HasMode = true
			}
			continue
		}

		scope, field := facet.SplitKey(rawKey)
		def, err := c.registry.FindByKey(scope, field)
		if errors.Is(err, facet.ErrNotFound) {
			out.Ignored = append(out.Ignored, rawKey)
			continue
		}

		if value == "" {
			value = filter.Wildcard
		}

		switch def.Kind {
		case facet.Text:
			out.Inputs.Name = filter.StripNameQuery(value)
		case facet.DateRange:
			out.Inputs.YearFrom, out.Inputs.YearTo = filter.ParseYearRange(value, c.minYear, c.maxYear)
		case facet.Spatial:
			if value != filter.Wildcard {
				if _, err := geo.ParseBBox(value); err != nil {
					value = filter.Wildcard
				}
			}
		}

		out.Assignments = append(out.Assignments, Assignment{FacetID: def.ID, Value: value})
	}
	return out
}

// DecodeState decodes a fragment onto a fresh state.
func (c *Codec) DecodeState(fragment string) (*filter.State, Fragment) {
	f := c.Decode(fragment)
	s := filter.NewState(c.registry)
	f.ApplyTo(s)
	return s, f
}

// trimFragment drops a leading history prefix ("/map/?", "/#?", "#", "?")
// and anything from the last '#' marker on. A path prefix only counts when
// it precedes the first pair, so encoded values never lose their siblings.
func trimFragment(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "?#"); i > 0 && s[i-1] == '/' && !strings.ContainsAny(s[:i], "=&") {
		s = s[i+1:]
	}
	s = strings.TrimLeft(s, "#?")
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[:i]
	}
	return s
}

var valueEscaper = strings.NewReplacer(
	"%", "%25", "&", "%26", "=", "%3D", "#", "%23", " ", "%20", "/", "%2F", "?", "%3F",
)

func escapeValue(v string) string {
	return valueEscaper.Replace(v)
}

func unescapeValue(v string) string {
	u, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return u
}
