package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// DefaultPadding extends accumulated bounds so edge points stay in frame.
const DefaultPadding = 0.01

// Bounds accumulates the extent of a point set in lon/lat order.
type Bounds struct {
	padding float64
	g       *geom.Bounds
}

// NewBounds creates empty bounds with the given padding in degrees.
func NewBounds(padding float64) *Bounds {
	return &Bounds{padding: padding, g: geom.NewBounds(geom.XY)}
}

// Extend grows the bounds to include a point. Invalid coordinates are ignored.
func (b *Bounds) Extend(lat, lon float64) {
	if !ValidateCoordinates(lat, lon) {
		return
	}
	b.g.Extend(geom.NewPointFlat(geom.XY, []float64{lon, lat}))
}

// Box returns the padded box clamped to the valid coordinate range; ok is
// false when no point was added.
func (b *Bounds) Box() (box BBox, ok bool) {
	if b.g.IsEmpty() {
		return BBox{}, false
	}
	return BBox{
		West:  math.Max(b.g.Min(0)-b.padding, -180),
		South: math.Max(b.g.Min(1)-b.padding, -90),
		East:  math.Min(b.g.Max(0)+b.padding, 180),
		North: math.Min(b.g.Max(1)+b.padding, 90),
	}, true
}

// Reset empties the bounds.
func (b *Bounds) Reset() {
	b.g = geom.NewBounds(geom.XY)
}
