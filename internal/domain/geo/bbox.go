package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BBoxSeparator separates the four edges of an encoded bounding box.
const BBoxSeparator = "_"

// BBox is a bounding box in degrees. The canonical encoding order is
// west_south_east_north on every path.
type BBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// NewBBox normalizes swapped corners and validates the box.
func NewBBox(west, south, east, north float64) (BBox, error) {
	for _, v := range []float64{west, south, east, north} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BBox{}, fmt.Errorf("bbox edges must be finite")
		}
	}
	if west > east {
		west, east = east, west
	}
	if south > north {
		south, north = north, south
	}
	if west == east || south == north {
		return BBox{}, fmt.Errorf("bbox must have a non-zero area")
	}
	if !ValidateCoordinates(south, west) || !ValidateCoordinates(north, east) {
		return BBox{}, fmt.Errorf("bbox out of range")
	}
	return BBox{West: west, South: south, East: east, North: north}, nil
}

// ParseBBox decodes "west_south_east_north".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, BBoxSeparator)
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox needs 4 edges, got %d", len(parts))
	}
	var edges [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox edge %d: %w", i, err)
		}
		edges[i] = v
	}
	return NewBBox(edges[0], edges[1], edges[2], edges[3])
}

// String encodes the box with four decimals, as drawn rectangles are.
func (b BBox) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(b.West, 'f', 4, 64),
		strconv.FormatFloat(b.South, 'f', 4, 64),
		strconv.FormatFloat(b.East, 'f', 4, 64),
		strconv.FormatFloat(b.North, 'f', 4, 64),
	}, BBoxSeparator)
}

// Contains reports whether a point lies inside the box (edges inclusive).
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
