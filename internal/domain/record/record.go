// Package record holds the documents returned by the search backend.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Doc types of the index.
const (
	ConstituentType = "constituent"
	AddressType     = "address"
)

// AddressFields are the source fields fetched for map points.
var AddressFields = []string{
	"ConAddressID", "ConstituentID", "AddressTypeID", "CountryID", "Location", "Remarks",
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ErrGeoPoint is returned for a geo_point source in none of the indexed forms.
var ErrGeoPoint = errors.New("invalid geo_point")

// UnmarshalJSON accepts every geo_point source form the index stores:
// {"lat":..,"lon":..}, [lon, lat], "lat,lon", "POINT (lon lat)" and a geohash.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '{':
		type plain GeoPoint
		var v plain
		if err := sonic.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: %w", ErrGeoPoint, err)
		}
		*p = GeoPoint(v)
		return nil
	case '[':
		var v []float64
		if err := sonic.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: %w", ErrGeoPoint, err)
		}
		if len(v) < 2 {
			return fmt.Errorf("%w: array needs [lon, lat]", ErrGeoPoint)
		}
		*p = GeoPoint{Lat: v[1], Lon: v[0]}
		return nil
	case '"':
		var v string
		if err := sonic.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: %w", ErrGeoPoint, err)
		}
		pt, err := parseGeoString(v)
		if err != nil {
			return err
		}
		*p = pt
		return nil
	}
	return fmt.Errorf("%w: %s", ErrGeoPoint, data)
}

func parseGeoString(s string) (GeoPoint, error) {
	s = strings.TrimSpace(s)
	if lat, lon, ok := strings.Cut(s, ","); ok {
		la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		lo, err2 := strconv.ParseFloat(strings.TrimSpace(lon), 64)
		if err1 != nil || err2 != nil {
			return GeoPoint{}, fmt.Errorf("%w: %q", ErrGeoPoint, s)
		}
		return GeoPoint{Lat: la, Lon: lo}, nil
	}
	if strings.HasPrefix(strings.ToUpper(s), "POINT") {
		g, err := wkt.Unmarshal(s)
		if err != nil {
			return GeoPoint{}, fmt.Errorf("%w: %w", ErrGeoPoint, err)
		}
		pt, ok := g.(*geom.Point)
		if !ok || pt.Empty() {
			return GeoPoint{}, fmt.Errorf("%w: %q", ErrGeoPoint, s)
		}
		return GeoPoint{Lat: pt.Y(), Lon: pt.X()}, nil
	}
	return decodeGeohash(s)
}

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// decodeGeohash returns the center of the geohash cell.
func decodeGeohash(s string) (GeoPoint, error) {
	if s == "" || len(s) > 12 {
		return GeoPoint{}, fmt.Errorf("%w: %q", ErrGeoPoint, s)
	}
	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0
	even := true
	for _, c := range strings.ToLower(s) {
		idx := strings.IndexRune(geohashAlphabet, c)
		if idx < 0 {
			return GeoPoint{}, fmt.Errorf("%w: %q", ErrGeoPoint, s)
		}
		for bit := 4; bit >= 0; bit-- {
			on := idx&(1<<bit) != 0
			if even {
				mid := (lonLo + lonHi) / 2
				if on {
					lonLo = mid
				} else {
					lonHi = mid
				}
			} else {
				mid := (latLo + latHi) / 2
				if on {
					latLo = mid
				} else {
					latHi = mid
				}
			}
			even = !even
		}
	}
	return GeoPoint{Lat: (latLo + latHi) / 2, Lon: (lonLo + lonHi) / 2}, nil
}

// Address is one located event in a constituent's life (child document).
type Address struct {
	ConAddressID  int64     `json:"ConAddressID"`
	ConstituentID int64     `json:"ConstituentID"`
	AddressTypeID int64     `json:"AddressTypeID,omitempty"`
	AddressType   string    `json:"AddressType,omitempty"`
	CountryID     int64     `json:"CountryID,omitempty"`
	Country       string    `json:"Country,omitempty"`
	StreetLine1   string    `json:"StreetLine1,omitempty"`
	StreetLine2   string    `json:"StreetLine2,omitempty"`
	StreetLine3   string    `json:"StreetLine3,omitempty"`
	City          string    `json:"City,omitempty"`
	State         string    `json:"State,omitempty"`
	Remarks       string    `json:"Remarks,omitempty"`
	BeginDate     int       `json:"BeginDate,omitempty"`
	EndDate       int       `json:"EndDate,omitempty"`
	Location      *GeoPoint `json:"Location,omitempty"`
}

// Position returns the address coordinates. Location wins over the legacy
// "lat,lon" Remarks; "NULL" and "0,0" mean unknown.
func (a Address) Position() (GeoPoint, bool) {
	if a.Location != nil {
		return *a.Location, true
	}
	r := strings.TrimSpace(a.Remarks)
	if r == "" || r == "NULL" || r == "0,0" {
		return GeoPoint{}, false
	}
	lat, lon, ok := strings.Cut(r, ",")
	if !ok {
		return GeoPoint{}, false
	}
	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err1 != nil || err2 != nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: la, Lon: lo}, true
}

// Term is a vocabulary entry attached to a constituent.
type Term struct {
	TermID int64  `json:"TermID"`
	Term   string `json:"Term"`
}

// Constituent is a person or organization (parent document).
type Constituent struct {
	ConstituentID int64     `json:"ConstituentID"`
	DisplayName   string    `json:"DisplayName"`
	DisplayDate   string    `json:"DisplayDate,omitempty"`
	AlphaSort     string    `json:"AlphaSort,omitempty"`
	Nationality   string    `json:"Nationality,omitempty"`
	TextEntry     string    `json:"TextEntry,omitempty"`
	Gender        []Term    `json:"gender,omitempty"`
	Role          []Term    `json:"role,omitempty"`
	Process       []Term    `json:"process,omitempty"`
	Format        []Term    `json:"format,omitempty"`
	Biography     []Term    `json:"biography,omitempty"`
	Collection    []Term    `json:"collection,omitempty"`
	AddressTotal  int       `json:"addressTotal,omitempty"`
	Address       []Address `json:"address,omitempty"`
}

// Point is one entry of the precomputed full address list.
type Point struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	ConstituentID int64   `json:"constituentId"`
	ConAddressID  int64   `json:"conAddressId"`
	AddressTypeID int64   `json:"addressTypeId"`
	CountryID     int64   `json:"countryId"`
}

// PointTupleSize is the stride of the flat point encoding.
const PointTupleSize = 6

// ErrTupleLength is returned for a flat encoding that is not a whole number
// of points.
var ErrTupleLength = errors.New("point tuple length")

// PointsFromTuples decodes the flat encoding
// [lat, lon, constituent, address, type, country, ...].
func PointsFromTuples(flat []float64) ([]Point, error) {
	if len(flat)%PointTupleSize != 0 {
		return nil, fmt.Errorf("%w: %d is not a multiple of %d", ErrTupleLength, len(flat), PointTupleSize)
	}
	out := make([]Point, 0, len(flat)/PointTupleSize)
	for i := 0; i < len(flat); i += PointTupleSize {
		out = append(out, Point{
			Lat:           flat[i],
			Lon:           flat[i+1],
			ConstituentID: int64(flat[i+2]),
			ConAddressID:  int64(flat[i+3]),
			AddressTypeID: int64(flat[i+4]),
			CountryID:     int64(flat[i+5]),
		})
	}
	return out, nil
}

// TuplesFromPoints is the inverse of PointsFromTuples.
func TuplesFromPoints(pts []Point) []float64 {
	out := make([]float64, 0, len(pts)*PointTupleSize)
	for _, p := range pts {
		out = append(out,
			p.Lat, p.Lon,
			float64(p.ConstituentID), float64(p.ConAddressID),
			float64(p.AddressTypeID), float64(p.CountryID),
		)
	}
	return out
}

// PointOf converts an address to a map point.
func PointOf(a Address) (Point, bool) {
	pos, ok := a.Position()
	if !ok {
		return Point{}, false
	}
	return Point{
		Lat:           pos.Lat,
		Lon:           pos.Lon,
		ConstituentID: a.ConstituentID,
		ConAddressID:  a.ConAddressID,
		AddressTypeID: a.AddressTypeID,
		CountryID:     a.CountryID,
	}, true
}
