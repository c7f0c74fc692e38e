// README: Geographic point stored as fixed-precision decimals.
package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CoordScale matches the numeric(10,7) columns the coordinates are stored in.
const CoordScale = 7

// Point is a latitude/longitude pair. Coordinates are decimals rather than
// binary floats so that values round-trip through storage and cache unchanged.
type Point struct {
	Lat decimal.Decimal
	Lng decimal.Decimal
}

func NewPoint(lat, lng decimal.Decimal) Point {
	return Point{Lat: lat.Round(CoordScale), Lng: lng.Round(CoordScale)}
}

func PointFromFloat(lat, lng float64) Point {
	return NewPoint(decimal.NewFromFloat(lat), decimal.NewFromFloat(lng))
}

func (p Point) Equal(o Point) bool {
	return p.Lat.Equal(o.Lat) && p.Lng.Equal(o.Lng)
}

func (p Point) Floats() (lat, lng float64) {
	return p.Lat.InexactFloat64(), p.Lng.InexactFloat64()
}

type pointJSON struct {
	Lat json.Number `json:"lat"`
	Lng json.Number `json:"lng"`
}

// MarshalJSON writes coordinates as JSON numbers, not quoted strings.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{
		Lat: json.Number(p.Lat.String()),
		Lng: json.Number(p.Lng.String()),
	})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat decimal.Decimal `json:"lat"`
		Lng decimal.Decimal `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = NewPoint(raw.Lat, raw.Lng)
	return nil
}
