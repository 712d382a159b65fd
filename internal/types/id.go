// README: Shared identifier and geographic point types.
package types

import "math"

type ID string

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are present. A zero coordinate is
// treated as missing, matching how nullable columns are scanned.
func (p Point) Valid() bool {
	if p.Lat == 0 || p.Lng == 0 {
		return false
	}
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// PointFromNullable builds a Point from nullable column values; nil becomes 0.
func PointFromNullable(lat, lng *float64) Point {
	var p Point
	if lat != nil {
		p.Lat = *lat
	}
	if lng != nil {
		p.Lng = *lng
	}
	return p
}
