package matching

import (
	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/location"
	"dispatchdesk/internal/types"
)

// Rank annotates every driver with its distance to target and returns them
// nearest first. Nothing is filtered; callers pass online drivers only.
// Drivers at equal distance keep their input order.
func Rank(target types.Point, drivers []driver.Driver) []Candidate {
	out := make([]Candidate, len(drivers))
	for i, d := range drivers {
		out[i] = Candidate{Driver: d, DistanceKm: location.DistanceKm(d.Position, target)}
	}
	location.SortByDistance(out, func(c Candidate) float64 { return c.DistanceKm })
	return out
}
