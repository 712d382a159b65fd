// README: Driver position ping and nearby-driver result.
package location

import (
	"time"

	"dispatchdesk/internal/types"
)

type Update struct {
	DriverID types.ID
	Position types.Point
	At       time.Time
}

// Nearby is a driver found in the GEO set with its distance from the query point.
type Nearby struct {
	DriverID   types.ID    `json:"driver_id"`
	Position   types.Point `json:"position"`
	DistanceKm float64     `json:"distance_km"`
}
