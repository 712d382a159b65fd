// README: Ranked candidates, selections and the assignment audit record.
package matching

import (
	"time"

	"dispatchdesk/internal/maps"
	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/types"
)

// Candidate is a driver annotated with its distance to one order's target.
// It only lives for the duration of a single ranking pass.
type Candidate struct {
	Driver     driver.Driver       `json:"driver"`
	DistanceKm float64             `json:"distance_km"`
	Drive      *maps.DriveEstimate `json:"drive,omitempty"`
}

// Selection is the selector's pick. Fallback is set when no free driver
// existed and the pick was random.
type Selection struct {
	Candidate
	Fallback bool `json:"fallback"`
}

type Source string

const (
	SourceAutoPilot Source = "autopilot"
	SourceManual    Source = "manual"
)

type AuditEntry struct {
	OrderID    types.ID  `json:"order_id"`
	DriverID   types.ID  `json:"driver_id"`
	DriverName string    `json:"driver_name"`
	Source     Source    `json:"source"`
	At         time.Time `json:"at"`
}

const (
	// auditLogSize caps the Redis assignment log.
	auditLogSize = 500
	// etaCandidates is how many of the nearest candidates get a driving estimate.
	etaCandidates = 5
)
