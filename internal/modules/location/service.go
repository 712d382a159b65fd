// README: Location service records driver position pings.
package location

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"dispatchdesk/internal/types"
)

var ErrInvalidPosition = errors.New("invalid position")

type positionStore interface {
	SavePosition(ctx context.Context, id types.ID, pos types.Point, at time.Time) error
	SetGeo(ctx context.Context, id types.ID, pos types.Point) error
	RemoveGeo(ctx context.Context, id types.ID) error
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]Nearby, error)
}

type Service struct {
	store positionStore
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Update stores a driver ping. Postgres is the source of truth; the GEO
// mirror is best effort.
func (s *Service) Update(ctx context.Context, u Update) error {
	if u.DriverID == "" || !validPosition(u.Position) {
		return ErrInvalidPosition
	}
	at := u.At
	if at.IsZero() {
		at = s.now()
	}
	if err := s.store.SavePosition(ctx, u.DriverID, u.Position, at); err != nil {
		if errors.Is(err, ErrUnknownDriver) {
			// Drop whatever an earlier ping left behind for a deleted driver.
			if gerr := s.store.RemoveGeo(ctx, u.DriverID); gerr != nil {
				log.Printf("location: geo cleanup for driver %s: %v", u.DriverID, gerr)
			}
		}
		return err
	}
	if err := s.store.SetGeo(ctx, u.DriverID, u.Position); err != nil {
		log.Printf("location: geo mirror for driver %s: %v", u.DriverID, err)
	}
	return nil
}

func (s *Service) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]Nearby, error) {
	if !validPosition(p) || radiusKm <= 0 {
		return nil, ErrInvalidPosition
	}
	return s.store.Nearby(ctx, p, radiusKm)
}

func validPosition(p types.Point) bool {
	if !p.Valid() {
		return false
	}
	return math.Abs(p.Lat) <= 90 && math.Abs(p.Lng) <= 180
}
