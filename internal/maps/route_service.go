package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"dispatchdesk/internal/types"
)

var ErrNoRoute = errors.New("no route found")

// DriveEstimate is the driving time and road distance between two points.
type DriveEstimate struct {
	Duration time.Duration `json:"duration"`
	Meters   int           `json:"meters"`
	Text     string        `json:"text"`
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// DriveEstimate returns the driving duration and distance from origin to destination.
func (s *RouteService) DriveEstimate(ctx context.Context, from, to types.Point) (DriveEstimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return DriveEstimate{}, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return DriveEstimate{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return DriveEstimate{
		Duration: leg.Duration,
		Meters:   leg.Distance.Meters,
		Text:     leg.Distance.HumanReadable,
	}, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
