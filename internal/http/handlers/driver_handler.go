// README: Driver handlers for the online list and nearby search.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/location"
	"dispatchdesk/internal/types"
)

type DriverService interface {
	ListOnline(ctx context.Context) ([]driver.Driver, error)
}

type NearbyFinder interface {
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]location.Nearby, error)
}

type DriverHandler struct {
	drivers DriverService
	nearby  NearbyFinder
}

func NewDriverHandler(drivers DriverService, nearby NearbyFinder) *DriverHandler {
	return &DriverHandler{drivers: drivers, nearby: nearby}
}

func (h *DriverHandler) ListOnline(c *gin.Context) {
	drivers, err := h.drivers.ListOnline(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if drivers == nil {
		drivers = []driver.Driver{}
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": drivers})
}

const defaultNearbyKm = 5.0

func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, okLat := queryFloat(c, "lat")
	lng, okLng := queryFloat(c, "lng")
	if !okLat || !okLng {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := defaultNearbyKm
	if c.Query("radius_km") != "" {
		r, ok := queryFloat(c, "radius_km")
		if !ok {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	found, err := h.nearby.Nearby(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if found == nil {
		found = []location.Nearby{}
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": found})
}
