// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/location"
	"dispatchdesk/internal/modules/matching"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/modules/restaurant"
	"dispatchdesk/internal/modules/revenue"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts uuids and the short keys used for drivers.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest),
		errors.Is(err, location.ErrInvalidPosition),
		errors.Is(err, revenue.ErrBadRange):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, driver.ErrNotFound),
		errors.Is(err, restaurant.ErrNotFound),
		errors.Is(err, location.ErrUnknownDriver):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, "order was updated by someone else, refresh and try again")
	case errors.Is(err, order.ErrInvalidState),
		errors.Is(err, matching.ErrDriverUnavailable):
		writeError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("http: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func queryFloat(c *gin.Context, key string) (float64, bool) {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	return v, err == nil
}
