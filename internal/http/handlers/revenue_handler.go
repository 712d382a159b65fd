package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatchdesk/internal/modules/revenue"
)

type RevenueService interface {
	Daily(ctx context.Context, from, to time.Time) (revenue.Report, error)
}

type RevenueHandler struct {
	revenue RevenueService
	now     func() time.Time
}

func NewRevenueHandler(svc RevenueService) *RevenueHandler {
	return &RevenueHandler{revenue: svc, now: time.Now}
}

// Daily defaults to the last 7 days, today included.
func (h *RevenueHandler) Daily(c *gin.Context) {
	to := h.now().UTC()
	from := to.AddDate(0, 0, -6)
	var err error
	if v := c.Query("to"); v != "" {
		if to, err = revenue.ParseDate(v); err != nil {
			writeError(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		from = to.AddDate(0, 0, -6)
	}
	if v := c.Query("from"); v != "" {
		if from, err = revenue.ParseDate(v); err != nil {
			writeError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
	}
	rep, err := h.revenue.Daily(c.Request.Context(), from, to)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rep)
}
