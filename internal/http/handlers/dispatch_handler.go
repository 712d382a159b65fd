// README: Dispatch handlers for the assignment board and auto-pilot switch.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dispatchdesk/internal/modules/matching"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/types"
)

type DispatchService interface {
	ListAssignable(ctx context.Context) ([]*order.Order, error)
	Candidates(ctx context.Context, orderID types.ID, withDrive bool) (matching.CandidateList, error)
	AssignManual(ctx context.Context, orderIDs []types.ID, driverID types.ID) (order.AssignResult, error)
	AutoPilot() bool
	SetAutoPilot(ctx context.Context, on bool) error
	Status() matching.DispatcherStatus
	RecentAssignments(ctx context.Context, n int) ([]matching.AuditEntry, error)
}

type DispatchHandler struct {
	dispatch DispatchService
}

func NewDispatchHandler(svc DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatch: svc}
}

func (h *DispatchHandler) ListOrders(c *gin.Context) {
	orders, err := h.dispatch.ListAssignable(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

func (h *DispatchHandler) Candidates(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	withDrive := c.Query("eta") == "1" || c.Query("eta") == "true"
	list, err := h.dispatch.Candidates(c.Request.Context(), types.ID(id), withDrive)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, list)
}

type assignReq struct {
	OrderIDs []string `json:"order_ids"`
	DriverID string   `json:"driver_id"`
}

func (h *DispatchHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.OrderIDs) == 0 || !isValidID(req.DriverID) {
		writeError(c, http.StatusBadRequest, "order_ids and driver_id are required")
		return
	}
	ids := make([]types.ID, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		if !isValidID(id) {
			writeError(c, http.StatusBadRequest, "invalid order id")
			return
		}
		ids = append(ids, types.ID(id))
	}

	res, err := h.dispatch.AssignManual(c.Request.Context(), ids, types.ID(req.DriverID))
	if err != nil {
		if errors.Is(err, order.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error":      "some orders were updated by someone else, refresh and try again",
				"assigned":   nonNilIDs(res.Assigned),
				"conflicted": nonNilIDs(res.Conflicted),
			})
			return
		}
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"assigned":   nonNilIDs(res.Assigned),
		"conflicted": nonNilIDs(res.Conflicted),
	})
}

func (h *DispatchHandler) GetAutoPilot(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"enabled": h.dispatch.AutoPilot()})
}

type autoPilotReq struct {
	Enabled *bool `json:"enabled"`
}

func (h *DispatchHandler) SetAutoPilot(c *gin.Context) {
	var req autoPilotReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		writeError(c, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := h.dispatch.SetAutoPilot(c.Request.Context(), *req.Enabled); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"enabled": *req.Enabled})
}

func (h *DispatchHandler) Status(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.dispatch.Status())
}

func (h *DispatchHandler) RecentAssignments(c *gin.Context) {
	n := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		n = parsed
	}
	entries, err := h.dispatch.RecentAssignments(c.Request.Context(), n)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if entries == nil {
		entries = []matching.AuditEntry{}
	}
	writeJSON(c, http.StatusOK, gin.H{"assignments": entries})
}

func nonNilIDs(ids []types.ID) []types.ID {
	if ids == nil {
		return []types.ID{}
	}
	return ids
}
