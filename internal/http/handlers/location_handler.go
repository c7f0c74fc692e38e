// README: Location handlers: driver position reports and history.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tracker/internal/http/middleware"
	"tracker/internal/tracking"
	"tracker/internal/types"
)

type LocationHandler struct {
	engine *tracking.Engine
}

func NewLocationHandler(engine *tracking.Engine) *LocationHandler {
	return &LocationHandler{engine: engine}
}

type locationReq struct {
	coords
	OrderID string `json:"orderId"`
}

func (h *LocationHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := req.point()
	if !ok {
		writeError(c, http.StatusBadRequest, "lat and lng required")
		return
	}
	var orderID *types.ID
	if req.OrderID != "" {
		if !isValidID(req.OrderID) {
			writeError(c, http.StatusBadRequest, "invalid orderId")
			return
		}
		orderID = types.ID(req.OrderID).Ptr()
	}
	d, err := h.engine.ReportPosition(c.Request.Context(), id, orderID, p, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *LocationHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}
	records, err := h.engine.LocationHistory(c.Request.Context(), id, limit, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"history": records})
}
