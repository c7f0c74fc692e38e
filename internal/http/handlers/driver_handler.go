// README: Driver handlers: registration, profiles, the available roster and availability toggling.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tracker/internal/http/middleware"
	"tracker/internal/modules/order"
	"tracker/internal/tracking"
	"tracker/internal/types"
)

type DriverHandler struct {
	engine *tracking.Engine
}

func NewDriverHandler(engine *tracking.Engine) *DriverHandler {
	return &DriverHandler{engine: engine}
}

// Available lists available drivers. With lat and lng the list is sorted by
// distance and, when radiusKm is given, filtered to that radius.
func (h *DriverHandler) Available(c *gin.Context) {
	var near *types.Point
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw != "" || lngRaw != "" {
		lat, err1 := decimal.NewFromString(latRaw)
		lng, err2 := decimal.NewFromString(lngRaw)
		if err1 != nil || err2 != nil {
			writeError(c, http.StatusBadRequest, "lat and lng must both be numbers")
			return
		}
		p := types.NewPoint(lat, lng)
		near = &p
	}
	var radius float64
	if raw := c.Query("radiusKm"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(c, http.StatusBadRequest, "invalid radiusKm")
			return
		}
		radius = v
	}
	drivers, err := h.engine.AvailableDrivers(c.Request.Context(), near, radius)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"drivers": drivers})
}

type availabilityReq struct {
	Available *bool `json:"isAvailable"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		writeError(c, http.StatusBadRequest, "isAvailable required")
		return
	}
	d, err := h.engine.SetAvailability(c.Request.Context(), id, *req.Available, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DriverHandler) Position(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var orderID *types.ID
	if raw := c.Query("orderId"); raw != "" {
		if !isValidID(raw) {
			writeError(c, http.StatusBadRequest, "invalid orderId")
			return
		}
		orderID = types.ID(raw).Ptr()
	}
	pos, err := h.engine.DriverPosition(c.Request.Context(), id, orderID, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if pos == nil {
		writeError(c, http.StatusNotFound, "no position reported")
		return
	}
	writeJSON(c, http.StatusOK, pos)
}

type registerDriverReq struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	VehicleType  string `json:"vehicleType"`
	VehiclePlate string `json:"vehiclePlate"`
}

// Register creates a driver profile. A driver caller registers itself; an
// admin may name the id and user id.
func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	for _, v := range []string{req.ID, req.UserID} {
		if v != "" && !isValidID(v) {
			writeError(c, http.StatusBadRequest, "invalid id")
			return
		}
	}
	d, err := h.engine.RegisterDriver(c.Request.Context(), tracking.RegisterDriverCmd{
		ID:           types.ID(req.ID),
		UserID:       types.ID(req.UserID),
		VehicleType:  req.VehicleType,
		VehiclePlate: req.VehiclePlate,
	}, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

func (h *DriverHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.engine.GetDriver(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

// Orders lists the orders assigned to a driver, optionally by status.
func (h *DriverHandler) Orders(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	orders, err := h.engine.ListDriverOrders(c.Request.Context(), id, order.Status(c.Query("status")), middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": orders})
}
