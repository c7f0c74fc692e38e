// README: Order handlers for create/get/status/assign.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/http/middleware"
	"tracker/internal/modules/order"
	"tracker/internal/tracking"
	"tracker/internal/types"
)

type OrderHandler struct {
	engine *tracking.Engine
}

func NewOrderHandler(engine *tracking.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

type createOrderReq struct {
	CustomerID      string `json:"customerId"`
	PickupAddress   string `json:"pickupAddress"`
	DeliveryAddress string `json:"deliveryAddress"`
	Pickup          coords `json:"pickup"`
	Delivery        coords `json:"delivery"`
	Notes           string `json:"notes"`
}

type createOrderResp struct {
	Order   *order.Order            `json:"order"`
	Payment *tracking.PaymentIntent `json:"payment,omitempty"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	pickup, ok := req.Pickup.point()
	if !ok {
		writeError(c, http.StatusBadRequest, "pickup lat/lng required")
		return
	}
	delivery, ok := req.Delivery.point()
	if !ok {
		writeError(c, http.StatusBadRequest, "delivery lat/lng required")
		return
	}
	o, intent, err := h.engine.CreateOrder(c.Request.Context(), tracking.CreateOrderCmd{
		CustomerID:      types.ID(req.CustomerID),
		PickupAddress:   req.PickupAddress,
		DeliveryAddress: req.DeliveryAddress,
		Pickup:          pickup,
		Delivery:        delivery,
		Notes:           req.Notes,
	}, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, createOrderResp{Order: o, Payment: intent})
}

// List returns the caller's orders: customers see their own, drivers their
// assignments and admins everything. ?status= narrows the list.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.engine.ListOrders(c.Request.Context(), order.Status(c.Query("status")), middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.engine.GetOrder(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type statusReq struct {
	Status order.Status `json:"status"`
}

func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		writeError(c, http.StatusBadRequest, "status required")
		return
	}
	o, err := h.engine.ChangeStatus(c.Request.Context(), id, req.Status, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type assignReq struct {
	DriverID string `json:"driverId"`
}

func (h *OrderHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.DriverID) {
		writeError(c, http.StatusBadRequest, "driverId required")
		return
	}
	o, err := h.engine.AssignDriver(c.Request.Context(), id, types.ID(req.DriverID), middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
