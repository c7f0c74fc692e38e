// README: WebSocket upgrade handler.
package handlers

import (
	"github.com/gin-gonic/gin"

	"tracker/internal/http/middleware"
	"tracker/internal/ws"
)

type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) Serve(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request, middleware.Caller(c))
}
