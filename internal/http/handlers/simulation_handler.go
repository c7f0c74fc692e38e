// README: Admin handlers driving the movement simulator.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/http/middleware"
	"tracker/internal/simulator"
)

type SimulationHandler struct {
	sim *simulator.Simulator
}

func NewSimulationHandler(sim *simulator.Simulator) *SimulationHandler {
	return &SimulationHandler{sim: sim}
}

func (h *SimulationHandler) Start(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	run, err := h.sim.Start(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, run)
}

func (h *SimulationHandler) Stop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orderId": id, "stopped": h.sim.Stop(id)})
}

func (h *SimulationHandler) Reset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.sim.Reset(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *SimulationHandler) List(c *gin.Context) {
	writeJSON(c, http.StatusOK, map[string]any{"runs": h.sim.ActiveRuns()})
}
