// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/http/handlers"
	"tracker/internal/http/middleware"
	"tracker/internal/infra"
	"tracker/internal/simulator"
	"tracker/internal/tracking"
	"tracker/internal/types"
	"tracker/internal/ws"
)

type RouterDeps struct {
	Engine    *tracking.Engine
	Simulator *simulator.Simulator
	Hub       *ws.Hub
	Verifier  infra.TokenVerifier
}

func NewRouter(deps RouterDeps, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	admin := middleware.RequireRole(types.RoleAdmin)

	orderHandler := handlers.NewOrderHandler(deps.Engine)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders", orderHandler.List)
	api.GET("/orders/:id", orderHandler.Get)
	api.PATCH("/orders/:id/status", orderHandler.ChangeStatus)
	api.POST("/orders/:id/assign", admin, orderHandler.Assign)

	driverHandler := handlers.NewDriverHandler(deps.Engine)
	api.POST("/drivers", driverHandler.Register)
	api.GET("/drivers/available", driverHandler.Available)
	api.GET("/drivers/:id", driverHandler.Get)
	api.GET("/drivers/:id/orders", driverHandler.Orders)
	api.PUT("/drivers/:id/availability", driverHandler.SetAvailability)
	api.GET("/drivers/:id/position", driverHandler.Position)

	locationHandler := handlers.NewLocationHandler(deps.Engine)
	api.PUT("/drivers/:id/location", locationHandler.Update)
	api.GET("/drivers/:id/location/history", locationHandler.History)

	if deps.Simulator != nil {
		simHandler := handlers.NewSimulationHandler(deps.Simulator)
		sim := api.Group("/simulations", admin)
		sim.GET("", simHandler.List)
		sim.POST("/:id/start", simHandler.Start)
		sim.POST("/:id/stop", simHandler.Stop)
		sim.POST("/:id/reset", simHandler.Reset)
	}

	if deps.Hub != nil {
		api.GET("/ws", handlers.NewWSHandler(deps.Hub).Serve)
	}

	return r
}
