package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/dispatchgrid/backend/internal/realtime"
)

// SetupRoutes configures all HTTP routes and the WebSocket endpoint
func SetupRoutes(app *fiber.App, handler *Handler, session *realtime.Session) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// WebSocket endpoint for realtime updates
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(session.Run))

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Dashboard and connection introspection
		api.Get("/dashboard", handler.GetDashboard)
		api.Get("/ws/stats", handler.GetSocketStats)
		api.Post("/ws/broadcast", handler.BroadcastTest)

		// Routing engine
		api.Get("/routes/nearest/:incidentId", handler.NearestVehicles)
		api.Get("/routes/traffic/simulation", handler.SimulateTraffic)
		api.Post("/routes/optimize", handler.OptimizeRoutes)
		api.Post("/routes/recalculate/:vehicleId", handler.RecalculateRoute)
		api.Get("/routes/:incidentId", handler.GetRoutesForIncident)

		// Vehicle mutations that fan out over the socket
		api.Put("/vehicles/:id/status", handler.UpdateVehicleStatus)
	}
}
