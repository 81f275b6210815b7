package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/dispatchgrid/backend/internal/domain"
	"github.com/dispatchgrid/backend/internal/realtime"
	"github.com/dispatchgrid/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	statsSvc    *service.StatsService
	routeSvc    *service.RouteService
	repo        service.DispatchRepository
	registry    *realtime.Registry
	broadcaster *realtime.Broadcaster
}

// NewHandler creates a new handler
func NewHandler(
	statsSvc *service.StatsService,
	routeSvc *service.RouteService,
	repo service.DispatchRepository,
	registry *realtime.Registry,
	broadcaster *realtime.Broadcaster,
) *Handler {
	return &Handler{
		statsSvc:    statsSvc,
		routeSvc:    routeSvc,
		repo:        repo,
		registry:    registry,
		broadcaster: broadcaster,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		dbStatus = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":      "ok",
		"service":     "dispatchgrid-backend",
		"version":     "1.0.0",
		"database":    dbStatus,
		"connections": h.registry.Count(),
	})
}

// GetDashboard returns aggregated system statistics
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	stats, err := h.statsSvc.GetSystemStats(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch system stats")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// GetSocketStats returns live connection details
func (h *Handler) GetSocketStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active_connections": h.registry.Count(),
		"connections":        h.registry.Snapshot(),
	})
}

// BroadcastTest pushes an arbitrary envelope to all connected clients
// (dispatcher console testing)
func (h *Handler) BroadcastTest(c *fiber.Ctx) error {
	var req struct {
		Type          string         `json:"type"`
		Data          map[string]any `json:"data"`
		ExcludeClient string         `json:"exclude_client"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Type == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Message type is required")
	}

	h.registry.Broadcast(realtime.NewEnvelope(req.Type, req.Data), req.ExcludeClient)

	return c.JSON(fiber.Map{
		"message":    "Broadcast sent",
		"recipients": h.registry.Count(),
		"type":       req.Type,
	})
}

// GetRoutesForIncident computes routes for every vehicle responding to an
// incident
func (h *Handler) GetRoutesForIncident(c *fiber.Ctx) error {
	ctx := c.Context()
	incidentID := c.Params("incidentId")

	incident, err := h.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return notFoundOr(err, "Failed to fetch incident")
	}

	vehicles, err := h.repo.VehiclesForIncident(ctx, incidentID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch vehicles")
	}

	result, err := h.routeSvc.OptimizeForIncident(incident, vehicles)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to compute routes")
	}

	return c.JSON(result)
}

// OptimizeRoutes recomputes routes for an incident and broadcasts each
// updated route to connected clients
func (h *Handler) OptimizeRoutes(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		IncidentID string `json:"incident_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.IncidentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "incident_id is required")
	}

	incident, err := h.repo.GetIncident(ctx, req.IncidentID)
	if err != nil {
		return notFoundOr(err, "Failed to fetch incident")
	}

	vehicles, err := h.repo.VehiclesForIncident(ctx, req.IncidentID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch vehicles")
	}

	result, err := h.routeSvc.OptimizeForIncident(incident, vehicles)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to compute routes")
	}

	// Fan out after the computation completes
	for vehicleID, route := range result.VehicleRoutes {
		h.broadcaster.RouteOptimization(incident.ID, vehicleID, route)
	}
	h.broadcaster.Notification(domain.Notification{
		Type:       "route-update",
		Message:    fmt.Sprintf("Routes optimized for incident %s", incident.ID),
		Priority:   domain.NotificationMedium,
		IncidentID: incident.ID,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// RecalculateRoute recomputes one vehicle's route and ETA
func (h *Handler) RecalculateRoute(c *fiber.Ctx) error {
	ctx := c.Context()
	vehicleID := c.Params("vehicleId")

	var req struct {
		IncidentID string `json:"incident_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.IncidentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "incident_id is required")
	}

	vehicle, err := h.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return notFoundOr(err, "Failed to fetch vehicle")
	}
	incident, err := h.repo.GetIncident(ctx, req.IncidentID)
	if err != nil {
		return notFoundOr(err, "Failed to fetch incident")
	}

	route, err := h.routeSvc.ComputeRoute(vehicle, incident)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to compute route")
	}
	eta := service.FormatDuration(route.DurationSeconds)

	if _, err := h.repo.UpdateVehicleStatus(ctx, vehicleID, domain.VehicleStatusUpdate{ETA: &eta}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to store vehicle ETA")
	}

	h.broadcaster.RouteOptimization(incident.ID, vehicle.ID, route)

	return c.JSON(fiber.Map{
		"success": true,
		"eta":     eta,
		"route":   route,
	})
}

// NearestVehicles ranks available units by distance to an incident
func (h *Handler) NearestVehicles(c *fiber.Ctx) error {
	ctx := c.Context()
	incidentID := c.Params("incidentId")

	maxKM := c.QueryFloat("max_km", 10.0)
	if maxKM <= 0 {
		maxKM = 10.0
	}

	incident, err := h.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return notFoundOr(err, "Failed to fetch incident")
	}

	vehicles, err := h.repo.ListVehicles(ctx, domain.VehicleFilter{Status: domain.VehicleAvailable})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch vehicles")
	}

	ranked := h.routeSvc.FindNearest(incident, vehicles, maxKM)

	return c.JSON(fiber.Map{
		"incident_id": incident.ID,
		"vehicles":    ranked,
		"count":       len(ranked),
	})
}

// SimulateTraffic generates a traffic condition report for an area and
// broadcasts it
func (h *Handler) SimulateTraffic(c *fiber.Ctx) error {
	area := c.Query("area", "Midtown")

	condition := h.routeSvc.SimulateTrafficUpdate(area)
	h.broadcaster.TrafficUpdate(condition)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    condition,
	})
}

// UpdateVehicleStatus applies a partial vehicle update, then pushes the
// change to connected clients
func (h *Handler) UpdateVehicleStatus(c *fiber.Ctx) error {
	ctx := c.Context()
	vehicleID := c.Params("id")

	var update domain.VehicleStatusUpdate
	if err := c.BodyParser(&update); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	vehicle, err := h.repo.UpdateVehicleStatus(ctx, vehicleID, update)
	if err != nil {
		return notFoundOr(err, "Failed to update vehicle")
	}

	// Broadcast only after the mutation is committed
	h.broadcaster.VehicleUpdate(vehicle.ID, vehicle.Location)
	if update.Status != nil {
		h.broadcaster.Notification(domain.Notification{
			Type:      "vehicle-status",
			Message:   fmt.Sprintf("%s is now %s", vehicle.CallSign, vehicle.Status),
			Priority:  domain.NotificationLow,
			VehicleID: vehicle.ID,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    vehicle,
	})
}

func notFoundOr(err error, fallback string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Resource not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, fallback)
}
