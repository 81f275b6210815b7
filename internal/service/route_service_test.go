package service

import (
	"testing"
	"time"

	"github.com/dispatchgrid/backend/internal/domain"
)

func clockAt(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 10, hour, 30, 0, 0, time.UTC)
	}
}

func testVehicle(id string, status domain.VehicleStatus, incidentID string) domain.Vehicle {
	return domain.Vehicle{
		ID:       id,
		CallSign: "Engine " + id,
		Type:     domain.EmergencyFire,
		Status:   status,
		Location: domain.Location{
			Coordinate: domain.Coordinate{Latitude: 40.7614, Longitude: -73.9776},
		},
		CurrentIncidentID: incidentID,
	}
}

func testIncident(id string) domain.Incident {
	return domain.Incident{
		ID:       id,
		Type:     domain.EmergencyFire,
		Priority: domain.PriorityHigh,
		Status:   domain.IncidentDispatched,
		Location: domain.Location{
			Coordinate: domain.Coordinate{Latitude: 40.7589, Longitude: -73.9851},
		},
	}
}

func TestComputeRoute(t *testing.T) {
	t.Run("waypoints span vehicle to incident", func(t *testing.T) {
		svc := NewRouteService(1, clockAt(3))
		vehicle := testVehicle("V-1", domain.VehicleEnRoute, "INC-1")
		incident := testIncident("INC-1")

		route, err := svc.ComputeRoute(vehicle, incident)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(route.Waypoints) != 5 {
			t.Fatalf("got %d waypoints, want 5", len(route.Waypoints))
		}
		if route.Waypoints[0] != vehicle.Location.Coordinate {
			t.Errorf("route starts at %v, want vehicle position %v", route.Waypoints[0], vehicle.Location.Coordinate)
		}
		if route.Waypoints[4] != incident.Location.Coordinate {
			t.Errorf("route ends at %v, want incident position %v", route.Waypoints[4], incident.Location.Coordinate)
		}
		if route.VehicleID != "V-1" {
			t.Errorf("vehicle id = %s, want V-1", route.VehicleID)
		}
	})

	t.Run("night hour is light traffic", func(t *testing.T) {
		svc := NewRouteService(1, clockAt(3))
		route, err := svc.ComputeRoute(testVehicle("V-1", domain.VehicleEnRoute, "INC-1"), testIncident("INC-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if route.Traffic != domain.TrafficLight {
			t.Errorf("traffic at 03:30 = %v, want light", route.Traffic)
		}
		// At factor 1.0 the duration is distance over base speed
		want := int(route.DistanceMeters / 11.18)
		if route.DurationSeconds != want {
			t.Errorf("duration = %d, want %d", route.DurationSeconds, want)
		}
	})

	t.Run("rush hour is heavy traffic", func(t *testing.T) {
		svc := NewRouteService(1, clockAt(8))
		route, err := svc.ComputeRoute(testVehicle("V-1", domain.VehicleEnRoute, "INC-1"), testIncident("INC-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if route.Traffic != domain.TrafficHeavy {
			t.Errorf("traffic at 08:30 = %v, want heavy", route.Traffic)
		}
		want := int(route.DistanceMeters / (11.18 / 2.0))
		if route.DurationSeconds != want {
			t.Errorf("duration = %d, want %d", route.DurationSeconds, want)
		}
	})

	t.Run("alternatives always include highway and surface streets", func(t *testing.T) {
		svc := NewRouteService(1, clockAt(12))
		route, err := svc.ComputeRoute(testVehicle("V-1", domain.VehicleEnRoute, "INC-1"), testIncident("INC-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(route.Alternatives) < 2 {
			t.Fatalf("got %d alternatives, want at least 2", len(route.Alternatives))
		}
		if route.Alternatives[0].Name != "Via Highway" || route.Alternatives[1].Name != "Via Surface Streets" {
			t.Errorf("unexpected alternative order: %+v", route.Alternatives)
		}
	})

	t.Run("malformed coordinate rejected", func(t *testing.T) {
		svc := NewRouteService(1, clockAt(12))
		vehicle := testVehicle("V-1", domain.VehicleEnRoute, "INC-1")
		vehicle.Location.Coordinate.Latitude = 120

		if _, err := svc.ComputeRoute(vehicle, testIncident("INC-1")); err == nil {
			t.Error("expected error for out-of-range latitude, got nil")
		}
	})
}

func TestOptimizeForIncident(t *testing.T) {
	svc := NewRouteService(99, clockAt(14))
	incident := testIncident("INC-7")

	vehicles := []domain.Vehicle{
		testVehicle("V-1", domain.VehicleEnRoute, "INC-7"),
		testVehicle("V-2", domain.VehicleOnScene, "INC-7"),
		testVehicle("V-3", domain.VehicleAvailable, ""),
		testVehicle("V-4", domain.VehicleEnRoute, "INC-other"),
		testVehicle("V-5", domain.VehicleReturning, "INC-7"),
	}

	result, err := svc.OptimizeForIncident(incident, vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.IncidentID != "INC-7" {
		t.Errorf("incident id = %s, want INC-7", result.IncidentID)
	}
	if len(result.VehicleRoutes) != 2 {
		t.Fatalf("got routes for %d vehicles, want 2: %+v", len(result.VehicleRoutes), result.VehicleRoutes)
	}
	if _, ok := result.VehicleRoutes["V-1"]; !ok {
		t.Error("missing route for en route vehicle V-1")
	}
	if _, ok := result.VehicleRoutes["V-2"]; !ok {
		t.Error("missing route for on scene vehicle V-2")
	}

	if len(result.History) != 1 {
		t.Fatalf("got %d history entries, want 1", len(result.History))
	}
	event := result.History[0]
	if event.VehiclesAffected != 2 {
		t.Errorf("vehicles affected = %d, want 2", event.VehiclesAffected)
	}
	if event.EstimatedSecondsSaved < 30 || event.EstimatedSecondsSaved > 180 {
		t.Errorf("estimated seconds saved = %d, want within [30, 180]", event.EstimatedSecondsSaved)
	}
	if !event.Timestamp.Equal(clockAt(14)().UTC()) {
		t.Errorf("event timestamp = %v, want clock time", event.Timestamp)
	}
}

func TestFindNearest(t *testing.T) {
	svc := NewRouteService(5, clockAt(10))

	makeFleet := func(n int, vtype domain.EmergencyType) []domain.Vehicle {
		fleet := make([]domain.Vehicle, 0, n)
		for i := 0; i < n; i++ {
			v := testVehicle(string(rune('A'+i)), domain.VehicleAvailable, "")
			v.Type = vtype
			v.Location.Coordinate.Latitude += float64(i) * 0.001
			fleet = append(fleet, v)
		}
		return fleet
	}

	t.Run("caps results at five", func(t *testing.T) {
		ranked := svc.FindNearest(testIncident("INC-1"), makeFleet(8, domain.EmergencyFire), 50)
		if len(ranked) != 5 {
			t.Errorf("got %d results, want 5", len(ranked))
		}
	})

	t.Run("type mismatch excluded for non-critical", func(t *testing.T) {
		ranked := svc.FindNearest(testIncident("INC-1"), makeFleet(3, domain.EmergencyMedical), 50)
		if len(ranked) != 0 {
			t.Errorf("medical units matched a fire incident: %+v", ranked)
		}
	})

	t.Run("critical priority takes any unit type", func(t *testing.T) {
		incident := testIncident("INC-1")
		incident.Priority = domain.PriorityCritical
		ranked := svc.FindNearest(incident, makeFleet(3, domain.EmergencyMedical), 50)
		if len(ranked) != 3 {
			t.Errorf("got %d results, want 3", len(ranked))
		}
	})
}

func TestRecalculateETA(t *testing.T) {
	svc := NewRouteService(3, clockAt(3))

	vehicle := testVehicle("V-1", domain.VehicleEnRoute, "INC-1")
	incident := testIncident("INC-1")
	// Zero-distance route gives a deterministic zero ETA
	vehicle.Location.Coordinate = incident.Location.Coordinate

	eta, err := svc.RecalculateETA(vehicle, incident)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eta != "0s" {
		t.Errorf("eta = %q, want 0s", eta)
	}
}

func TestSimulateTrafficUpdate(t *testing.T) {
	svc := NewRouteService(11, clockAt(9))

	for i := 0; i < 50; i++ {
		cond := svc.SimulateTrafficUpdate("Midtown")

		switch cond.Severity {
		case "light":
			if cond.EstimatedDelayMinutes != 0 {
				t.Errorf("light severity with delay %d, want 0", cond.EstimatedDelayMinutes)
			}
		case "moderate", "heavy":
			if cond.EstimatedDelayMinutes < 2 || cond.EstimatedDelayMinutes > 15 {
				t.Errorf("delay = %d, want within [2, 15]", cond.EstimatedDelayMinutes)
			}
		default:
			t.Fatalf("unexpected severity %q", cond.Severity)
		}

		if cond.Area != "Midtown" {
			t.Errorf("area = %q, want Midtown", cond.Area)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{59, "59s"},
		{60, "1m"},
		{65, "1m 5s"},
		{119, "1m 59s"},
		{600, "10m"},
		{3599, "59m 59s"},
		{3600, "1h"},
		{3660, "1h 1m"},
		{7265, "2h 1m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
