package geo

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/dispatchgrid/backend/internal/domain"
	"github.com/dispatchgrid/backend/pkg/utils"
)

const (
	// BaseSpeedMetersPerSecond is the average emergency vehicle speed in
	// dense urban traffic (~25 mph)
	BaseSpeedMetersPerSecond = 11.18

	// waypointJitterDegrees bounds the cosmetic perturbation applied to
	// intermediate waypoints to emulate road curvature
	waypointJitterDegrees = 0.001
)

// Distance returns the great-circle distance between two coordinates in
// meters. Symmetric; zero for identical points.
func Distance(a, b domain.Coordinate) float64 {
	return utils.HaversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// TrafficFactor returns the congestion multiplier for a local hour [0,23].
// Rush hours slow traffic the most; overnight is free-flowing.
func TrafficFactor(hour int) float64 {
	switch {
	case (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19):
		return 2.0
	case hour >= 10 && hour <= 16:
		return 1.5
	case hour >= 6 && hour <= 22:
		return 1.2
	default:
		return 1.0
	}
}

// TravelTimeSeconds estimates travel time for a distance at the given
// traffic factor, floored to whole seconds. Negative distance is a
// precondition violation.
func TravelTimeSeconds(distanceMeters, trafficFactor float64) (int, error) {
	if distanceMeters < 0 {
		return 0, fmt.Errorf("geo: negative distance %v", distanceMeters)
	}
	adjustedSpeed := BaseSpeedMetersPerSecond / trafficFactor
	return int(distanceMeters / adjustedSpeed), nil
}

// ClassifyTraffic maps a traffic factor to a congestion level
func ClassifyTraffic(factor float64) domain.TrafficLevel {
	switch {
	case factor >= 1.8:
		return domain.TrafficHeavy
	case factor >= 1.3:
		return domain.TrafficModerate
	default:
		return domain.TrafficLight
	}
}

// InterpolateWaypoints produces count points from origin to destination
// inclusive. Intermediate points are linearly interpolated with a small
// bounded jitter to emulate road curvature; the jitter is cosmetic only and
// never feeds distance or time calculations. The endpoints are exact.
func InterpolateWaypoints(origin, destination domain.Coordinate, count int, rng *rand.Rand) ([]domain.Coordinate, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, fmt.Errorf("geo: waypoint count %d below minimum of 2", count)
	}

	points := make([]domain.Coordinate, 0, count)
	points = append(points, origin)

	for i := 1; i < count-1; i++ {
		progress := float64(i) / float64(count-1)
		points = append(points, domain.Coordinate{
			Latitude:  utils.Lerp(origin.Latitude, destination.Latitude, progress) + jitter(rng),
			Longitude: utils.Lerp(origin.Longitude, destination.Longitude, progress) + jitter(rng),
		})
	}

	points = append(points, destination)
	return points, nil
}

func jitter(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * waypointJitterDegrees
}

// GenerateAlternatives produces comparative routing options scaled from a
// base estimate. The highway and surface-street options are always present
// in that order; an emergency corridor is appended with probability 0.5.
func GenerateAlternatives(baseDistance float64, baseDuration int, rng *rand.Rand) []domain.RouteAlternative {
	alternatives := []domain.RouteAlternative{
		{
			Name:            "Via Highway",
			DistanceMeters:  baseDistance * 1.2,
			DurationSeconds: int(float64(baseDuration) * 0.8),
			Traffic:         domain.TrafficLight,
		},
		{
			Name:            "Via Surface Streets",
			DistanceMeters:  baseDistance * 0.9,
			DurationSeconds: int(float64(baseDuration) * 1.3),
			Traffic:         domain.TrafficModerate,
		},
	}

	// 50% chance an emergency corridor is clear; simulated, not measured
	if rng.Float64() > 0.5 {
		alternatives = append(alternatives, domain.RouteAlternative{
			Name:            "Emergency Corridor",
			DistanceMeters:  baseDistance * 1.1,
			DurationSeconds: int(float64(baseDuration) * 0.6),
			Traffic:         domain.TrafficLight,
		})
	}

	return alternatives
}

// Candidate is a unit considered by RankNearest
type Candidate struct {
	ID         string
	Coordinate domain.Coordinate
	Type       domain.EmergencyType
}

// Ranked is a candidate paired with its distance from the origin
type Ranked struct {
	ID             string  `json:"id"`
	DistanceMeters float64 `json:"distance"`
}

// RankNearest returns candidates within maxDistanceMeters of origin sorted
// ascending by distance. Only candidates matching filterType are considered
// unless override is set (critical incidents take any unit type). The caller
// truncates to the desired count.
func RankNearest(origin domain.Coordinate, candidates []Candidate, filterType domain.EmergencyType, override bool, maxDistanceMeters float64) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))

	for _, c := range candidates {
		if c.Type != filterType && !override {
			continue
		}
		d := Distance(origin, c.Coordinate)
		if d > maxDistanceMeters {
			continue
		}
		ranked = append(ranked, Ranked{ID: c.ID, DistanceMeters: d})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})

	return ranked
}
