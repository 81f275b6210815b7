package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dispatchgrid/backend/internal/domain"
)

// StatsService aggregates fleet and incident counts for the dispatch
// dashboard
type StatsService struct {
	repo DispatchRepository
}

// NewStatsService creates a new stats service
func NewStatsService(repo DispatchRepository) *StatsService {
	return &StatsService{repo: repo}
}

// GetSystemStats fetches incident and vehicle counts concurrently using
// goroutines
func (s *StatsService) GetSystemStats(ctx context.Context) (domain.SystemStats, error) {
	var (
		incidents map[domain.IncidentStatus]int
		vehicles  map[domain.VehicleStatus]int
		critical  int
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      []error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		counts, err := s.repo.CountIncidentsByStatus(ctx)
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			incidents = counts
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := s.repo.CountCriticalIncidents(ctx)
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			critical = n
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		counts, err := s.repo.CountVehiclesByStatus(ctx)
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			vehicles = counts
		}
		mu.Unlock()
	}()

	wg.Wait()

	for _, err := range errs {
		log.Printf("Stats fetch error: %v", err)
	}

	stats := domain.SystemStats{
		CriticalIncidents: critical,
		SystemStatus:      "operational",
		Timestamp:         time.Now().UTC(),
	}
	for status, n := range incidents {
		stats.TotalIncidents += n
		switch status {
		case domain.IncidentActive, domain.IncidentDispatched, domain.IncidentOnScene:
			stats.ActiveIncidents += n
		}
	}
	for status, n := range vehicles {
		stats.TotalVehicles += n
		switch status {
		case domain.VehicleAvailable:
			stats.AvailableVehicles += n
		case domain.VehicleEnRoute:
			stats.DispatchedVehicles += n
		case domain.VehicleOnScene:
			stats.OnSceneVehicles += n
		}
	}
	if len(errs) > 0 {
		stats.SystemStatus = "degraded"
	}

	// Even with errors, return what we have
	return stats, nil
}
