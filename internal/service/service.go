package service

import (
	"github.com/dispatchgrid/backend/internal/domain"
)

// DispatchRepository is re-exported from domain for convenience
type DispatchRepository = domain.DispatchRepository
