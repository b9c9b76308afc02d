package ports

import (
	"context"
	"fleet-route-planner/internal/domain"
)

// Raw travel table as returned by an external routing service.
// A nil cell means the service had no value for that pair.
type TravelTable struct {
	DistancesMeters  [][]*float64
	DurationsSeconds [][]*float64
}

// Contract for retrieving a full travel table for a point set.
type MatrixSource interface {
	// Return the all-pairs table for points, in point order.
	Table(ctx context.Context, points []domain.Coordinates) (*TravelTable, error)
}
