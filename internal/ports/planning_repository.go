package ports

import (
	"context"
	"fleet-route-planner/internal/domain"
	"time"
)

// Port: read-only access to everything a solve needs for one owner and date.
type PlanningRepository interface {
	// Return the owner or domain.ErrOwnerNotFound.
	GetOwner(ctx context.Context, ownerID int) (*domain.Owner, error)
	ListActiveDrivers(ctx context.Context, ownerID int) ([]*domain.Driver, error)
	// Availability keyed by driver id; drivers without a record are absent.
	ListAvailability(ctx context.Context, ownerID int, date time.Time) (map[int]domain.Availability, error)
	ListOpenJobs(ctx context.Context, ownerID int) ([]*domain.Job, error)
	ListFixedRoutes(ctx context.Context, ownerID int, date time.Time) ([]domain.FixedRoute, error)
}
