package ports

import (
	"context"
	"fleet-route-planner/internal/domain"
	"time"
)

// Optional shared cache for computed matrices, keyed by point-set hash.
// Implementations refresh the entry's expiry on every hit.
type MatrixCache interface {
	Get(ctx context.Context, key string, ttl time.Duration) (*domain.Matrix, bool, error)
	Put(ctx context.Context, key string, m *domain.Matrix, ttl time.Duration) error
}
