package cache

import (
	"context"
	"database/sql"
	"errors"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fmt"
	"time"
)

// SQLMatrixCache is a SQL-backed shared cache for travel matrices. Rows
// expire ttl after their last read or write.
type SQLMatrixCache struct {
	DB *sql.DB
}

var _ ports.MatrixCache = (*SQLMatrixCache)(nil)

func NewSQLMatrixCache(db *sql.DB) *SQLMatrixCache {
	return &SQLMatrixCache{DB: db}
}

// Get returns the matrix stored under key and pushes its expiry out by ttl.
func (s *SQLMatrixCache) Get(ctx context.Context, key string, ttl time.Duration) (_ *domain.Matrix, _ bool, err error) {
	defer obs.Time(ctx, "matrix.cache.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("matrix cache: db is nil")
	}
	if key == "" {
		return nil, false, errors.New("get matrix cache: key must not be empty")
	}

	q := `
	UPDATE matrix_cache
	SET expires_at = $2
	WHERE cache_key = $1
		AND expires_at > now()
	RETURNING payload;
	`

	var payload []byte
	err = s.DB.QueryRowContext(ctx, q, key, time.Now().Add(ttl)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get matrix cache: query matrix_cache table: %w", err)
	}

	m, err := decodeMatrix(payload)
	if err != nil {
		return nil, false, fmt.Errorf("get matrix cache key=%q: %w", key, err)
	}
	return m, true, nil
}

// Put stores m under key, replacing any previous entry.
func (s *SQLMatrixCache) Put(ctx context.Context, key string, m *domain.Matrix, ttl time.Duration) error {
	if s.DB == nil {
		return errors.New("matrix cache: db is nil")
	}
	if key == "" {
		return errors.New("insert matrix cache: key must not be empty")
	}

	payload, err := encodeMatrix(m)
	if err != nil {
		return fmt.Errorf("insert matrix cache: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert matrix cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO matrix_cache (cache_key, payload, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (cache_key) DO UPDATE
	SET payload = EXCLUDED.payload,
		expires_at = EXCLUDED.expires_at;
	`, key, payload, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("insert matrix cache key=%q: %w", key, err)
	}

	// Writes are rare next to reads, so expired rows are swept here.
	if _, err := tx.ExecContext(ctx, `DELETE FROM matrix_cache WHERE expires_at <= now();`); err != nil {
		return fmt.Errorf("insert matrix cache: sweep expired: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert matrix cache commit: %w", err)
	}

	return nil
}
