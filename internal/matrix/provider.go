package matrix

import (
	"context"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 15 * time.Minute
	DefaultSize         = 256
	DefaultFetchTimeout = 20 * time.Second
)

// Options tune a Provider. Zero values select the defaults.
type Options struct {
	TTL          time.Duration
	Size         int
	FetchTimeout time.Duration
	SpeedKmh     float64
	// Shared is an optional second-level cache visible to other processes.
	Shared ports.MatrixCache
}

// MatrixResult is a matrix for the requested points plus how it was obtained.
type MatrixResult struct {
	Matrix        *domain.Matrix
	Degraded      bool
	FromCache     bool
	FallbackCells int
}

// Provider returns travel matrices for point sets.
//
// Lookups go through an in-process LRU, then the optional shared cache, then
// the external source. Concurrent misses for the same key share one fetch.
// Cells the source cannot answer are filled with a great-circle estimate, so
// GetMatrix only fails when the caller's context ends.
//
// The provider is safe for concurrent use.
type Provider struct {
	source       ports.MatrixSource
	shared       ports.MatrixCache
	local        *expirable.LRU[string, *domain.Matrix]
	group        singleflight.Group
	ttl          time.Duration
	fetchTimeout time.Duration
	speedKmh     float64
}

func NewProvider(source ports.MatrixSource, opts Options) *Provider {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.SpeedKmh <= 0 {
		opts.SpeedKmh = DefaultSpeedKmh
	}

	return &Provider{
		source:       source,
		shared:       opts.Shared,
		local:        expirable.NewLRU[string, *domain.Matrix](opts.Size, nil, opts.TTL),
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		speedKmh:     opts.SpeedKmh,
	}
}

// GetMatrix returns the matrix for points, indexed in point order.
// The returned matrix is owned by the caller.
func (p *Provider) GetMatrix(
	ctx context.Context,
	key string,
	points []domain.Coordinates,
) (_ *MatrixResult, err error) {
	defer obs.Time(ctx, "matrix.GetMatrix")(&err)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get matrix: %w", err)
	}

	if len(points) == 0 {
		return &MatrixResult{Matrix: domain.NewMatrix(0)}, nil
	}

	if m, ok := p.lookupLocal(key, len(points)); ok {
		return &MatrixResult{Matrix: m.Clone(), FromCache: true}, nil
	}

	// The fetch runs on a context detached from this caller so that one
	// caller giving up does not fail the others waiting on the same key.
	ch := p.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()
		return p.load(fctx, key, points), nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get matrix: %w", ctx.Err())
	case res := <-ch:
		loaded := res.Val.(*MatrixResult)
		out := *loaded
		out.Matrix = loaded.Matrix.Clone()
		return &out, nil
	}
}

func (p *Provider) lookupLocal(key string, n int) (*domain.Matrix, bool) {
	m, ok := p.local.Get(key)
	if !ok || m.Size() != n {
		obs.MatrixLookups.WithLabelValues("local", "miss").Inc()
		return nil, false
	}
	// Re-adding restarts the entry's TTL, which makes the expiry sliding.
	p.local.Add(key, m)
	obs.MatrixLookups.WithLabelValues("local", "hit").Inc()
	return m, true
}

// load resolves a miss. It never returns nil.
func (p *Provider) load(ctx context.Context, key string, points []domain.Coordinates) *MatrixResult {
	// Another flight may have filled the entry since the caller's lookup,
	// which already counted the miss.
	if m, ok := p.local.Get(key); ok && m.Size() == len(points) {
		return &MatrixResult{Matrix: m, FromCache: true}
	}

	log := obs.FromContext(ctx)

	if p.shared != nil {
		m, ok, err := p.shared.Get(ctx, key, p.ttl)
		switch {
		case err != nil:
			obs.MatrixLookups.WithLabelValues("shared", "error").Inc()
			log.Warn().Err(err).Str("key", key).Msg("shared matrix cache read failed")
		case ok && m.Size() == len(points):
			obs.MatrixLookups.WithLabelValues("shared", "hit").Inc()
			p.local.Add(key, m)
			return &MatrixResult{Matrix: m, FromCache: true}
		default:
			obs.MatrixLookups.WithLabelValues("shared", "miss").Inc()
		}
	}

	res := p.fetch(ctx, points)
	if res.Degraded {
		obs.MatrixFallbackCells.Add(float64(res.FallbackCells))
		log.Warn().
			Str("key", key).
			Int("points", len(points)).
			Int("fallback_cells", res.FallbackCells).
			Msg("matrix degraded: using great-circle estimate")
		// Degraded matrices are not cached so the next request retries the source.
		return res
	}

	p.local.Add(key, res.Matrix)
	if p.shared != nil {
		if err := p.shared.Put(ctx, key, res.Matrix, p.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("shared matrix cache write failed")
		}
	}
	return res
}

// fetch asks the source for the table and patches every unusable cell.
func (p *Provider) fetch(ctx context.Context, points []domain.Coordinates) *MatrixResult {
	n := len(points)
	fallback := Fallback(points, p.speedKmh)

	if p.source == nil {
		return &MatrixResult{Matrix: fallback, Degraded: n > 1, FallbackCells: n*n - n}
	}

	table, err := p.source.Table(ctx, points)
	if err != nil {
		obs.FromContext(ctx).Warn().Err(err).Int("points", n).Msg("matrix source failed")
		return &MatrixResult{Matrix: fallback, Degraded: n > 1, FallbackCells: n*n - n}
	}

	m := domain.NewMatrix(n)
	patched := 0
	for i := range n {
		for j := range n {
			if i == j {
				continue
			}
			meters, okD := cell(table.DistancesMeters, i, j)
			seconds, okT := cell(table.DurationsSeconds, i, j)
			if !okD || !okT {
				m.Km[i][j] = fallback.Km[i][j]
				m.Minutes[i][j] = fallback.Minutes[i][j]
				patched++
				continue
			}
			m.Km[i][j] = meters / 1000
			m.Minutes[i][j] = seconds / 60
		}
	}

	return &MatrixResult{Matrix: m, Degraded: patched > 0, FallbackCells: patched}
}

func cell(rows [][]*float64, i, j int) (float64, bool) {
	if i >= len(rows) || j >= len(rows[i]) || rows[i][j] == nil {
		return 0, false
	}
	v := *rows[i][j]
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
