package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://api.openrouteservice.org"
	DefaultProfile     = "driving-car"
	defaultMaxElements = 3500
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources,omitempty"`
	Destinations []int       `json:"destinations,omitempty"`
	Metrics      []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// ORSOptions configure an ORSMatrixSource. Zero values select defaults.
type ORSOptions struct {
	BaseURL string
	Profile string
	// RatePerSecond limits requests across all callers of one source.
	RatePerSecond float64
	// MaxElements caps sources x destinations per request; larger tables
	// are split by source rows.
	MaxElements int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// ORSMatrixSource implements ports.MatrixSource with the OpenRouteService
// matrix endpoint.
//
// The source is safe for concurrent use.
type ORSMatrixSource struct {
	session     *http.Client
	limiter     *rate.Limiter
	apiKey      string
	baseURL     string
	profile     string
	maxElements int
	maxAttempts int
	backoff     time.Duration
}

var _ ports.MatrixSource = (*ORSMatrixSource)(nil)

func NewORSMatrixSource(apiKey string, opts ORSOptions) (*ORSMatrixSource, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Profile == "" {
		opts.Profile = DefaultProfile
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 2
	}
	if opts.MaxElements <= 0 {
		opts.MaxElements = defaultMaxElements
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &ORSMatrixSource{
		session:     client,
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		apiKey:      apiKey,
		baseURL:     opts.BaseURL,
		profile:     opts.Profile,
		maxElements: opts.MaxElements,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}, nil
}

// Table returns the all-pairs table for points. Requests for large point
// sets are split into row blocks fetched concurrently.
func (o *ORSMatrixSource) Table(ctx context.Context, points []domain.Coordinates) (_ *ports.TravelTable, err error) {
	defer obs.Time(ctx, "ors.Table")(&err)

	n := len(points)
	out := &ports.TravelTable{
		DistancesMeters:  make([][]*float64, n),
		DurationsSeconds: make([][]*float64, n),
	}
	if n == 0 {
		return out, nil
	}

	locations := make([][]float64, n)
	for i, p := range points {
		locations[i] = p.CoordsToList()
	}

	rowsPerRequest := max(1, o.maxElements/n)
	if rowsPerRequest >= n {
		if err := o.fetchRows(ctx, locations, 0, n, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for from := 0; from < n; from += rowsPerRequest {
		to := min(from+rowsPerRequest, n)
		g.Go(func() error {
			return o.fetchRows(gctx, locations, from, to, out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchRows fills rows [from, to) of out. Each call writes disjoint rows.
func (o *ORSMatrixSource) fetchRows(
	ctx context.Context,
	locations [][]float64,
	from, to int,
	out *ports.TravelTable,
) error {
	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	body := matrixRequest{
		Locations: locations,
		Metrics:   []string{"distance", "duration"},
	}
	if from > 0 || to < len(locations) {
		for i := from; i < to; i++ {
			body.Sources = append(body.Sources, i)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.post(ctx, endpoint, payload)
	if err != nil {
		return fmt.Errorf("matrix request rows %d-%d failed: %w", from, to, err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return fmt.Errorf("decode matrix response: %w", err)
	}

	want := to - from
	if len(mr.Distances) != want || len(mr.Durations) != want {
		return fmt.Errorf(
			"expected %d source rows; got distances=%d durations=%d",
			want, len(mr.Distances), len(mr.Durations),
		)
	}
	for r := range want {
		if len(mr.Distances[r]) != len(locations) || len(mr.Durations[r]) != len(locations) {
			return fmt.Errorf(
				"row %d length does not match locations: distances=%d durations=%d locations=%d",
				from+r, len(mr.Distances[r]), len(mr.Durations[r]), len(locations),
			)
		}
		out.DistancesMeters[from+r] = mr.Distances[r]
		out.DurationsSeconds[from+r] = mr.Durations[r]
	}

	return nil
}
