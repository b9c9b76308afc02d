package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// SolveDuration records end-to-end solve-day latency by outcome status.
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "planner_solve_duration_seconds", Help: "Solve-day duration in seconds.", Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}},
		[]string{"status"},
	)
	SolvedJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_jobs_total", Help: "Jobs seen by the planner by outcome."},
		[]string{"outcome"},
	)

	MatrixLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_matrix_lookups_total", Help: "Matrix lookups by cache tier and result."},
		[]string{"tier", "result"},
	)
	MatrixFallbackCells = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "planner_matrix_fallback_cells_total", Help: "Matrix cells filled by the great-circle estimate."},
	)

	// OpDuration is fed by Time for every timed operation.
	OpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "planner_op_duration_seconds", Help: "Duration of timed internal operations.", Buckets: prometheus.DefBuckets},
		[]string{"op", "result"},
	)

	regOnce sync.Once
)

// RegisterDefault registers all collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SolvedJobs)
		Registry.MustRegister(MatrixLookups)
		Registry.MustRegister(MatrixFallbackCells)
		Registry.MustRegister(OpDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
