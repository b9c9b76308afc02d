package api

import (
	"fleet-route-planner/internal/api/handlers"
	"fleet-route-planner/internal/platform/obs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps are the collaborators the HTTP surface needs.
type RouterDeps struct {
	Planner      handlers.DaySolver
	DB           handlers.Pinger
	SolveTimeout time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps RouterDeps) http.Handler {
	obs.RegisterDefault()
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{DB: deps.DB}
	solve := handlers.NewSolveHandler(deps.Planner, deps.SolveTimeout)

	mux.Handle("/health", instrument("/health", http.HandlerFunc(health.Health)))
	mux.Handle("/v1/plans/solve", instrument("/v1/plans/solve", http.HandlerFunc(solve.Solve)))
	mux.Handle("/metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))

	return requestIDMiddleware(loggingMiddleware(mux))
}
