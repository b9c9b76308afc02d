package api

import (
	"context"
	"encoding/json"
	"errors"
	"fleet-route-planner/internal/adapters/repositories"
	"fleet-route-planner/internal/api/dto"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/matrix"
	"fleet-route-planner/internal/services"
	"fleet-route-planner/internal/solver"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeSolver struct {
	got services.SolveRequest
	res *domain.SolveResult
	err error
}

func (f *fakeSolver) SolveDay(ctx context.Context, req services.SolveRequest) (*domain.SolveResult, error) {
	f.got = req
	return f.res, f.err
}

const validBody = `{"date": "2025-03-03", "ownerId": 1, "weights": {"time": 50, "distance": 50},
	"costs": {"fuelCostPerKm": 0.3, "personnelCostPerHour": 30, "currencyCode": "EUR"},
	"knobs": {"dueCap": 75}, "timeLimitSeconds": 1.5}`

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/plans/solve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSolveEndpointMapsRequestAndResponse(t *testing.T) {
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	fake := &fakeSolver{res: &domain.SolveResult{
		SolveID: "abc", OwnerID: 1, Date: date, Status: domain.SolveStatusSolved,
		Routes: []domain.RoutePlan{{
			DriverID: 10, Date: date, StartMinute: 480, EndMinute: 560, EstimatedCost: 1234,
			Stops: []domain.StopPlan{{JobID: 100, Sequence: 1, ArrivalMinute: 545, Window: domain.TimeWindow{Start: 540, End: 600}}},
		}},
		UnassignedJobIDs: []int{7},
	}}
	h := NewRouter(RouterDeps{Planner: fake})

	rr := post(t, h, validBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}

	if !fake.got.Date.Equal(date) || fake.got.OwnerID != 1 || fake.got.TimeLimit != 1500*time.Millisecond {
		t.Fatalf("unexpected service request %+v", fake.got)
	}
	if fake.got.Costs == nil || fake.got.Costs.FuelCostPerKm != 30 {
		t.Fatalf("costs not mapped: %+v", fake.got.Costs)
	}
	if fake.got.Knobs.DueCap == nil || *fake.got.Knobs.DueCap != 75 || fake.got.Knobs.DetourCap != nil {
		t.Fatalf("knobs not mapped: %+v", fake.got.Knobs)
	}

	var res dto.SolveResponse
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.SolveID != "abc" || len(res.Routes) != 1 || res.Routes[0].EstimatedCost != "12.34" {
		t.Fatalf("unexpected response %+v", res)
	}
	if res.Routes[0].Stops[0].ArrivalTime != "09:05" || res.Routes[0].Stops[0].Window.Label != "09:00-10:00" {
		t.Fatalf("unexpected stop %+v", res.Routes[0].Stops[0])
	}
	if res.SkippedDrivers == nil || res.DroppedJobIDs == nil {
		t.Fatalf("empty lists must encode as []")
	}
}

func TestSolveEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"unknown field", `{"date": "2025-03-03", "ownerId": 1, "bogus": 1}`, nil, http.StatusBadRequest},
		{"missing owner", `{"date": "2025-03-03"}`, nil, http.StatusBadRequest},
		{"bad date", `{"date": "03/03/2025", "ownerId": 1}`, nil, http.StatusBadRequest},
		{"knob out of range", `{"date": "2025-03-03", "ownerId": 1, "knobs": {"detourCap": 120}}`, nil, http.StatusBadRequest},
		{"owner not found", validBody, fmt.Errorf("solve day: %w", domain.ErrOwnerNotFound), http.StatusNotFound},
		{"rejected by planner", validBody, &domain.ValidationError{Field: "weights.time", Reason: "must be a finite number"}, http.StatusBadRequest},
		{"timeout", validBody, fmt.Errorf("solve day: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"internal", validBody, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		h := NewRouter(RouterDeps{Planner: &fakeSolver{err: c.err}})
		rr := post(t, h, c.body)
		if rr.Code != c.status {
			t.Fatalf("%s: status = %d, want %d (body %s)", c.name, rr.Code, c.status, rr.Body.String())
		}
	}
}

func TestSolveEndpointNamesInvalidField(t *testing.T) {
	h := NewRouter(RouterDeps{Planner: &fakeSolver{}})
	rr := post(t, h, `{"date": "2025-03-03", "ownerId": 1, "maxStopsPerDriver": -2}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "maxStopsPerDriver") {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestSolveEndpointRejectsGet(t *testing.T) {
	h := NewRouter(RouterDeps{Planner: &fakeSolver{}})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/plans/solve", nil))
	if rr.Code != http.StatusMethodNotAllowed || rr.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("status = %d allow = %q", rr.Code, rr.Header().Get("Allow"))
	}
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func TestHealthAndMetrics(t *testing.T) {
	h := NewRouter(RouterDeps{Planner: &fakeSolver{}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if rr.Code != http.StatusOK || !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("metrics: %d", rr.Code)
	}

	down := NewRouter(RouterDeps{Planner: &fakeSolver{}, DB: failingPinger{}})
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("health with failing db: %d", rr.Code)
	}
}

func TestSolveEndpointEndToEnd(t *testing.T) {
	repo := repositories.NewMemoryPlanningRepository()
	repo.AddOwner(domain.Owner{ID: 1, Name: "Acme"})
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	repo.AddDriver(domain.Driver{ID: 10, OwnerID: 1, Name: "Ann", Start: domain.Coordinates{Lon: 13.40, Lat: 52.52}, MaxWorkMinutes: 480})
	repo.SetAvailability(date, domain.Availability{DriverID: 10, StartMinute: 480, EndMinute: 960})
	for i, lon := range []float64{13.41, 13.42} {
		repo.AddJob(domain.Job{
			ID: 100 + i, OwnerID: 1, Name: "job", Status: domain.JobStatusOpen,
			Location: domain.Coordinates{Lon: lon, Lat: 52.52}, ServiceMinutes: 15, DueDate: date,
			WeeklyHours: []domain.OpeningHours{{Weekday: time.Monday, Open: 540, Close: 1020}},
		})
	}

	cfg := services.DefaultEngineConfig()
	cfg.Search.TimeLimit = 200 * time.Millisecond
	planner := services.NewPlanner(repo, matrix.NewProvider(nil, matrix.Options{}), solver.New, cfg)
	h := NewRouter(RouterDeps{Planner: planner, SolveTimeout: 10 * time.Second})

	rr := post(t, h, `{"date": "2025-03-03", "ownerId": 1, "weights": {"time": 100}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var res dto.SolveResponse
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != domain.SolveStatusSolved || len(res.Routes) != 1 || len(res.Routes[0].Stops) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Degraded {
		t.Fatalf("estimated matrix should be flagged degraded")
	}
}
