package repositories

import (
	"context"
	"errors"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/db"
	"os"
	"slices"
	"testing"
	"time"
)

const postgresSeedJSON = `{
  "owners": [{"id": 9101, "name": "Pg Owner", "fuel_cost_per_km": 0.25, "personnel_cost_per_hour": 40, "currency": "EUR"}],
  "drivers": [
    {"id": 9110, "owner_id": 9101, "name": "Multi", "lon": 13.4, "lat": 52.5, "max_work_minutes": 480, "service_types": [2, 1]},
    {"id": 9111, "owner_id": 9101, "name": "Plain", "lon": 13.5, "lat": 52.6, "max_work_minutes": 300},
    {"id": 9112, "owner_id": 9101, "name": "Gone", "lon": 13.6, "lat": 52.7, "max_work_minutes": 300, "inactive": true}
  ],
  "availability": [{"driver_id": 9110, "date": "2025-03-03", "start": "08:00", "end": "16:00"}],
  "jobs": [
    {"id": 9120, "owner_id": 9101, "name": "With lunch", "lon": 13.41, "lat": 52.51, "service_type_id": 1, "service_minutes": 20,
     "due_date": "2025-03-05", "priority_date": "2025-03-01",
     "hours": [{"weekday": 1, "open": "08:00", "close": "17:00", "lunch_start": "12:00", "lunch_end": "13:00"}]},
    {"id": 9121, "owner_id": 9101, "name": "No lunch", "lon": 13.42, "lat": 52.52, "service_minutes": 15,
     "due_date": "2025-03-06",
     "hours": [{"weekday": 1, "open": "09:00", "close": "15:00"}],
     "exceptions": [{"date": "2025-03-10", "closed": true}]},
    {"id": 9122, "owner_id": 9101, "name": "Done", "status": "done", "lon": 13.43, "lat": 52.53, "service_minutes": 10,
     "due_date": "2025-03-01", "hours": [{"weekday": 1, "open": "08:00", "close": "16:00"}]}
  ],
  "fixed_routes": [
    {"id": 9130, "owner_id": 9101, "driver_id": 9111, "date": "2025-03-03", "job_ids": [9121, 9120]},
    {"id": 9131, "owner_id": 9101, "driver_id": 9110, "date": "2025-03-03", "job_ids": []}
  ]
}`

// Runs against a real Postgres when TEST_DATABASE_URL is set.
func TestPostgresPlanningRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := db.Open(ctx, url, db.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := InitSchema(ctx, conn); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	if err := SeedFromJSON(ctx, conn, writeSeed(t, postgresSeedJSON)); err != nil {
		t.Fatalf("SeedFromJSON: %v", err)
	}

	repo := NewPostgresPlanningRepository(conn)
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	owner, err := repo.GetOwner(ctx, 9101)
	if err != nil {
		t.Fatalf("GetOwner: %v", err)
	}
	if owner.Costs.FuelCostPerKm != 25 || owner.Costs.PersonnelCostPerHour != 4000 || owner.Costs.CurrencyCode != "EUR" {
		t.Fatalf("owner costs = %+v", owner.Costs)
	}
	if _, err := repo.GetOwner(ctx, 9199); !errors.Is(err, domain.ErrOwnerNotFound) {
		t.Fatalf("missing owner: err = %v", err)
	}

	drivers, err := repo.ListActiveDrivers(ctx, 9101)
	if err != nil {
		t.Fatalf("ListActiveDrivers: %v", err)
	}
	if len(drivers) != 2 {
		t.Fatalf("active drivers = %d, want 2 (one row per driver, inactive skipped)", len(drivers))
	}
	if drivers[0].ID != 9110 || !slices.Equal(drivers[0].ServiceTypes, []int{1, 2}) {
		t.Fatalf("first driver = %+v, want id 9110 with types [1 2]", drivers[0])
	}
	if drivers[1].ID != 9111 || len(drivers[1].ServiceTypes) != 0 {
		t.Fatalf("second driver = %+v, want id 9111 with no types", drivers[1])
	}
	if drivers[0].Start != (domain.Coordinates{Lon: 13.4, Lat: 52.5}) {
		t.Fatalf("driver start = %+v", drivers[0].Start)
	}

	avail, err := repo.ListAvailability(ctx, 9101, date)
	if err != nil {
		t.Fatalf("ListAvailability: %v", err)
	}
	if a, ok := avail[9110]; !ok || a.StartMinute != 480 || a.EndMinute != 960 || len(avail) != 1 {
		t.Fatalf("availability = %+v", avail)
	}

	jobs, err := repo.ListOpenJobs(ctx, 9101)
	if err != nil {
		t.Fatalf("ListOpenJobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != 9120 || jobs[1].ID != 9121 {
		t.Fatalf("open jobs = %d, want 9120 and 9121", len(jobs))
	}
	withLunch, noLunch := jobs[0], jobs[1]
	if len(withLunch.WeeklyHours) != 1 || withLunch.WeeklyHours[0].Lunch == nil ||
		*withLunch.WeeklyHours[0].Lunch != (domain.Break{Start: 720, End: 780}) {
		t.Fatalf("lunch hours = %+v", withLunch.WeeklyHours)
	}
	if withLunch.PriorityDate == nil || withLunch.PriorityDate.Format(time.DateOnly) != "2025-03-01" {
		t.Fatalf("priority date = %v", withLunch.PriorityDate)
	}
	if len(noLunch.WeeklyHours) != 1 || noLunch.WeeklyHours[0].Lunch != nil {
		t.Fatalf("NULL lunch columns should give no break: %+v", noLunch.WeeklyHours)
	}
	if noLunch.PriorityDate != nil {
		t.Fatalf("NULL priority date should stay nil")
	}
	if len(noLunch.Exceptions) != 1 || !noLunch.Exceptions[0].Closed || noLunch.Exceptions[0].Lunch != nil {
		t.Fatalf("exceptions = %+v", noLunch.Exceptions)
	}

	routes, err := repo.ListFixedRoutes(ctx, 9101, date)
	if err != nil {
		t.Fatalf("ListFixedRoutes: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("fixed routes = %+v", routes)
	}
	if routes[0].RouteID != 9130 || routes[0].DriverID != 9111 || !slices.Equal(routes[0].JobIDs, []int{9120, 9121}) {
		t.Fatalf("first route = %+v", routes[0])
	}
	if routes[1].RouteID != 9131 || len(routes[1].JobIDs) != 0 {
		t.Fatalf("empty route = %+v", routes[1])
	}
}
