package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fmt"
	"time"
)

// Postgres-backed implementation of the PlanningRepository port.
type PostgresPlanningRepository struct{ DB *sql.DB }

func NewPostgresPlanningRepository(db *sql.DB) *PostgresPlanningRepository {
	return &PostgresPlanningRepository{DB: db}
}

func (p *PostgresPlanningRepository) GetOwner(ctx context.Context, ownerID int) (_ *domain.Owner, err error) {
	defer obs.Time(ctx, "planning.repo.GetOwner")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres planning repository: DB is nil")
	}

	var o domain.Owner
	var fuel, personnel int64
	err = p.DB.QueryRowContext(ctx, `
	SELECT id, name, fuel_cost_cents, personnel_cost_cents, currency
	FROM owners
	WHERE id = $1;
	`, ownerID).Scan(&o.ID, &o.Name, &fuel, &personnel, &o.Costs.CurrencyCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get owner %d: %w", ownerID, domain.ErrOwnerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get owner %d: query owners table: %w", ownerID, err)
	}
	o.Costs.FuelCostPerKm = domain.Money(fuel)
	o.Costs.PersonnelCostPerHour = domain.Money(personnel)
	return &o, nil
}

func (p *PostgresPlanningRepository) ListActiveDrivers(ctx context.Context, ownerID int) (_ []*domain.Driver, err error) {
	defer obs.Time(ctx, "planning.repo.ListActiveDrivers")(&err)

	rows, err := p.DB.QueryContext(ctx, `
	SELECT d.id, d.owner_id, d.name, d.lon, d.lat, d.max_work_minutes, st.service_type_id
	FROM drivers d
	LEFT JOIN driver_service_types st ON st.driver_id = d.id
	WHERE d.owner_id = $1 AND d.active
	ORDER BY d.id, st.service_type_id;
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list drivers: query drivers table: %w", err)
	}
	defer rows.Close()

	drivers := make([]*domain.Driver, 0, 16)
	var last *domain.Driver
	for rows.Next() {
		var d domain.Driver
		var lon, lat sql.NullFloat64
		var st sql.NullInt64
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &lon, &lat, &d.MaxWorkMinutes, &st); err != nil {
			return nil, fmt.Errorf("list drivers: scan row: %w", err)
		}
		if last == nil || last.ID != d.ID {
			d.Start = coordinates(lon, lat)
			last = &d
			drivers = append(drivers, last)
		}
		if st.Valid {
			last.ServiceTypes = append(last.ServiceTypes, int(st.Int64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drivers: row iteration: %w", err)
	}

	return drivers, nil
}

func (p *PostgresPlanningRepository) ListAvailability(
	ctx context.Context,
	ownerID int,
	date time.Time,
) (_ map[int]domain.Availability, err error) {
	defer obs.Time(ctx, "planning.repo.ListAvailability")(&err)

	rows, err := p.DB.QueryContext(ctx, `
	SELECT a.driver_id, a.start_minute, a.end_minute
	FROM availability a
	JOIN drivers d ON d.id = a.driver_id
	WHERE d.owner_id = $1 AND a.work_date = $2;
	`, ownerID, date.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("list availability: query availability table: %w", err)
	}
	defer rows.Close()

	out := make(map[int]domain.Availability)
	for rows.Next() {
		var a domain.Availability
		if err := rows.Scan(&a.DriverID, &a.StartMinute, &a.EndMinute); err != nil {
			return nil, fmt.Errorf("list availability: scan row: %w", err)
		}
		out[a.DriverID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list availability: row iteration: %w", err)
	}

	return out, nil
}

// ListOpenJobs loads open jobs and then their opening hours and exceptions
// in two follow-up queries.
func (p *PostgresPlanningRepository) ListOpenJobs(ctx context.Context, ownerID int) (_ []*domain.Job, err error) {
	defer obs.Time(ctx, "planning.repo.ListOpenJobs")(&err)

	rows, err := p.DB.QueryContext(ctx, `
	SELECT id, owner_id, name, status, lon, lat, service_type_id, service_minutes, due_date, priority_date
	FROM jobs
	WHERE owner_id = $1 AND status = $2
	ORDER BY id;
	`, ownerID, domain.JobStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("list jobs: query jobs table: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.Job, 0, 64)
	byID := make(map[int]*domain.Job)
	for rows.Next() {
		j := &domain.Job{}
		var lon, lat sql.NullFloat64
		var priority sql.NullTime
		if err := rows.Scan(&j.ID, &j.OwnerID, &j.Name, &j.Status, &lon, &lat,
			&j.ServiceTypeID, &j.ServiceMinutes, &j.DueDate, &priority); err != nil {
			return nil, fmt.Errorf("list jobs: scan row: %w", err)
		}
		j.Location = coordinates(lon, lat)
		if priority.Valid {
			t := priority.Time
			j.PriorityDate = &t
		}
		jobs = append(jobs, j)
		byID[j.ID] = j
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: row iteration: %w", err)
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	if err := p.loadOpeningHours(ctx, ownerID, byID); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if err := p.loadOpeningExceptions(ctx, ownerID, byID); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return jobs, nil
}

func (p *PostgresPlanningRepository) loadOpeningHours(ctx context.Context, ownerID int, byID map[int]*domain.Job) error {
	rows, err := p.DB.QueryContext(ctx, `
	SELECT h.job_id, h.weekday, h.open_minute, h.close_minute, h.lunch_start, h.lunch_end
	FROM opening_hours h
	JOIN jobs j ON j.id = h.job_id
	WHERE j.owner_id = $1 AND j.status = $2
	ORDER BY h.job_id, h.weekday, h.open_minute;
	`, ownerID, domain.JobStatusOpen)
	if err != nil {
		return fmt.Errorf("query opening_hours table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobID, weekday int
		var h domain.OpeningHours
		var ls, le sql.NullInt64
		if err := rows.Scan(&jobID, &weekday, &h.Open, &h.Close, &ls, &le); err != nil {
			return fmt.Errorf("scan opening hours: %w", err)
		}
		h.Weekday = time.Weekday(weekday)
		h.Lunch = breakFromColumns(ls, le)
		if j, ok := byID[jobID]; ok {
			j.WeeklyHours = append(j.WeeklyHours, h)
		}
	}
	return rows.Err()
}

func (p *PostgresPlanningRepository) loadOpeningExceptions(ctx context.Context, ownerID int, byID map[int]*domain.Job) error {
	rows, err := p.DB.QueryContext(ctx, `
	SELECT e.job_id, e.exception_date, e.closed, e.open_minute, e.close_minute, e.lunch_start, e.lunch_end
	FROM opening_exceptions e
	JOIN jobs j ON j.id = e.job_id
	WHERE j.owner_id = $1 AND j.status = $2
	ORDER BY e.job_id, e.exception_date;
	`, ownerID, domain.JobStatusOpen)
	if err != nil {
		return fmt.Errorf("query opening_exceptions table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobID int
		var e domain.OpeningException
		var ls, le sql.NullInt64
		if err := rows.Scan(&jobID, &e.Date, &e.Closed, &e.Open, &e.Close, &ls, &le); err != nil {
			return fmt.Errorf("scan opening exception: %w", err)
		}
		e.Lunch = breakFromColumns(ls, le)
		if j, ok := byID[jobID]; ok {
			j.Exceptions = append(j.Exceptions, e)
		}
	}
	return rows.Err()
}

func (p *PostgresPlanningRepository) ListFixedRoutes(
	ctx context.Context,
	ownerID int,
	date time.Time,
) (_ []domain.FixedRoute, err error) {
	defer obs.Time(ctx, "planning.repo.ListFixedRoutes")(&err)

	rows, err := p.DB.QueryContext(ctx, `
	SELECT r.id, r.driver_id, rj.job_id
	FROM fixed_routes r
	LEFT JOIN fixed_route_jobs rj ON rj.route_id = r.id
	WHERE r.owner_id = $1 AND r.route_date = $2
	ORDER BY r.id, rj.job_id;
	`, ownerID, date.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("list fixed routes: query fixed_routes table: %w", err)
	}
	defer rows.Close()

	var out []domain.FixedRoute
	for rows.Next() {
		var routeID, driverID int
		var jobID sql.NullInt64
		if err := rows.Scan(&routeID, &driverID, &jobID); err != nil {
			return nil, fmt.Errorf("list fixed routes: scan row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].RouteID != routeID {
			out = append(out, domain.FixedRoute{RouteID: routeID, DriverID: driverID})
		}
		if jobID.Valid {
			last := &out[len(out)-1]
			last.JobIDs = append(last.JobIDs, int(jobID.Int64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fixed routes: row iteration: %w", err)
	}

	return out, nil
}

// Missing coordinates become (0, 0), which the planner treats as not geocoded.
func coordinates(lon, lat sql.NullFloat64) domain.Coordinates {
	if !lon.Valid || !lat.Valid {
		return domain.Coordinates{}
	}
	return domain.Coordinates{Lon: lon.Float64, Lat: lat.Float64}
}

func breakFromColumns(start, end sql.NullInt64) *domain.Break {
	if !start.Valid || !end.Valid {
		return nil
	}
	return &domain.Break{Start: int(start.Int64), End: int(end.Int64)}
}

func breakColumns(b *domain.Break) (sql.NullInt64, sql.NullInt64) {
	if b == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(b.Start), Valid: true}, sql.NullInt64{Int64: int64(b.End), Valid: true}
}
