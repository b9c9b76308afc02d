package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the Postgres schema used by the planning repository and the
// shared matrix cache.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS owners (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			fuel_cost_cents BIGINT NOT NULL DEFAULT 0,
			personnel_cost_cents BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS drivers (
			id INTEGER PRIMARY KEY,
			owner_id INTEGER NOT NULL REFERENCES owners(id),
			name TEXT NOT NULL DEFAULT '',
			lon DOUBLE PRECISION,
			lat DOUBLE PRECISION,
			max_work_minutes INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS driver_service_types (
			driver_id INTEGER NOT NULL REFERENCES drivers(id) ON DELETE CASCADE,
			service_type_id INTEGER NOT NULL,
			PRIMARY KEY (driver_id, service_type_id)
		);`,
		`CREATE TABLE IF NOT EXISTS availability (
			driver_id INTEGER NOT NULL REFERENCES drivers(id) ON DELETE CASCADE,
			work_date DATE NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			PRIMARY KEY (driver_id, work_date)
		);`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY,
			owner_id INTEGER NOT NULL REFERENCES owners(id),
			name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			lon DOUBLE PRECISION,
			lat DOUBLE PRECISION,
			service_type_id INTEGER NOT NULL DEFAULT 0,
			service_minutes INTEGER NOT NULL DEFAULT 0,
			due_date DATE NOT NULL,
			priority_date DATE
		);`,
		`CREATE TABLE IF NOT EXISTS opening_hours (
			job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			weekday SMALLINT NOT NULL,
			open_minute INTEGER NOT NULL,
			close_minute INTEGER NOT NULL,
			lunch_start INTEGER,
			lunch_end INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS opening_exceptions (
			job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			exception_date DATE NOT NULL,
			closed BOOLEAN NOT NULL DEFAULT FALSE,
			open_minute INTEGER NOT NULL DEFAULT 0,
			close_minute INTEGER NOT NULL DEFAULT 0,
			lunch_start INTEGER,
			lunch_end INTEGER,
			PRIMARY KEY (job_id, exception_date)
		);`,
		`CREATE TABLE IF NOT EXISTS fixed_routes (
			id INTEGER PRIMARY KEY,
			owner_id INTEGER NOT NULL REFERENCES owners(id),
			driver_id INTEGER NOT NULL REFERENCES drivers(id),
			route_date DATE NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fixed_route_jobs (
			route_id INTEGER NOT NULL REFERENCES fixed_routes(id) ON DELETE CASCADE,
			job_id INTEGER NOT NULL,
			PRIMARY KEY (route_id, job_id)
		);`,
		`CREATE TABLE IF NOT EXISTS matrix_cache (
			cache_key TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_owner_status ON jobs(owner_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_fixed_routes_owner_date ON fixed_routes(owner_id, route_date);`,
		`CREATE INDEX IF NOT EXISTS idx_matrix_cache_expires ON matrix_cache(expires_at);`,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the database from a seed file. Existing rows with the same keys
// are replaced.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	s, err := LoadSeed(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, o := range s.Owners {
		owner, err := o.toDomain()
		if err != nil {
			return fmt.Errorf("seed: owner at index %d: %w", i+1, err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO owners (id, name, fuel_cost_cents, personnel_cost_cents, currency)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			fuel_cost_cents = EXCLUDED.fuel_cost_cents,
			personnel_cost_cents = EXCLUDED.personnel_cost_cents,
			currency = EXCLUDED.currency;`,
			owner.ID, owner.Name, int64(owner.Costs.FuelCostPerKm), int64(owner.Costs.PersonnelCostPerHour), owner.Costs.CurrencyCode)
		if err != nil {
			return fmt.Errorf("seed: insert owner id=%d: %w", owner.ID, err)
		}
	}

	for i, d := range s.Drivers {
		driver, err := d.toDomain()
		if err != nil {
			return fmt.Errorf("seed: driver at index %d: %w", i+1, err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO drivers (id, owner_id, name, lon, lat, max_work_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			lon = EXCLUDED.lon,
			lat = EXCLUDED.lat,
			max_work_minutes = EXCLUDED.max_work_minutes,
			active = EXCLUDED.active;`,
			driver.ID, driver.OwnerID, driver.Name, driver.Start.Lon, driver.Start.Lat, driver.MaxWorkMinutes, !d.Inactive)
		if err != nil {
			return fmt.Errorf("seed: insert driver id=%d: %w", driver.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM driver_service_types WHERE driver_id = $1;`, driver.ID); err != nil {
			return fmt.Errorf("seed: clear service types driver id=%d: %w", driver.ID, err)
		}
		for _, st := range driver.ServiceTypes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO driver_service_types (driver_id, service_type_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
				driver.ID, st); err != nil {
				return fmt.Errorf("seed: insert service type driver id=%d: %w", driver.ID, err)
			}
		}
	}

	availStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO availability (driver_id, work_date, start_minute, end_minute)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (driver_id, work_date) DO UPDATE
	SET start_minute = EXCLUDED.start_minute,
		end_minute = EXCLUDED.end_minute;`)
	if err != nil {
		return fmt.Errorf("seed: prepare availability insert: %w", err)
	}
	defer availStmt.Close()

	for i, a := range s.Availability {
		date, av, err := a.toDomain()
		if err != nil {
			return fmt.Errorf("seed: availability at index %d: %w", i+1, err)
		}
		if _, err := availStmt.ExecContext(ctx, av.DriverID, date, av.StartMinute, av.EndMinute); err != nil {
			return fmt.Errorf("seed: insert availability driver id=%d: %w", av.DriverID, err)
		}
	}

	for i, j := range s.Jobs {
		job, err := j.toDomain()
		if err != nil {
			return fmt.Errorf("seed: job at index %d: %w", i+1, err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (id, owner_id, name, status, lon, lat, service_type_id, service_minutes, due_date, priority_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			lon = EXCLUDED.lon,
			lat = EXCLUDED.lat,
			service_type_id = EXCLUDED.service_type_id,
			service_minutes = EXCLUDED.service_minutes,
			due_date = EXCLUDED.due_date,
			priority_date = EXCLUDED.priority_date;`,
			job.ID, job.OwnerID, job.Name, job.Status, job.Location.Lon, job.Location.Lat,
			job.ServiceTypeID, job.ServiceMinutes, job.DueDate, job.PriorityDate)
		if err != nil {
			return fmt.Errorf("seed: insert job id=%d: %w", job.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM opening_hours WHERE job_id = $1;`, job.ID); err != nil {
			return fmt.Errorf("seed: clear hours job id=%d: %w", job.ID, err)
		}
		for _, h := range job.WeeklyHours {
			ls, le := breakColumns(h.Lunch)
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO opening_hours (job_id, weekday, open_minute, close_minute, lunch_start, lunch_end)
			VALUES ($1, $2, $3, $4, $5, $6);`,
				job.ID, int(h.Weekday), h.Open, h.Close, ls, le); err != nil {
				return fmt.Errorf("seed: insert hours job id=%d: %w", job.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM opening_exceptions WHERE job_id = $1;`, job.ID); err != nil {
			return fmt.Errorf("seed: clear exceptions job id=%d: %w", job.ID, err)
		}
		for _, e := range job.Exceptions {
			ls, le := breakColumns(e.Lunch)
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO opening_exceptions (job_id, exception_date, closed, open_minute, close_minute, lunch_start, lunch_end)
			VALUES ($1, $2, $3, $4, $5, $6, $7);`,
				job.ID, e.Date, e.Closed, e.Open, e.Close, ls, le); err != nil {
				return fmt.Errorf("seed: insert exception job id=%d: %w", job.ID, err)
			}
		}
	}

	for i, f := range s.FixedRoutes {
		date, err := parseDate(f.Date)
		if err != nil {
			return fmt.Errorf("seed: fixed route at index %d: %w", i+1, err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO fixed_routes (id, owner_id, driver_id, route_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
			driver_id = EXCLUDED.driver_id,
			route_date = EXCLUDED.route_date;`,
			f.ID, f.OwnerID, f.DriverID, date)
		if err != nil {
			return fmt.Errorf("seed: insert fixed route id=%d: %w", f.ID, err)
		}
		for _, jobID := range f.JobIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO fixed_route_jobs (route_id, job_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
				f.ID, jobID); err != nil {
				return fmt.Errorf("seed: insert fixed route job route id=%d: %w", f.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
