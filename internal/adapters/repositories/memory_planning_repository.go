package repositories

import (
	"context"
	"fleet-route-planner/internal/domain"
	"fmt"
	"slices"
	"sync"
	"time"
)

type fixedRouteRow struct {
	ownerID int
	date    time.Time
	route   domain.FixedRoute
}

// MemoryPlanningRepository is an in-process PlanningRepository used for
// demos without a database and in tests. Records are copied on the way in
// and on the way out.
type MemoryPlanningRepository struct {
	mu           sync.RWMutex
	owners       map[int]domain.Owner
	drivers      map[int]domain.Driver
	inactive     map[int]bool
	availability map[string]domain.Availability
	jobs         map[int]domain.Job
	fixed        []fixedRouteRow
}

func NewMemoryPlanningRepository() *MemoryPlanningRepository {
	return &MemoryPlanningRepository{
		owners:       make(map[int]domain.Owner),
		drivers:      make(map[int]domain.Driver),
		inactive:     make(map[int]bool),
		availability: make(map[string]domain.Availability),
		jobs:         make(map[int]domain.Job),
	}
}

func availabilityKey(driverID int, date time.Time) string {
	return fmt.Sprintf("%d|%s", driverID, date.Format(time.DateOnly))
}

func (r *MemoryPlanningRepository) AddOwner(o domain.Owner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[o.ID] = o
}

func (r *MemoryPlanningRepository) AddDriver(d domain.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ServiceTypes = slices.Clone(d.ServiceTypes)
	r.drivers[d.ID] = d
	delete(r.inactive, d.ID)
}

// DeactivateDriver hides a driver from ListActiveDrivers.
func (r *MemoryPlanningRepository) DeactivateDriver(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inactive[id] = true
}

func (r *MemoryPlanningRepository) SetAvailability(date time.Time, a domain.Availability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.availability[availabilityKey(a.DriverID, date)] = a
}

func (r *MemoryPlanningRepository) AddJob(j domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = cloneJob(j)
}

func (r *MemoryPlanningRepository) AddFixedRoute(ownerID int, date time.Time, fr domain.FixedRoute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fr.JobIDs = slices.Clone(fr.JobIDs)
	r.fixed = append(r.fixed, fixedRouteRow{ownerID: ownerID, date: date, route: fr})
}

// Load adds every record of s. It stops at the first invalid record.
func (r *MemoryPlanningRepository) Load(s *Seed) error {
	for i, o := range s.Owners {
		owner, err := o.toDomain()
		if err != nil {
			return fmt.Errorf("load seed: owner #%d: %w", i+1, err)
		}
		r.AddOwner(*owner)
	}
	for i, d := range s.Drivers {
		driver, err := d.toDomain()
		if err != nil {
			return fmt.Errorf("load seed: driver #%d: %w", i+1, err)
		}
		r.AddDriver(*driver)
		if d.Inactive {
			r.DeactivateDriver(d.ID)
		}
	}
	for i, a := range s.Availability {
		date, av, err := a.toDomain()
		if err != nil {
			return fmt.Errorf("load seed: availability #%d: %w", i+1, err)
		}
		r.SetAvailability(date, av)
	}
	for i, j := range s.Jobs {
		job, err := j.toDomain()
		if err != nil {
			return fmt.Errorf("load seed: job #%d: %w", i+1, err)
		}
		r.AddJob(*job)
	}
	for i, f := range s.FixedRoutes {
		date, err := parseDate(f.Date)
		if err != nil {
			return fmt.Errorf("load seed: fixed route #%d: %w", i+1, err)
		}
		r.AddFixedRoute(f.OwnerID, date, domain.FixedRoute{RouteID: f.ID, DriverID: f.DriverID, JobIDs: f.JobIDs})
	}
	return nil
}

func (r *MemoryPlanningRepository) GetOwner(ctx context.Context, ownerID int) (*domain.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.owners[ownerID]
	if !ok {
		return nil, fmt.Errorf("get owner %d: %w", ownerID, domain.ErrOwnerNotFound)
	}
	return &o, nil
}

func (r *MemoryPlanningRepository) ListActiveDrivers(ctx context.Context, ownerID int) ([]*domain.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		if d.OwnerID != ownerID || r.inactive[d.ID] {
			continue
		}
		d.ServiceTypes = slices.Clone(d.ServiceTypes)
		out = append(out, &d)
	}
	slices.SortFunc(out, func(a, b *domain.Driver) int { return a.ID - b.ID })
	return out, nil
}

func (r *MemoryPlanningRepository) ListAvailability(ctx context.Context, ownerID int, date time.Time) (map[int]domain.Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]domain.Availability)
	for _, d := range r.drivers {
		if d.OwnerID != ownerID {
			continue
		}
		if a, ok := r.availability[availabilityKey(d.ID, date)]; ok {
			out[d.ID] = a
		}
	}
	return out, nil
}

func (r *MemoryPlanningRepository) ListOpenJobs(ctx context.Context, ownerID int) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if j.OwnerID != ownerID || j.Status != domain.JobStatusOpen {
			continue
		}
		c := cloneJob(j)
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *domain.Job) int { return a.ID - b.ID })
	return out, nil
}

func (r *MemoryPlanningRepository) ListFixedRoutes(ctx context.Context, ownerID int, date time.Time) ([]domain.FixedRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	day := date.Format(time.DateOnly)
	var out []domain.FixedRoute
	for _, row := range r.fixed {
		if row.ownerID == ownerID && row.date.Format(time.DateOnly) == day {
			fr := row.route
			fr.JobIDs = slices.Clone(fr.JobIDs)
			out = append(out, fr)
		}
	}
	return out, nil
}

func cloneJob(j domain.Job) domain.Job {
	j.WeeklyHours = slices.Clone(j.WeeklyHours)
	j.Exceptions = slices.Clone(j.Exceptions)
	if j.PriorityDate != nil {
		p := *j.PriorityDate
		j.PriorityDate = &p
	}
	return j
}
