package services

import (
	"context"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fmt"
	"slices"
	"time"
)

// Skip reasons reported for drivers that cannot be planned.
const (
	ReasonFixedRoute     = "Existing route is fixed"
	ReasonNoAvailability = "No availability for date"
	ReasonNoStart        = "Start location missing"
	ReasonNoWorkTime     = "No working time available"
	ReasonNoServiceTypes = "No service types assigned"
)

// BuildInput loads drivers and jobs for one owner and date, filters out what
// cannot be planned and assembles the routing nodes.
//
// Jobs on fixed routes or outside req.JobIDs are dropped silently. Other
// rejected jobs are returned in excluded.
func BuildInput(
	ctx context.Context,
	repo ports.PlanningRepository,
	req SolveRequest,
) (_ *VrpInput, skipped []string, excluded []int, err error) {
	defer obs.Time(ctx, "services.BuildInput")(&err)

	owner, err := repo.GetOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build input: get owner %d: %w", req.OwnerID, err)
	}

	drivers, err := repo.ListActiveDrivers(ctx, req.OwnerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build input: list drivers: %w", err)
	}
	availability, err := repo.ListAvailability(ctx, req.OwnerID, req.Date)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build input: list availability: %w", err)
	}
	fixed, err := repo.ListFixedRoutes(ctx, req.OwnerID, req.Date)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build input: list fixed routes: %w", err)
	}
	jobs, err := repo.ListOpenJobs(ctx, req.OwnerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build input: list jobs: %w", err)
	}

	fixedDrivers := make(map[int]struct{}, len(fixed))
	fixedJobs := make(map[int]struct{})
	for _, r := range fixed {
		fixedDrivers[r.DriverID] = struct{}{}
		for _, id := range r.JobIDs {
			fixedJobs[id] = struct{}{}
		}
	}

	in := &VrpInput{
		Date:                    dateOnly(req.Date),
		Owner:                   owner,
		JobNodes:                make(map[int][]int),
		RequireServiceTypeMatch: req.RequireServiceTypeMatch,
	}

	for _, d := range drivers {
		reason := driverSkipReason(d, availability, fixedDrivers, req.RequireServiceTypeMatch)
		if reason != "" {
			skipped = append(skipped, fmt.Sprintf("Driver %s (#%d): %s", d.Name, d.ID, reason))
			continue
		}
		avail := availability[d.ID]
		maxMinutes := min(avail.Minutes(), d.MaxWorkMinutes)
		in.Drivers = append(in.Drivers, PlanDriver{
			Driver:       d,
			Availability: avail,
			EndMinute:    avail.StartMinute + maxMinutes,
			MaxMinutes:   maxMinutes,
		})
	}

	var filter map[int]struct{}
	if len(req.JobIDs) > 0 {
		filter = make(map[int]struct{}, len(req.JobIDs))
		for _, id := range req.JobIDs {
			filter[id] = struct{}{}
		}
	}

	for _, j := range jobs {
		if j.Status != domain.JobStatusOpen || j.OwnerID != req.OwnerID {
			continue
		}
		if _, ok := fixedJobs[j.ID]; ok {
			continue
		}
		if filter != nil {
			if _, ok := filter[j.ID]; !ok {
				continue
			}
		}
		if !j.Location.IsValid() {
			excluded = append(excluded, j.ID)
			continue
		}

		windows := JobWindows(j, in.Date)
		if len(windows) == 0 {
			excluded = append(excluded, j.ID)
			continue
		}

		if len(in.Drivers) == 0 || (req.RequireServiceTypeMatch && !anyCanServe(in.Drivers, j.ServiceTypeID)) {
			excluded = append(excluded, j.ID)
			continue
		}

		in.Jobs = append(in.Jobs, PlanJob{
			Job:          j,
			Windows:      windows,
			Urgency:      DueUrgency(j.OrderDate(), in.Date),
			DueDayOffset: daysBetween(in.Date, j.DueDate),
		})
	}

	assembleNodes(in)

	return in, skipped, excluded, nil
}

func driverSkipReason(
	d *domain.Driver,
	availability map[int]domain.Availability,
	fixedDrivers map[int]struct{},
	requireServiceTypes bool,
) string {
	if _, ok := fixedDrivers[d.ID]; ok {
		return ReasonFixedRoute
	}
	avail, ok := availability[d.ID]
	if !ok {
		return ReasonNoAvailability
	}
	if !d.Start.IsValid() {
		return ReasonNoStart
	}
	if min(avail.Minutes(), d.MaxWorkMinutes) <= 0 {
		return ReasonNoWorkTime
	}
	if requireServiceTypes && len(d.ServiceTypes) == 0 {
		return ReasonNoServiceTypes
	}
	return ""
}

func anyCanServe(drivers []PlanDriver, serviceTypeID int) bool {
	return slices.ContainsFunc(drivers, func(d PlanDriver) bool {
		return d.Driver.CanServe(serviceTypeID)
	})
}

// assembleNodes lays out driver start nodes first, then job window nodes.
func assembleNodes(in *VrpInput) {
	in.Nodes = make([]Node, 0, len(in.Drivers))
	for i := range in.Drivers {
		in.Drivers[i].Node = len(in.Nodes)
		in.Nodes = append(in.Nodes, Node{
			Kind:     NodeDriverStart,
			Location: in.Drivers[i].Driver.Start,
			Driver:   i,
			Job:      -1,
		})
	}
	for ji := range in.Jobs {
		pj := &in.Jobs[ji]
		for _, w := range pj.Windows {
			idx := len(in.Nodes)
			pj.Nodes = append(pj.Nodes, idx)
			in.JobNodes[pj.Job.ID] = append(in.JobNodes[pj.Job.ID], idx)
			in.Nodes = append(in.Nodes, Node{
				Kind:           NodeJobWindow,
				Location:       pj.Job.Location,
				Driver:         -1,
				Job:            ji,
				Window:         w,
				ServiceMinutes: serviceMinutes(pj.Job),
			})
		}
	}
}

func serviceMinutes(j *domain.Job) int {
	return max(j.ServiceMinutes, 0)
}

// JobWindows returns the windows in which job j can be served on date. A
// lunch break splits the day into two windows; windows too short for the
// service duration are dropped.
func JobWindows(j *domain.Job, date time.Time) []domain.TimeWindow {
	opens, closes, lunch, ok := resolveOpening(j, date)
	if !ok {
		return nil
	}

	candidates := splitByBreak(opens, closes, lunch)

	service := serviceMinutes(j)
	out := make([]domain.TimeWindow, 0, len(candidates))
	for _, w := range candidates {
		if w.Fits(service) {
			out = append(out, w)
		}
	}
	return out
}

// splitByBreak removes the part of lunch that overlaps [opens, closes].
// A break touching either edge shortens the day; one covering it leaves nothing.
func splitByBreak(opens, closes int, lunch *domain.Break) []domain.TimeWindow {
	if lunch == nil || lunch.Start >= lunch.End || lunch.End <= opens || lunch.Start >= closes {
		return []domain.TimeWindow{{Start: opens, End: closes}}
	}

	var out []domain.TimeWindow
	if lunch.Start > opens {
		out = append(out, domain.TimeWindow{Start: opens, End: lunch.Start})
	}
	if lunch.End < closes {
		out = append(out, domain.TimeWindow{Start: lunch.End, End: closes})
	}
	return out
}

// resolveOpening picks the opening hours for date: an exception on that
// date wins over the weekly pattern.
func resolveOpening(j *domain.Job, date time.Time) (opens, closes int, lunch *domain.Break, ok bool) {
	day := dateOnly(date)
	for _, ex := range j.Exceptions {
		if !dateOnly(ex.Date).Equal(day) {
			continue
		}
		if ex.Closed || ex.Close <= ex.Open {
			return 0, 0, nil, false
		}
		return ex.Open, ex.Close, ex.Lunch, true
	}

	for _, h := range j.WeeklyHours {
		if h.Weekday != day.Weekday() {
			continue
		}
		if h.Close <= h.Open {
			return 0, 0, nil, false
		}
		return h.Open, h.Close, h.Lunch, true
	}

	return 0, 0, nil, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

// DueUrgency maps the days left until orderDate onto [0, 1]; overdue jobs
// score 1 and urgency fades to 0 eight weeks out.
func DueUrgency(orderDate, planDate time.Time) float64 {
	days := float64(daysBetween(planDate, orderDate))

	var u float64
	switch {
	case days < 0:
		u = 1
	case days <= 7:
		u = 1 - 0.2*days/7
	case days <= 14:
		u = 0.8 - 0.3*(days-7)/7
	case days <= 28:
		u = 0.5 - 0.3*(days-14)/14
	default:
		u = 0.2 - 0.2*(days-28)/28
	}
	return clamp01(u)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
