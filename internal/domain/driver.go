package domain

import "slices"

// Driver is a fleet member who can be given one route per day.
// Drivers are loaded read-only for a solve and never mutated by the planner.
type Driver struct {
	ID             int
	OwnerID        int
	Name           string
	Start          Coordinates
	MaxWorkMinutes int
	ServiceTypes   []int
}

// Availability is a driver's working window for one date.
type Availability struct {
	DriverID    int
	StartMinute int
	EndMinute   int
}

func (a Availability) Minutes() int { return a.EndMinute - a.StartMinute }

// CanServe reports whether the driver is qualified for the service type.
// A zero service type means the job has no requirement.
func (d *Driver) CanServe(serviceTypeID int) bool {
	if serviceTypeID == 0 {
		return true
	}
	return slices.Contains(d.ServiceTypes, serviceTypeID)
}

// FixedRoute is an existing, locked route for a date. Its driver and jobs are
// removed from planning entirely.
type FixedRoute struct {
	RouteID  int
	DriverID int
	JobIDs   []int
}
