package domain

import "time"

// Represents a single visit in a planned route.
// Travel figures describe the leg from the previous stop (or the driver's start).
type StopPlan struct {
	JobID           int
	JobName         string
	Sequence        int
	Location        Coordinates
	Window          TimeWindow
	ServiceMinutes  int
	ArrivalMinute   int
	DepartureMinute int
	TravelMinutes   int
	TravelKm        float64
}

// Represents the planned route for a single driver on one date.
// A RoutePlan is the output of the optimizer and contains no side effects;
// persisting it is the caller's concern.
type RoutePlan struct {
	DriverID            int
	DriverName          string
	Date                time.Time
	StartMinute         int
	EndMinute           int
	Stops               []StopPlan
	ReturnTravelMinutes int
	ReturnTravelKm      float64
	TotalDistanceKm     float64
	TotalMinutes        int
	TotalServiceMinutes int
	TotalTravelMinutes  int
	EstimatedCost       Money
}

const (
	SolveStatusSolved     = "solved"
	SolveStatusInfeasible = "infeasible"
	SolveStatusEmpty      = "empty"
)

// SolveResult is everything one solve-day request produces.
// UnassignedJobIDs is the union of ExcludedJobIDs (rejected before modelling)
// and DroppedJobIDs (left out by the solver).
type SolveResult struct {
	SolveID          string
	OwnerID          int
	Date             time.Time
	Status           string
	Routes           []RoutePlan
	SkippedDrivers   []string
	UnassignedJobIDs []int
	ExcludedJobIDs   []int
	DroppedJobIDs    []int
	Objective        int64
	Degraded         bool
}
