package services

import (
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/ports"
	"time"
)

// Weights are the objective weights of a solve. Requests carry them as
// 0-100 values; NormalizeWeights turns them into solver weights.
type Weights struct {
	Time     float64 `yaml:"time"`
	Distance float64 `yaml:"distance"`
	Date     float64 `yaml:"date"`
	Cost     float64 `yaml:"cost"`
	Overtime float64 `yaml:"overtime"`
}

// PenaltyKnobs are optional 0-100 sliders. A nil knob keeps the base value.
type PenaltyKnobs struct {
	DueCap         *float64
	DetourCap      *float64
	DetourRefKm    *float64
	LateRefMinutes *float64
}

// Represents one "plan this day for this owner" request.
type SolveRequest struct {
	Date    time.Time
	OwnerID int
	// JobIDs restricts planning to these jobs when non-empty.
	JobIDs []int
	// MaxStopsPerDriver caps stops per route; zero means no cap.
	MaxStopsPerDriver       int
	Weights                 Weights
	Costs                   *domain.CostSettings
	RequireServiceTypeMatch bool
	NormalizeWeights        bool
	Knobs                   PenaltyKnobs
	// TimeLimit overrides the configured search time budget when positive.
	TimeLimit time.Duration
}

// ReferenceScales convert km, minutes and money into comparable magnitudes.
type ReferenceScales struct {
	DistanceKm float64 `yaml:"distance_km"`
	Minutes    float64 `yaml:"minutes"`
	Cost       float64 `yaml:"cost"`
}

// DominanceConfig decides when one objective clearly dominates the others.
type DominanceConfig struct {
	DominantMin   float64 `yaml:"dominant_min"`
	OthersMax     float64 `yaml:"others_max"`
	DominantGamma float64 `yaml:"dominant_gamma"`
	DefaultGamma  float64 `yaml:"default_gamma"`
}

// SliderRange maps a 0-100 slider onto [Min, Base] below 50 and
// [Base, 2*Base] from 50 up.
type SliderRange struct {
	Min  float64 `yaml:"min"`
	Base float64 `yaml:"base"`
}

// PenaltyBounds hold the slider ranges of the penalty calculator.
type PenaltyBounds struct {
	DueCap         SliderRange `yaml:"due_cap"`
	DetourCap      SliderRange `yaml:"detour_cap"`
	DetourRefKm    SliderRange `yaml:"detour_ref_km"`
	LateRefMinutes SliderRange `yaml:"late_ref_minutes"`
	// OnTimeFactor scales the urgency charge of drivers who make the due date.
	OnTimeFactor float64 `yaml:"on_time_factor"`
	// DetourWeightFloor keeps detours relevant when distance and cost weigh little.
	DetourWeightFloor float64 `yaml:"detour_weight_floor"`
}

// EngineConfig holds the tunable constants of the planner.
type EngineConfig struct {
	SpeedKmh              float64                `yaml:"speed_kmh"`
	ReferenceFloors       ReferenceScales        `yaml:"reference_floors"`
	Dominance             DominanceConfig        `yaml:"dominance"`
	Penalty               PenaltyBounds          `yaml:"penalty"`
	OvertimeBufferMinutes int                    `yaml:"overtime_buffer_minutes"`
	CostScale             float64                `yaml:"cost_scale"`
	Search                ports.SearchParameters `yaml:"search"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SpeedKmh:        50,
		ReferenceFloors: ReferenceScales{DistanceKm: 60, Minutes: 120, Cost: 50},
		Dominance:       DominanceConfig{DominantMin: 90, OthersMax: 10, DominantGamma: 3, DefaultGamma: 2},
		Penalty: PenaltyBounds{
			DueCap:            SliderRange{Min: 0.1, Base: 1.0},
			DetourCap:         SliderRange{Min: 0.05, Base: 0.5},
			DetourRefKm:       SliderRange{Min: 2, Base: 20},
			LateRefMinutes:    SliderRange{Min: 30, Base: 240},
			OnTimeFactor:      0.2,
			DetourWeightFloor: 0.2,
		},
		OvertimeBufferMinutes: 60,
		CostScale:             1000,
		Search: ports.SearchParameters{
			TimeLimit:     3 * time.Second,
			SolutionLimit: 5000,
			FirstSolution: ports.PathCheapestArc,
			Metaheuristic: ports.GuidedLocalSearch,
			GLSLambda:     0.1,
			StallLimit:    100,
		},
	}
}

// PlanDriver is a driver that passed every feasibility filter.
type PlanDriver struct {
	Driver       *domain.Driver
	Availability domain.Availability
	// EndMinute is min(availability end, start + max work minutes).
	EndMinute  int
	MaxMinutes int
	Node       int
}

func (d PlanDriver) StartMinute() int { return d.Availability.StartMinute }

// PlanJob is a candidate job with its surviving windows.
type PlanJob struct {
	Job     *domain.Job
	Windows []domain.TimeWindow
	Urgency float64
	// DueDayOffset is the due date minus the planning date, in days.
	DueDayOffset int
	Nodes        []int
}

type NodeKind int

const (
	NodeDriverStart NodeKind = iota
	NodeJobWindow
)

// Node is one vertex of the routing graph.
type Node struct {
	Kind     NodeKind
	Location domain.Coordinates
	// Driver indexes VrpInput.Drivers for start nodes.
	Driver int
	// Job indexes VrpInput.Jobs for window nodes.
	Job            int
	Window         domain.TimeWindow
	ServiceMinutes int
}

// VrpInput is everything the model is built from. Driver start nodes come
// first, in driver order, then one node per job window.
type VrpInput struct {
	Date                    time.Time
	Owner                   *domain.Owner
	Drivers                 []PlanDriver
	Jobs                    []PlanJob
	Nodes                   []Node
	JobNodes                map[int][]int
	RequireServiceTypeMatch bool
}

func (in *VrpInput) Points() []domain.Coordinates {
	out := make([]domain.Coordinates, len(in.Nodes))
	for i, n := range in.Nodes {
		out[i] = n.Location
	}
	return out
}

// Eligible reports whether driver d may serve job j.
func (in *VrpInput) Eligible(d, j int) bool {
	if !in.RequireServiceTypeMatch {
		return true
	}
	return in.Drivers[d].Driver.CanServe(in.Jobs[j].Job.ServiceTypeID)
}
